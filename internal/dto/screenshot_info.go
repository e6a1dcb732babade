package dto

import (
	"encoding/json"
	"time"
)

// ScreenshotInfo represents a stored screenshot and the classes detected on it.
type ScreenshotInfo struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Camera    string    `json:"camera"`
	Classes   []string  `json:"classes"`
}

// MarshalJSON customizes JSON output for ScreenshotInfo to format date and time-of-day.
func (p ScreenshotInfo) MarshalJSON() ([]byte, error) {
	type Alias ScreenshotInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(p),
	})
}
