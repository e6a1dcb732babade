package model

// Detection is one prediction recorded against a screenshot.
type Detection struct {
	ID           int64   `json:"id"`
	ScreenshotID int64   `json:"screenshot_id"`
	Class        string  `json:"class"`
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Confidence   float64 `json:"confidence"`
}
