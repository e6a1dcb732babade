// ScreenshotFilters describe user-provided filters to narrow the screenshot list.
package dto

import "time"

type ScreenshotFilters struct {
	Camera     string
	Class      string
	DateAfter  time.Time
	DateBefore time.Time
	TimeAfter  time.Time
	TimeBefore time.Time
	Limit      int
	Offset     int
}
