// ScreenshotsData is a paginated response payload for the screenshot gallery.
package dto

type ScreenshotsData struct {
	Screenshots   []ScreenshotInfo `json:"screenshots"`
	ScreenshotDir string           `json:"screenshotDir"`
	Size          int64            `json:"size"`
	Length        int              `json:"length"`
	TotalPages    int              `json:"totalPages"`
	CurrentPage   int              `json:"currentPage"`
	Limit         int              `json:"pageSize"`
}

// ScreenshotStats summarizes the screenshot index.
type ScreenshotStats struct {
	TotalScreenshots int            `json:"totalScreenshots"`
	TotalSizeBytes   int64          `json:"totalSizeBytes"`
	PerCamera        map[string]int `json:"perCamera"`
	ClassCounts      map[string]int `json:"classCounts"`
}
