package repository

import (
	"helmetwatch/internal/dto"
	"helmetwatch/internal/model"
)

// ScreenshotRepository defines the interface for screenshot index operations.
type ScreenshotRepository interface {
	// Upsert inserts or replaces the record with the same filename and returns its ID.
	Upsert(shot *model.Screenshot) (int64, error)

	GetByID(id int64) (*model.Screenshot, error)
	GetByFilename(filename string) (*model.Screenshot, error)
	GetAll(filter *dto.ScreenshotFilters) ([]model.Screenshot, error)
	GetTotalCount(filter *dto.ScreenshotFilters) (int, error)
	GetTotalSize() (int64, error)
	GetStats() (*dto.ScreenshotStats, error)

	Delete(id int64) error
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	InsertBatch(detections []model.Detection) error
	// ReplaceForScreenshot swaps all detections of a screenshot in one transaction.
	ReplaceForScreenshot(screenshotID int64, detections []model.Detection) error

	GetByScreenshotID(screenshotID int64) ([]model.Detection, error)
	GetClassesByScreenshotID(screenshotID int64) ([]string, error)
	GetAllClasses() ([]string, error)

	DeleteByScreenshotID(screenshotID int64) error
}
