package dto

import (
	"image"
	"time"
)

// FrameResult is the outcome of one monitoring tick.
type FrameResult struct {
	Camera         string
	Timestamp      time.Time
	Frame          *image.RGBA // annotated copy of the camera frame
	Predictions    []Prediction
	Boxes          []image.Rectangle
	Alert          bool
	ScreenshotPath string
}
