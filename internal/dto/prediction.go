package dto

import (
	"image"
	"strings"
)

// Prediction is one object returned by the detection service.
// X and Y are the box center in image pixels.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Box converts the center-based prediction into a pixel rectangle.
func (p Prediction) Box() image.Rectangle {
	x1 := int(p.X - p.Width/2)
	y1 := int(p.Y - p.Height/2)
	return image.Rect(x1, y1, x1+int(p.Width), y1+int(p.Height))
}

// Is reports whether the class matches label, ignoring case and surrounding spaces.
func (p Prediction) Is(label string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Class), strings.TrimSpace(label))
}
