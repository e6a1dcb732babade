// Package overlay draws detection boxes and captions onto frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"helmetwatch/internal/dto"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// Thickness is the box border width in pixels.
	Thickness = 2
	// labelOffset is the distance between the caption baseline and the box top.
	labelOffset = 10
)

var (
	BoxColor   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	LabelColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// Draw outlines every prediction on img with a "class (0.93)" caption.
// It returns the rectangles that were drawn, in prediction order.
func Draw(img *image.RGBA, predictions []dto.Prediction) []image.Rectangle {
	boxes := make([]image.Rectangle, 0, len(predictions))
	for _, p := range predictions {
		box := p.Box()
		Rect(img, box, BoxColor, Thickness)
		Label(img, fmt.Sprintf("%s (%.2f)", p.Class, p.Confidence), image.Pt(box.Min.X, box.Min.Y-labelOffset), LabelColor)
		boxes = append(boxes, box)
	}
	return boxes
}

// Rect draws the outline of r, growing inwards by thickness. Pixels outside img are clipped.
func Rect(img *image.RGBA, r image.Rectangle, col color.Color, thickness int) {
	if r.Empty() {
		return
	}
	src := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), // top
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y), // left
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, edge := range edges {
		edge = edge.Intersect(img.Bounds())
		if edge.Empty() {
			continue
		}
		draw.Draw(img, edge, src, image.Point{}, draw.Src)
	}
}

// Label writes text with its baseline at pt, nudged down when it would leave the frame.
func Label(img *image.RGBA, text string, pt image.Point, col color.Color) {
	face := basicfont.Face7x13
	if pt.Y < face.Ascent {
		pt.Y = face.Ascent
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(pt.X, pt.Y),
	}
	d.DrawString(text)
}
