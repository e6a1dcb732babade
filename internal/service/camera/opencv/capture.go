// Package opencv opens camera sources through gocv.
package opencv

import (
	"errors"
	"fmt"
	"image"

	"helmetwatch/internal/service/camera"

	"gocv.io/x/gocv"
)

// Capture reads frames from a gocv VideoCapture.
type Capture struct {
	webcam *gocv.VideoCapture
	frame  gocv.Mat // reused between reads
}

// Open opens a device index or URL. It satisfies camera.Opener.
func Open(src camera.Source) (camera.Capture, error) {
	var (
		webcam *gocv.VideoCapture
		err    error
	)
	if src.IsDevice {
		webcam, err = gocv.VideoCaptureDevice(src.Device)
	} else {
		webcam, err = gocv.OpenVideoCapture(src.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("video source %s is not opened", src)
	}

	if !src.IsDevice {
		// keep network streams close to live
		webcam.Set(gocv.VideoCaptureBufferSize, 1)
	}

	return &Capture{
		webcam: webcam,
		frame:  gocv.NewMat(),
	}, nil
}

// Read grabs the next frame and converts it to a Go image.
func (c *Capture) Read() (image.Image, error) {
	if ok := c.webcam.Read(&c.frame); !ok {
		return nil, errors.New("cannot read frame")
	}
	if c.frame.Empty() {
		return nil, errors.New("frame is empty")
	}

	img, err := c.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame to image: %w", err)
	}
	return img, nil
}

// Close releases the capture device and the frame buffer.
func (c *Capture) Close() error {
	c.frame.Close()
	return c.webcam.Close()
}
