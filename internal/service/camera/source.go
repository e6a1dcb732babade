package camera

import (
	"errors"
	"image"
	"strconv"
	"strings"
)

// Source identifies a video source: a local device index or a network URL.
type Source struct {
	Device   int
	URL      string
	IsDevice bool
}

// DeviceSource returns a Source for a local capture device.
func DeviceSource(index int) Source {
	return Source{Device: index, IsDevice: true}
}

// URLSource returns a Source for a network stream or file.
func URLSource(url string) Source {
	return Source{URL: url}
}

// ParseSource treats an integer string as a device index and anything else as a URL.
func ParseSource(value string) (Source, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Source{}, errors.New("empty camera source")
	}
	if index, err := strconv.Atoi(value); err == nil && index >= 0 {
		return DeviceSource(index), nil
	}
	return URLSource(value), nil
}

func (s Source) String() string {
	if s.IsDevice {
		return strconv.Itoa(s.Device)
	}
	return s.URL
}

// Capture is an open video handle. Read blocks until the next frame is available.
type Capture interface {
	Read() (image.Image, error)
	Close() error
}

// Opener opens a Capture for a Source.
type Opener func(src Source) (Capture, error)
