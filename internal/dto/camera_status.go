package dto

import "time"

// CameraStatus describes one registered camera.
type CameraStatus struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	State     string    `json:"state"`
	Selected  bool      `json:"selected"`
	LastFrame time.Time `json:"lastFrame"`
	Frames    int64     `json:"frames"`
	LastError string    `json:"lastError,omitempty"`
}

// CameraRequest is the body of camera add and edit requests.
type CameraRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}
