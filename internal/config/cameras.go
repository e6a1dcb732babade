package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CameraConfig is one named video source as stored in the camera list file.
type CameraConfig struct {
	Name   string `yaml:"name" json:"name"`
	Source string `yaml:"source" json:"source"`
}

type cameraFile struct {
	Cameras []CameraConfig `yaml:"cameras"`
}

// LoadCameraFile reads the yaml camera list at path.
func LoadCameraFile(path string) ([]CameraConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f cameraFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse camera file: %w", err)
	}
	return f.Cameras, nil
}

// SaveCameraFile writes the camera list to path, creating parent directories.
func SaveCameraFile(path string, cameras []CameraConfig) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create camera file directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cameraFile{Cameras: cameras})
	if err != nil {
		return fmt.Errorf("failed to encode camera file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write camera file: %w", err)
	}
	return nil
}
