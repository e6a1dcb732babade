package config

import (
	"path/filepath"
	"testing"
)

func TestParseCameras(t *testing.T) {
	cameras, err := ParseCameras("Gate=rtsp://10.0.0.5/stream; Desk=0 ;Gate=rtsp://10.0.0.6/stream")
	if err != nil {
		t.Fatalf("ParseCameras failed: %v", err)
	}

	if len(cameras) != 2 {
		t.Fatalf("Expected 2 cameras, got %d", len(cameras))
	}
	if cameras[0].Name != "Gate" || cameras[0].Source != "rtsp://10.0.0.6/stream" {
		t.Errorf("Expected later Gate entry to win, got %+v", cameras[0])
	}
	if cameras[1].Name != "Desk" || cameras[1].Source != "0" {
		t.Errorf("Unexpected second camera %+v", cameras[1])
	}
}

func TestParseCameras_Invalid(t *testing.T) {
	tests := []string{"nosource", "=0", "cam="}

	for _, input := range tests {
		if _, err := ParseCameras(input); err == nil {
			t.Errorf("ParseCameras(%q) should fail", input)
		}
	}
}

func TestParseCameras_Empty(t *testing.T) {
	cameras, err := ParseCameras("  ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cameras != nil {
		t.Errorf("Expected nil cameras, got %v", cameras)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CAMERAS", "")
	t.Setenv("CAMERAS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ALERT_CLASS", "")

	cfg := Load()

	if cfg.AlertClass != "no helmet" {
		t.Errorf("Expected default alert class, got %q", cfg.AlertClass)
	}
	if cfg.TickIntervalMillis != 30 {
		t.Errorf("Expected 30 ms tick, got %d", cfg.TickIntervalMillis)
	}
	if len(cfg.Cameras) != 1 || cfg.Cameras[0].Name != DefaultCameraName || cfg.Cameras[0].Source != "0" {
		t.Errorf("Expected built-in camera default, got %+v", cfg.Cameras)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CONFIDENCE_THRESHOLD", "55")
	t.Setenv("OVERLAP_THRESHOLD", "not-a-number")
	t.Setenv("CAMERAS", "Yard=http://cam.local/video")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.ConfidenceThresh != 55 {
		t.Errorf("Expected confidence 55, got %d", cfg.ConfidenceThresh)
	}
	if cfg.OverlapThresh != 30 {
		t.Errorf("Expected overlap default 30 for invalid value, got %d", cfg.OverlapThresh)
	}
	if len(cfg.Cameras) != 1 || cfg.Cameras[0].Name != "Yard" {
		t.Errorf("Expected Yard camera, got %+v", cfg.Cameras)
	}
}

func TestCameraFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cameras.yaml")
	cameras := []CameraConfig{
		{Name: "Built-in Camera", Source: "0"},
		{Name: "Dock", Source: "rtsp://192.168.1.20/live"},
	}

	if err := SaveCameraFile(path, cameras); err != nil {
		t.Fatalf("SaveCameraFile failed: %v", err)
	}

	loaded, err := LoadCameraFile(path)
	if err != nil {
		t.Fatalf("LoadCameraFile failed: %v", err)
	}
	if len(loaded) != 2 || loaded[1] != cameras[1] {
		t.Errorf("Unexpected cameras after reload: %+v", loaded)
	}

	t.Setenv("CAMERAS", "")
	t.Setenv("CAMERAS_FILE", path)
	cfg := Load()
	if len(cfg.Cameras) != 2 {
		t.Errorf("Expected cameras from file, got %+v", cfg.Cameras)
	}
}
