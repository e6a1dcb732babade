package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultCameraName is the entry used when no cameras are configured.
const DefaultCameraName = "Built-in Camera"

type Config struct {
	Port     int
	Password string

	// Roboflow hosted inference
	DetectionURL       string
	DetectionAPIKey    string
	DetectionProject   string
	DetectionVersion   int
	ConfidenceThresh   int // percent, 0-100
	OverlapThresh      int // percent, 0-100
	DetectionTimeout   int // seconds
	AlertClass         string
	TickIntervalMillis int

	ScreenshotDirectory string
	DatabasePath        string
	LogDirectory        string

	Cameras     []CameraConfig
	CamerasFile string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// .env is optional; missing file is not an error
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnvAsInt("PORT", 8080),
		Password:            getEnv("PASSWORD", "helmet"),
		DetectionURL:        getEnv("ROBOFLOW_API_URL", "https://detect.roboflow.com"),
		DetectionAPIKey:     getEnv("ROBOFLOW_API_KEY", ""),
		DetectionProject:    getEnv("ROBOFLOW_PROJECT", "hard-hat-sample"),
		DetectionVersion:    getEnvAsInt("ROBOFLOW_VERSION", 1),
		ConfidenceThresh:    getEnvAsInt("CONFIDENCE_THRESHOLD", 40),
		OverlapThresh:       getEnvAsInt("OVERLAP_THRESHOLD", 30),
		DetectionTimeout:    getEnvAsInt("DETECTION_TIMEOUT_S", 10),
		AlertClass:          getEnv("ALERT_CLASS", "no helmet"),
		TickIntervalMillis:  getEnvAsInt("TICK_INTERVAL_MS", 30),
		ScreenshotDirectory: getEnv("SCREENSHOT_DIR", "screenshots"),
		DatabasePath:        getEnv("DB_PATH", filepath.Join(".", "data", "screenshots.db")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CamerasFile:         getEnv("CAMERAS_FILE", "cameras.yaml"),
	}

	cameras, err := ParseCameras(getEnv("CAMERAS", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring CAMERAS: %v\n", err)
	}
	if len(cameras) == 0 {
		if fromFile, err := LoadCameraFile(cfg.CamerasFile); err == nil {
			cameras = fromFile
		}
	}
	if len(cameras) == 0 {
		cameras = []CameraConfig{{Name: DefaultCameraName, Source: "0"}}
	}
	cfg.Cameras = cameras

	return cfg
}

// ParseCameras parses "name=source;name=source". Later duplicates replace earlier ones.
func ParseCameras(value string) ([]CameraConfig, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	var cameras []CameraConfig
	index := make(map[string]int)
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, source, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		source = strings.TrimSpace(source)
		if !ok || name == "" || source == "" {
			return nil, fmt.Errorf("invalid camera entry %q, want name=source", part)
		}
		if i, exists := index[name]; exists {
			cameras[i].Source = source
			continue
		}
		index[name] = len(cameras)
		cameras = append(cameras, CameraConfig{Name: name, Source: source})
	}
	return cameras, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
