package storage

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"helmetwatch/internal/config"
	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
	"helmetwatch/internal/repository"
)

const (
	// FilenamePrefix and FilenameLayout form names like screenshot_20250615_143005.png.
	FilenamePrefix = "screenshot_"
	FilenameLayout = "20060102_150405"
	FilenameExt    = ".png"
)

// ScreenshotService writes alert frames to disk and indexes them.
type ScreenshotService struct {
	dir           string
	logger        *logger.Logger
	shotRepo      repository.ScreenshotRepository
	detectionRepo repository.DetectionRepository

	// now is swapped in tests.
	now func() time.Time
	mu  sync.Mutex
}

// NewScreenshotService creates a ScreenshotService. Repositories may be nil, in which case only files are written.
func NewScreenshotService(cfg *config.Config, logger *logger.Logger, shotRepo repository.ScreenshotRepository, detectionRepo repository.DetectionRepository) *ScreenshotService {
	return &ScreenshotService{
		dir:           cfg.ScreenshotDirectory,
		logger:        logger,
		shotRepo:      shotRepo,
		detectionRepo: detectionRepo,
		now:           time.Now,
	}
}

// Dir returns the screenshot directory.
func (s *ScreenshotService) Dir() string {
	return s.dir
}

// Filename returns the screenshot name for t.
func Filename(t time.Time) string {
	return FilenamePrefix + t.Format(FilenameLayout) + FilenameExt
}

// ParseFilename recovers the local capture time from a screenshot name.
func ParseFilename(name string) (time.Time, error) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, FilenamePrefix) || !strings.HasSuffix(base, FilenameExt) {
		return time.Time{}, fmt.Errorf("not a screenshot name: %q", name)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, FilenamePrefix), FilenameExt)
	t, err := time.ParseInLocation(FilenameLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid screenshot timestamp %q: %w", stamp, err)
	}
	return t, nil
}

// Save writes frame as PNG into the screenshot directory and returns its path.
// Two saves within the same second share a name; the later one wins.
func (s *ScreenshotService) Save(frame image.Image) (string, error) {
	path, _, err := s.save(frame)
	return path, err
}

func (s *ScreenshotService) save(frame image.Image) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	ts := s.now()
	path := filepath.Join(s.dir, Filename(ts))

	f, err := os.Create(path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create screenshot: %w", err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return "", time.Time{}, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to write screenshot: %w", err)
	}

	s.logger.Info("Screenshot saved: %s", path)
	return path, ts, nil
}

// Capture saves frame and records it with its predictions in the index.
// Index failures are logged; the file on disk is kept.
func (s *ScreenshotService) Capture(camera string, frame image.Image, predictions []dto.Prediction) (string, error) {
	path, ts, err := s.save(frame)
	if err != nil {
		return "", err
	}

	if s.shotRepo == nil {
		return path, nil
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	shot := &model.Screenshot{
		Filename:  filepath.Base(path),
		Camera:    camera,
		Timestamp: ts,
		FilePath:  path,
		FileSize:  size,
	}
	id, err := s.shotRepo.Upsert(shot)
	if err != nil {
		s.logger.Error("Error saving screenshot %s to database: %v", shot.Filename, err)
		return path, nil
	}

	if s.detectionRepo != nil {
		if err := s.detectionRepo.ReplaceForScreenshot(id, Detections(predictions)); err != nil {
			s.logger.Error("Error saving detections to database: %v", err)
		}
	}
	return path, nil
}

// Detections converts predictions into box-corner detection records.
func Detections(predictions []dto.Prediction) []model.Detection {
	detections := make([]model.Detection, 0, len(predictions))
	for _, p := range predictions {
		box := p.Box()
		detections = append(detections, model.Detection{
			Class:      p.Class,
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
			Confidence: p.Confidence,
		})
	}
	return detections
}

// OpenFolder opens the screenshot directory in the platform file browser.
func (s *ScreenshotService) OpenFolder() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	cmd, err := openCommand(runtime.GOOS, s.dir)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", s.dir, err)
	}
	go cmd.Wait()
	return nil
}

func openCommand(goos, dir string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		return exec.Command("explorer", dir), nil
	case "darwin":
		return exec.Command("open", dir), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", dir), nil
	default:
		return nil, fmt.Errorf("opening folders is not supported on %s", goos)
	}
}
