package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"helmetwatch/internal/config"
	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/service/camera"
)

var ErrNoCameras = errors.New("no cameras configured")

// CameraService keeps the configured camera list and the running registry in step.
// The list is persisted to the camera file whenever it changes.
type CameraService struct {
	registry *camera.Registry
	monitor  *Monitor
	file     string
	logger   *logger.Logger

	mu      sync.Mutex
	cameras []config.CameraConfig
	running bool
}

// NewCameraService starts from the cameras in cfg. Nothing is opened until StartAll.
func NewCameraService(cfg *config.Config, logger *logger.Logger, registry *camera.Registry, monitor *Monitor) *CameraService {
	cameras := make([]config.CameraConfig, len(cfg.Cameras))
	copy(cameras, cfg.Cameras)

	return &CameraService{
		registry: registry,
		monitor:  monitor,
		file:     cfg.CamerasFile,
		logger:   logger,
		cameras:  cameras,
	}
}

// List returns every configured camera with its live state.
func (s *CameraService) List() []dto.CameraStatus {
	s.mu.Lock()
	cameras := make([]config.CameraConfig, len(s.cameras))
	copy(cameras, s.cameras)
	s.mu.Unlock()

	selected := s.monitor.Selected()
	statuses := make([]dto.CameraStatus, 0, len(cameras))
	for _, c := range cameras {
		status, err := s.registry.Status(c.Name)
		if err != nil {
			status = dto.CameraStatus{Name: c.Name, Source: c.Source, State: string(camera.StateStopped)}
		}
		status.Selected = c.Name == selected
		statuses = append(statuses, status)
	}
	return statuses
}

// Running reports whether cameras have been started.
func (s *CameraService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Add appends a camera. While running, the camera is opened first and is
// only kept when it opens.
func (s *CameraService) Add(name, source string) error {
	src, err := camera.ParseSource(source)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("camera name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(name) >= 0 {
		return fmt.Errorf("%s: %w", name, camera.ErrCameraExists)
	}
	if s.running {
		if err := s.registry.Add(name, src); err != nil {
			return err
		}
	}

	s.cameras = append(s.cameras, config.CameraConfig{Name: name, Source: source})
	s.persist()
	s.logger.Info("Camera %s added with source %s", name, source)
	return nil
}

// Edit renames a camera or changes its source. A running camera is reopened,
// and the list is left untouched when the new source fails to open.
func (s *CameraService) Edit(oldName, name, source string) error {
	src, err := camera.ParseSource(source)
	if err != nil {
		return err
	}
	if name == "" {
		name = oldName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(oldName)
	if i < 0 {
		return fmt.Errorf("%s: %w", oldName, camera.ErrCameraNotFound)
	}
	if name != oldName && s.index(name) >= 0 {
		return fmt.Errorf("%s: %w", name, camera.ErrCameraExists)
	}

	if s.running {
		if err := s.reopen(oldName, s.cameras[i].Source, name, src); err != nil {
			return err
		}
	}

	s.cameras[i] = config.CameraConfig{Name: name, Source: source}
	s.persist()

	if s.monitor.Selected() == oldName {
		s.monitor.Select(name)
	}
	s.logger.Info("Camera %s updated to %s (%s)", oldName, name, source)
	return nil
}

// reopen swaps an open camera for its edited version. When the new source
// cannot be opened the old camera is put back.
func (s *CameraService) reopen(oldName, oldSource, name string, src camera.Source) error {
	if err := s.registry.Remove(oldName); err != nil && !errors.Is(err, camera.ErrCameraNotFound) {
		return err
	}
	err := s.registry.Add(name, src)
	if err == nil {
		return nil
	}

	if old, perr := camera.ParseSource(oldSource); perr == nil {
		if rerr := s.registry.Add(oldName, old); rerr != nil {
			s.logger.Warning("Could not reopen camera %s after failed edit: %v", oldName, rerr)
		}
	}
	return err
}

// Remove deletes a camera from the list and closes it if it is open.
func (s *CameraService) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(name)
	if i < 0 {
		return fmt.Errorf("%s: %w", name, camera.ErrCameraNotFound)
	}
	s.cameras = append(s.cameras[:i], s.cameras[i+1:]...)
	s.persist()

	if err := s.registry.Remove(name); err != nil && !errors.Is(err, camera.ErrCameraNotFound) {
		return err
	}
	if s.monitor.Selected() == name {
		s.monitor.Select("")
	}
	s.logger.Info("Camera %s removed", name)
	return nil
}

// Select makes name the monitored camera.
func (s *CameraService) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(name) < 0 {
		return fmt.Errorf("%s: %w", name, camera.ErrCameraNotFound)
	}
	s.monitor.Select(name)
	return nil
}

// StartAll opens every configured camera and starts the monitor.
// The first camera is selected when nothing is selected yet.
func (s *CameraService) StartAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cameras) == 0 {
		return 0, ErrNoCameras
	}

	sources := make(map[string]camera.Source, len(s.cameras))
	for _, c := range s.cameras {
		src, err := camera.ParseSource(c.Source)
		if err != nil {
			s.logger.Warning("Skipping camera %s: %v", c.Name, err)
			continue
		}
		sources[c.Name] = src
	}

	started := s.registry.Start(sources)
	if s.index(s.monitor.Selected()) < 0 {
		s.monitor.Select(s.cameras[0].Name)
	}
	s.monitor.Start(ctx)
	s.running = true
	return started, nil
}

// StopAll stops the monitor and closes every camera.
func (s *CameraService) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.monitor.Stop()
	s.registry.Stop()
	s.running = false
}

func (s *CameraService) index(name string) int {
	for i, c := range s.cameras {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *CameraService) persist() {
	if s.file == "" {
		return
	}
	if err := config.SaveCameraFile(s.file, s.cameras); err != nil {
		s.logger.Error("Error saving camera list to %s: %v", s.file, err)
	}
}
