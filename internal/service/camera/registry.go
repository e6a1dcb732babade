package camera

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sort"
	"sync"
	"time"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
)

// State is the lifecycle state of a single camera entry.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)

var (
	ErrCameraExists   = errors.New("camera already exists")
	ErrCameraNotFound = errors.New("camera not found")
)

// entry owns one capture handle and its acquisition goroutine.
type entry struct {
	name    string
	source  Source
	capture Capture

	mu        sync.Mutex
	frame     *image.RGBA
	state     State
	lastFrame time.Time
	frames    int64
	lastErr   error

	stop chan struct{}
	done chan struct{}
}

// Registry maps camera names to running frame sources.
type Registry struct {
	open    Opener
	logger  *logger.Logger
	entries map[string]*entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry that opens sources with open.
func NewRegistry(open Opener, logger *logger.Logger) *Registry {
	return &Registry{
		open:    open,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Start stops all current cameras and opens every source in sources.
// Sources that fail to open are skipped. It returns how many cameras started.
func (r *Registry) Start(sources map[string]Source) int {
	r.Stop()

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	started := 0
	for _, name := range names {
		if err := r.Add(name, sources[name]); err != nil {
			r.logger.Warning("Camera %s could not be started: %v", name, err)
			continue
		}
		started++
	}

	r.logger.Info("Started %d of %d camera(s)", started, len(sources))
	return started
}

// Add opens src and starts acquiring frames under name.
func (r *Registry) Add(name string, src Source) error {
	r.mu.RLock()
	_, exists := r.entries[name]
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("%s: %w", name, ErrCameraExists)
	}

	capture, err := r.open(src)
	if err != nil {
		r.logger.Warning("Camera %s (%s) could not be opened: %v", name, src, err)
		return fmt.Errorf("failed to open camera %s: %w", name, err)
	}

	e := &entry{
		name:    name,
		source:  src,
		capture: capture,
		state:   StateRunning,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	if _, exists := r.entries[name]; exists {
		r.mu.Unlock()
		capture.Close()
		return fmt.Errorf("%s: %w", name, ErrCameraExists)
	}
	r.entries[name] = e
	r.mu.Unlock()

	go r.acquire(e)

	r.logger.Info("Camera %s started from source %s", name, src)
	return nil
}

// Remove stops the camera, waits for its goroutine and releases the capture handle.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	e, exists := r.entries[name]
	if exists {
		delete(r.entries, name)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%s: %w", name, ErrCameraNotFound)
	}

	e.shutdown()
	r.logger.Info("Camera %s removed", name)
	return nil
}

// Read returns a copy of the latest frame of the named camera.
// ok is false when the camera is unknown, has failed or has not produced a frame yet.
func (r *Registry) Read(name string) (frame *image.RGBA, ok bool) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()
	if !exists {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frame == nil {
		return nil, false
	}
	return cloneRGBA(e.frame), true
}

// Stop tears down every camera.
func (r *Registry) Stop() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	if len(entries) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			e.shutdown()
		}(e)
	}
	wg.Wait()

	r.logger.Info("Stopped %d camera(s)", len(entries))
}

// Status reports the state of one camera.
func (r *Registry) Status(name string) (dto.CameraStatus, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()
	if !exists {
		return dto.CameraStatus{}, fmt.Errorf("%s: %w", name, ErrCameraNotFound)
	}
	return e.status(), nil
}

// List reports every camera, sorted by name.
func (r *Registry) List() []dto.CameraStatus {
	r.mu.RLock()
	statuses := make([]dto.CameraStatus, 0, len(r.entries))
	for _, e := range r.entries {
		statuses = append(statuses, e.status())
	}
	r.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Names returns the registered camera names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered cameras.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// acquire reads frames until stopped or until a read fails.
// A failed read only affects this entry.
func (r *Registry) acquire(e *entry) {
	defer close(e.done)

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		img, err := e.capture.Read()
		if err != nil {
			select {
			case <-e.stop:
				return
			default:
			}
			e.fail(err)
			r.logger.Error("Frame read failed for camera %s, acquisition stopped: %v", e.name, err)
			return
		}

		e.store(img)
	}
}

func (e *entry) store(img image.Image) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	e.mu.Lock()
	e.frame = rgba
	e.frames++
	e.lastFrame = time.Now()
	e.mu.Unlock()
}

func (e *entry) fail(err error) {
	e.mu.Lock()
	e.state = StateFailed
	e.lastErr = err
	e.frame = nil
	e.mu.Unlock()
}

// shutdown must only be called once the entry is out of the registry map.
func (e *entry) shutdown() {
	close(e.stop)
	<-e.done
	e.capture.Close()

	e.mu.Lock()
	if e.state == StateRunning {
		e.state = StateStopped
	}
	e.frame = nil
	e.mu.Unlock()
}

func (e *entry) status() dto.CameraStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := dto.CameraStatus{
		Name:      e.name,
		Source:    e.source.String(),
		State:     string(e.state),
		LastFrame: e.lastFrame,
		Frames:    e.frames,
	}
	if e.lastErr != nil {
		status.LastError = e.lastErr.Error()
	}
	return status
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}
