package service

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"helmetwatch/internal/config"
	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/service/overlay"
)

var (
	ErrNoCameraSelected = errors.New("no camera selected")
	ErrNoFrame          = errors.New("no frame available")
)

// FrameReader returns a private copy of a camera's latest frame.
type FrameReader interface {
	Read(name string) (*image.RGBA, bool)
}

// Predictor runs object detection on one frame.
type Predictor interface {
	Predict(ctx context.Context, frame image.Image) []dto.Prediction
}

// Sink stores alert frames.
type Sink interface {
	Capture(camera string, frame image.Image, predictions []dto.Prediction) (string, error)
}

type frameTask struct {
	camera string
	frame  *image.RGBA
}

// Monitor polls the selected camera, runs detection and raises alerts.
type Monitor struct {
	cameras    FrameReader
	detector   Predictor
	sink       Sink
	alertClass string
	interval   time.Duration
	logger     *logger.Logger

	mu       sync.RWMutex
	selected string
	latest   *dto.FrameResult

	subMu       sync.Mutex
	subscribers map[<-chan *dto.FrameResult]chan *dto.FrameResult

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a stopped Monitor.
func NewMonitor(cfg *config.Config, logger *logger.Logger, cameras FrameReader, detector Predictor, sink Sink) *Monitor {
	interval := time.Duration(cfg.TickIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}

	return &Monitor{
		cameras:     cameras,
		detector:    detector,
		sink:        sink,
		alertClass:  cfg.AlertClass,
		interval:    interval,
		logger:      logger,
		subscribers: make(map[<-chan *dto.FrameResult]chan *dto.FrameResult),
	}
}

// Select makes name the camera watched on every tick. An empty name clears the selection.
func (m *Monitor) Select(name string) {
	m.mu.Lock()
	m.selected = name
	m.mu.Unlock()
}

// Selected returns the watched camera name.
func (m *Monitor) Selected() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// Latest returns the most recent result, or nil.
func (m *Monitor) Latest() *dto.FrameResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Tick processes the selected camera's latest frame synchronously.
func (m *Monitor) Tick(ctx context.Context) (*dto.FrameResult, error) {
	name := m.Selected()
	if name == "" {
		return nil, ErrNoCameraSelected
	}

	frame, ok := m.cameras.Read(name)
	if !ok {
		return nil, ErrNoFrame
	}

	return m.Process(ctx, name, frame), nil
}

// Process detects objects on frame, draws them in place and captures a
// screenshot at most once when any prediction has the alert class.
func (m *Monitor) Process(ctx context.Context, camera string, frame *image.RGBA) *dto.FrameResult {
	predictions := m.detector.Predict(ctx, frame)
	boxes := overlay.Draw(frame, predictions)

	result := &dto.FrameResult{
		Camera:      camera,
		Timestamp:   time.Now(),
		Frame:       frame,
		Predictions: predictions,
		Boxes:       boxes,
	}

	for _, p := range predictions {
		if p.Is(m.alertClass) {
			result.Alert = true
			break
		}
	}

	if result.Alert {
		path, err := m.sink.Capture(camera, frame, predictions)
		if err != nil {
			m.logger.Error("Screenshot for camera %s failed: %v", camera, err)
		} else {
			result.ScreenshotPath = path
			m.logger.Info("%s detected on camera %s, screenshot saved to %s", m.alertClass, camera, path)
		}
	}

	m.mu.Lock()
	m.latest = result
	m.mu.Unlock()

	m.publish(result)
	return result
}

// Start runs the ticker and the detection worker until Stop or ctx is done.
// Calling Start on a running Monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	tasks := make(chan frameTask, 1)
	// one token, held by whoever owns the next detection
	idle := make(chan struct{}, 1)
	idle <- struct{}{}

	m.wg.Add(2)
	go m.tickLoop(ctx, tasks, idle)
	go m.detectionWorker(ctx, tasks, idle)

	m.logger.Info("Monitor started, ticking every %s", m.interval)
}

// Stop halts the ticker and waits for the in-flight detection to finish.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel == nil {
		return
	}

	m.cancel()
	m.wg.Wait()
	m.cancel = nil

	m.logger.Info("Monitor stopped")
}

// Running reports whether the ticker is active.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.cancel != nil
}

// tickLoop hands the selected frame to the worker. Ticks that fire while the
// worker is busy are skipped before any frame is read.
func (m *Monitor) tickLoop(ctx context.Context, tasks chan<- frameTask, idle chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		select {
		case <-idle:
		default:
			continue
		}

		name := m.Selected()
		if name == "" {
			idle <- struct{}{}
			continue
		}
		frame, ok := m.cameras.Read(name)
		if !ok {
			idle <- struct{}{}
			continue
		}

		tasks <- frameTask{camera: name, frame: frame}
	}
}

func (m *Monitor) detectionWorker(ctx context.Context, tasks <-chan frameTask, idle chan<- struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-tasks:
			m.Process(ctx, task.camera, task.frame)
			idle <- struct{}{}
		}
	}
}

// Subscribe returns a channel receiving every new result. Slow readers only see the newest one.
func (m *Monitor) Subscribe() <-chan *dto.FrameResult {
	ch := make(chan *dto.FrameResult, 1)

	m.subMu.Lock()
	m.subscribers[ch] = ch
	m.subMu.Unlock()
	return ch
}

// Unsubscribe closes a channel returned by Subscribe.
func (m *Monitor) Unsubscribe(ch <-chan *dto.FrameResult) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if c, ok := m.subscribers[ch]; ok {
		delete(m.subscribers, ch)
		close(c)
	}
}

func (m *Monitor) publish(result *dto.FrameResult) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subscribers {
		select {
		case ch <- result:
			continue
		default:
		}
		// replace the stale result
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- result:
		default:
		}
	}
}
