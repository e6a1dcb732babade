package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"helmetwatch/internal/config"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/repository/sqlite"
	"helmetwatch/internal/routes"
	"helmetwatch/internal/service"
	"helmetwatch/internal/service/ai"
	"helmetwatch/internal/service/camera"
	"helmetwatch/internal/service/camera/opencv"
	"helmetwatch/internal/service/storage"
	"helmetwatch/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

// App holds the monitoring core shared by the web and desktop shells.
type App struct {
	config      *config.Config
	logger      *logger.Logger
	db          *sqlite.DB
	shotRepo    *sqlite.ScreenshotRepository
	detRepo     *sqlite.DetectionRepository
	detector    *ai.DetectorService
	screenshots *storage.ScreenshotService
	registry    *camera.Registry
	monitor     *service.Monitor
	cameras     *service.CameraService
	hub         *websocket.HubService
}

// New wires every service from cfg. Cameras are opened through OpenCV.
func New(cfg *config.Config) (*App, error) {
	return NewWithOpener(cfg, opencv.Open)
}

// NewWithOpener is New with a custom capture backend.
func NewWithOpener(cfg *config.Config, open camera.Opener) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shotRepo := sqlite.NewScreenshotRepository(db)
	detRepo := sqlite.NewDetectionRepository(db)

	detector, err := ai.NewDetectorService(ai.OptionsFromConfig(cfg), log)
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}
	if cfg.DetectionAPIKey == "" {
		log.Warning("ROBOFLOW_API_KEY is not set, detection requests will be rejected")
	}

	screenshots := storage.NewScreenshotService(cfg, log, shotRepo, detRepo)
	registry := camera.NewRegistry(open, log)
	monitor := service.NewMonitor(cfg, log, registry, detector, screenshots)

	return &App{
		config:      cfg,
		logger:      log,
		db:          db,
		shotRepo:    shotRepo,
		detRepo:     detRepo,
		detector:    detector,
		screenshots: screenshots,
		registry:    registry,
		monitor:     monitor,
		cameras:     service.NewCameraService(cfg, log, registry, monitor),
		hub:         websocket.NewHubService(log),
	}, nil
}

func (a *App) Config() *config.Config                  { return a.config }
func (a *App) Logger() *logger.Logger                  { return a.logger }
func (a *App) Monitor() *service.Monitor               { return a.monitor }
func (a *App) Cameras() *service.CameraService         { return a.cameras }
func (a *App) Screenshots() *storage.ScreenshotService { return a.screenshots }

// Handler returns the web shell's routes.
func (a *App) Handler(ctx context.Context) http.Handler {
	return routes.SetupRoutes(ctx, a.config, a.logger, a.cameras, a.hub, a.screenshots, a.shotRepo, a.detRepo)
}

// Run serves the web shell until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)

	results := a.monitor.Subscribe()
	defer a.monitor.Unsubscribe(results)
	go a.hub.Forward(ctx, results)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: a.Handler(ctx),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	a.logger.Info("Helmet Watch listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Screenshots: %s, database: %s", a.config.ScreenshotDirectory, a.config.DatabasePath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("Server shutdown: %v", err)
	}
	return nil
}

// Close stops cameras and releases the database and log files.
func (a *App) Close() error {
	a.cameras.StopAll()

	err := a.db.Close()
	if closeErr := a.logger.Close(); err == nil {
		err = closeErr
	}
	return err
}
