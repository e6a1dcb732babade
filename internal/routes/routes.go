package routes

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"helmetwatch/internal/config"
	"helmetwatch/internal/handler"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/middleware"
	"helmetwatch/internal/repository"
	"helmetwatch/internal/service"
	"helmetwatch/internal/service/storage"
	"helmetwatch/internal/service/websocket"

	"github.com/gorilla/mux"
)

// StaticDir holds the web pages and assets.
const StaticDir = "static"

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(StaticDir, filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers static file serving, API endpoints and wraps the
// router with the authentication middleware.
func SetupRoutes(ctx context.Context, cfg *config.Config, logger *logger.Logger,
	cameras *service.CameraService, hub *websocket.HubService, screenshots *storage.ScreenshotService,
	shotRepo repository.ScreenshotRepository, detectionRepo repository.DetectionRepository) http.Handler {
	r := mux.NewRouter()
	sessions := middleware.NewSessions(middleware.SessionTTL)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDir))))

	api := r.PathPrefix("/api").Subrouter()

	// Cameras
	api.HandleFunc("/cameras", handler.ListCamerasHandler(cameras, logger)).Methods(http.MethodGet)
	api.HandleFunc("/cameras", handler.AddCameraHandler(cameras, logger)).Methods(http.MethodPost)
	api.HandleFunc("/cameras/start", handler.StartCamerasHandler(ctx, cameras, logger)).Methods(http.MethodPost)
	api.HandleFunc("/cameras/stop", handler.StopCamerasHandler(cameras, logger)).Methods(http.MethodPost)
	api.HandleFunc("/cameras/{name}", handler.EditCameraHandler(cameras, logger)).Methods(http.MethodPut)
	api.HandleFunc("/cameras/{name}", handler.DeleteCameraHandler(cameras, logger)).Methods(http.MethodDelete)
	api.HandleFunc("/cameras/{name}/select", handler.SelectCameraHandler(cameras, logger)).Methods(http.MethodPost)

	// Live view
	api.HandleFunc("/view", handler.ViewWebsocketHandler(hub, logger))

	// Screenshots
	api.HandleFunc("/screenshots", handler.GetScreenshotsHandler(cfg, logger, shotRepo, detectionRepo)).Methods(http.MethodGet)
	api.HandleFunc("/screenshots/view", handler.ViewScreenshotHandler(cfg)).Methods(http.MethodGet)
	api.HandleFunc("/screenshots/delete", handler.DeleteScreenshotHandler(cfg, logger, shotRepo)).Methods(http.MethodDelete)
	api.HandleFunc("/screenshots/clear", handler.ClearScreenshotsHandler(cfg, logger, shotRepo)).Methods(http.MethodDelete)
	api.HandleFunc("/screenshots/stats", handler.ScreenshotStatsHandler(logger, shotRepo)).Methods(http.MethodGet)
	api.HandleFunc("/screenshots/open-folder", handler.OpenFolderHandler(screenshots, logger)).Methods(http.MethodPost)

	// Logs
	r.HandleFunc("/logs/{level}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	// Auth
	r.HandleFunc("/auth/login", handler.LoginHandler(cfg, sessions, logger)).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", handler.LogoutHandler(sessions)).Methods(http.MethodGet)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	r.PathPrefix("/").HandlerFunc(dynamicHTMLHandler)

	return middleware.AuthMiddleware(sessions, r)
}
