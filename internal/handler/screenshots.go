package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"helmetwatch/internal/config"
	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/repository"
)

// FolderOpener opens the screenshot directory on the host.
type FolderOpener interface {
	OpenFolder() error
}

// GetScreenshotsHandler returns a filtered, paginated list of screenshots from the index.
func GetScreenshotsHandler(cfg *config.Config, logger *logger.Logger,
	shotRepo repository.ScreenshotRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.ScreenshotFilters{
			Camera:     q.Get("camera"),
			Class:      q.Get("class"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			TimeAfter:  parseTimeOfDay(q.Get("timeAfter")),
			TimeBefore: parseTimeOfDay(q.Get("timeBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		shots, err := shotRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying screenshots from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := shotRepo.GetTotalSize()
		if err != nil {
			logger.Error("Error getting screenshot directory size: %v", err)
			totalSize = 0
		}

		totalCount, err := shotRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting screenshots: %v", err)
			totalCount = len(shots)
		}

		screenshots := make([]dto.ScreenshotInfo, 0, len(shots))
		for _, shot := range shots {
			classes := []string{}
			if detectionRepo != nil {
				found, err := detectionRepo.GetClassesByScreenshotID(shot.ID)
				if err != nil {
					logger.Error("Error getting classes for screenshot %d: %v", shot.ID, err)
				} else if found != nil {
					classes = found
				}
			}

			screenshots = append(screenshots, dto.ScreenshotInfo{
				Name:      shot.Filename,
				Date:      shot.Timestamp,
				TimeOfDay: shot.Timestamp,
				Camera:    shot.Camera,
				Classes:   classes,
			})
		}

		writeJSON(w, logger, http.StatusOK, dto.ScreenshotsData{
			Screenshots:   screenshots,
			ScreenshotDir: cfg.ScreenshotDirectory,
			Size:          totalSize,
			Length:        totalCount,
			TotalPages:    (totalCount + limit - 1) / limit,
			CurrentPage:   page,
			Limit:         limit,
		})
	}
}

// ScreenshotStatsHandler returns totals per camera and per detected class.
func ScreenshotStatsHandler(logger *logger.Logger, shotRepo repository.ScreenshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := shotRepo.GetStats()
		if err != nil {
			logger.Error("Error getting screenshot stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, stats)
	}
}

// ViewScreenshotHandler serves a single screenshot specified via the "image" query parameter.
func ViewScreenshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		if !isValidFilename(image) {
			http.Error(w, "Invalid image name", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.ScreenshotDirectory, image))
	}
}

// DeleteScreenshotHandler removes a screenshot from disk and from the index.
func DeleteScreenshotHandler(cfg *config.Config, logger *logger.Logger, shotRepo repository.ScreenshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		if filename == "" {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}
		if !isValidFilename(filename) {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(cfg.ScreenshotDirectory, filename)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}

		if shotRepo != nil {
			if err := shotRepo.DeleteByFilename(filename); err != nil {
				logger.Error("Failed to delete from database: %v", err)
			}
		}

		logger.Info("Deleted screenshot: %s", filename)
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "filename": filename})
	}
}

// ClearScreenshotsHandler deletes every file in the screenshot directory and empties the index.
func ClearScreenshotsHandler(cfg *config.Config, logger *logger.Logger, shotRepo repository.ScreenshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := os.ReadDir(cfg.ScreenshotDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading screenshot directory: %v", err)
			http.Error(w, "Unable to read screenshot directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if !file.IsDir() {
				filePath := filepath.Join(cfg.ScreenshotDirectory, file.Name())
				if err := os.Remove(filePath); err != nil {
					logger.Error("Error deleting file %s: %v", file.Name(), err)
				}
			}
		}

		if shotRepo != nil {
			if err := shotRepo.DeleteAll(); err != nil {
				logger.Error("Error clearing database: %v", err)
			}
		}

		logger.Info("All screenshots cleared from directory: %s", cfg.ScreenshotDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// OpenFolderHandler opens the screenshot directory in the host's file browser.
func OpenFolderHandler(opener FolderOpener, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := opener.OpenFolder(); err != nil {
			logger.Error("Failed to open screenshot folder: %v", err)
			writeError(w, logger, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
