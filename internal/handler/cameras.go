package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/service"
	"helmetwatch/internal/service/camera"

	"github.com/gorilla/mux"
)

// cameraErrorStatus maps camera errors onto HTTP status codes.
func cameraErrorStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrCameraNotFound):
		return http.StatusNotFound
	case errors.Is(err, camera.ErrCameraExists):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// ListCamerasHandler returns every configured camera with its live state.
func ListCamerasHandler(cameras *service.CameraService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"cameras": cameras.List(),
			"running": cameras.Running(),
		})
	}
}

// AddCameraHandler adds a camera from a {"name","source"} body.
func AddCameraHandler(cameras *service.CameraService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CameraRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := cameras.Add(req.Name, req.Source); err != nil {
			logger.Warning("Failed to add camera %s: %v", req.Name, err)
			writeError(w, logger, cameraErrorStatus(err), err.Error())
			return
		}
		writeJSON(w, logger, http.StatusCreated, req)
	}
}

// EditCameraHandler renames a camera and/or changes its source.
func EditCameraHandler(cameras *service.CameraService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]

		var req dto.CameraRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := cameras.Edit(name, req.Name, req.Source); err != nil {
			logger.Warning("Failed to edit camera %s: %v", name, err)
			writeError(w, logger, cameraErrorStatus(err), err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, req)
	}
}

// DeleteCameraHandler removes a camera.
func DeleteCameraHandler(cameras *service.CameraService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if err := cameras.Remove(name); err != nil {
			writeError(w, logger, cameraErrorStatus(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SelectCameraHandler makes a camera the monitored one.
func SelectCameraHandler(cameras *service.CameraService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if err := cameras.Select(name); err != nil {
			writeError(w, logger, cameraErrorStatus(err), err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"selected": name})
	}
}

// StartCamerasHandler opens every configured camera and starts monitoring.
// Monitoring runs under ctx, not the request context.
func StartCamerasHandler(ctx context.Context, cameras *service.CameraService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started, err := cameras.StartAll(ctx)
		if err != nil {
			writeError(w, logger, cameraErrorStatus(err), err.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{
			"started": started,
			"cameras": cameras.List(),
		})
	}
}

// StopCamerasHandler stops monitoring and closes every camera.
func StopCamerasHandler(cameras *service.CameraService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameras.StopAll()
		writeJSON(w, logger, http.StatusOK, map[string]interface{}{"cameras": cameras.List()})
	}
}
