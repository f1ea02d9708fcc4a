package handler

import (
	"net/http"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
)

// CameraLister reports the latest state of every known camera.
type CameraLister interface {
	Cameras() []dto.CameraStatus
}

// CamerasHandler lists cameras with their latest analysis result.
func CamerasHandler(cameras CameraLister, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := cameras.Cameras()
		if status == nil {
			status = []dto.CameraStatus{}
		}
		writeJSON(w, logger, http.StatusOK, status)
	}
}
