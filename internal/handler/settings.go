package handler

import (
	"encoding/json"
	"net/http"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/service"
)

// SettingsHandler reads (GET) or replaces (POST) the live analysis settings.
// A rejected update leaves the active settings unchanged.
func SettingsHandler(settings *service.Settings, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, logger, http.StatusOK, dto.SettingsFromConfig(settings.Get()))
		case http.MethodPost:
			var req dto.Settings
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid JSON body", http.StatusBadRequest)
				return
			}
			cfg, err := req.Config(settings.Get().Risk)
			if err == nil {
				err = settings.Update(cfg)
			}
			if err != nil {
				logger.Warning("Rejected settings update: %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Info("Analysis settings updated: grid %dx%d", cfg.Rows, cfg.Cols)
			writeJSON(w, logger, http.StatusOK, dto.SettingsFromConfig(settings.Get()))
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
