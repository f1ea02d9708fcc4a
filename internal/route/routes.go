package route

import (
	"net/http"
	"os"
	"path/filepath"

	"crowdwatch/internal/config"
	"crowdwatch/internal/handler"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/middleware"
	"crowdwatch/internal/repository"
	"crowdwatch/internal/service"
	"crowdwatch/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving and API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, hub *websocket.HubService, cfg *config.Config, log *logger.Logger,
	recordRepo repository.RecordRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// Camera ingest
	mux.HandleFunc("/camera", handler.CameraWebsocketHandler(manager, log))

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, log))
	mux.HandleFunc("/api/cameras", handler.CamerasHandler(manager, log))
	mux.HandleFunc("/api/records", handler.GetRecordsHandler(recordRepo, log))
	mux.HandleFunc("/api/records/export", handler.ExportRecordsHandler(recordRepo, log))
	mux.HandleFunc("/api/records/stats", handler.RecordStatsHandler(recordRepo, log))
	mux.HandleFunc("/api/records/clear", handler.ClearRecordsHandler(recordRepo, log))
	mux.HandleFunc("/api/settings", handler.SettingsHandler(manager.Settings(), log))

	// Log endpoints
	for name, file := range map[string]string{
		"info":    logger.InfoFile,
		"warning": logger.WarningFile,
		"error":   logger.ErrorFile,
	} {
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
