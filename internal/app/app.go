package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crowdwatch/internal/config"
	"crowdwatch/internal/handler"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/repository/sqlite"
	"crowdwatch/internal/route"
	"crowdwatch/internal/service"
	"crowdwatch/internal/service/ai"
	"crowdwatch/internal/service/storage"
	"crowdwatch/internal/service/video"
	"crowdwatch/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	recordRepo    *sqlite.RecordRepository
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	manager       *service.Manager
	demo          *video.FileSource
}

// NewApp opens the database, loads one detector per worker and wires the services.
func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	analysisCfg, err := cfg.Analysis()
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("invalid analysis settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Close()
		return nil, err
	}
	recordRepo := sqlite.NewRecordRepository(db)

	detectors := make([]service.Detector, 0, cfg.ProcessingWorkers)
	for i := 0; i < cfg.ProcessingWorkers; i++ {
		// Each worker loads its own copy of the network.
		d, err := ai.NewPersonDetector(cfg, log)
		if err != nil {
			for _, loaded := range detectors {
				loaded.Close()
			}
			db.Close()
			log.Close()
			return nil, fmt.Errorf("failed to load detector %d: %w", i, err)
		}
		detectors = append(detectors, d)
	}

	buffer := storage.NewBufferService(cfg, log, recordRepo)
	hub := websocket.NewHubService(log)
	mng := service.NewManager(detectors, buffer, hub, service.NewSettings(analysisCfg), cfg, log)

	a := &App{
		config:        cfg,
		logger:        log,
		db:            db,
		recordRepo:    recordRepo,
		bufferService: buffer,
		hubService:    hub,
		manager:       mng,
	}
	if cfg.DemoVideo != "" {
		a.demo = video.NewFileSource(cfg.DemoVideo, cfg.DemoCamera, cfg.DemoLoop, log)
	}
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down in order:
// HTTP server, processing workers, record buffer, database and logs.
func (a *App) Run(ctx context.Context) error {
	ctx, stopIngest := context.WithCancel(ctx)
	defer stopIngest()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.bufferService.Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		a.hubService.Run(bgCtx)
	}()

	go func() {
		if err := handler.UDPCameraHandler(ctx, a.manager, a.logger, a.config); err != nil {
			a.logger.Error("UDP camera handler failed: %v", err)
		}
	}()

	if a.demo != nil {
		go func() {
			if err := a.demo.Run(ctx, a.manager); err != nil {
				a.logger.Error("Demo video stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: route.SetupRoutes(a.manager, a.hubService, a.config, a.logger, a.recordRepo),
	}

	a.logger.Info("🚀 Crowd Density Server")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("🤖 AI Model: %s", a.config.ModelPath)
	a.logger.Info("🗄️ Database: %s", a.config.DBPath)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down...")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	stopIngest()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown: %v", err)
	}

	a.manager.Stop()
	stopBackground()
	wg.Wait()

	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Info("Server stopped")
	a.logger.Close()
	return runErr
}
