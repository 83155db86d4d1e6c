package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"leafdoctor/internal/api/telegram"
	"leafdoctor/internal/config"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/repository"
	"leafdoctor/internal/repository/sqldb"
	"leafdoctor/internal/route"
	"leafdoctor/internal/service"
	"leafdoctor/internal/service/ai"
	"leafdoctor/internal/service/ai/gocvnet"
	"leafdoctor/internal/service/ai/onnxnet"
	"leafdoctor/internal/service/diagnosis"
	"leafdoctor/internal/service/intake"
	"leafdoctor/internal/service/storage"
	hub "leafdoctor/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

// DBDriverNone disables the prediction history.
const DBDriverNone = "none"

type App struct {
	config      *config.Config
	logger      *logger.Logger
	handle      *ai.Handle
	db          *sqldb.DB
	repo        repository.PredictionRepository
	buffer      *storage.BufferService
	hubService  *hub.HubService
	predictions *service.PredictionService
	intake      *intake.Intake
	bot         *telegram.Bot
}

// NewApp wires every component from the environment configuration. The
// detector is loaded here, once; a failed load is logged and /predict answers 500.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	table, err := diagnosis.LoadTable(cfg.DiseaseTable)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to load disease table: %w", err)
	}

	if err := os.MkdirAll(cfg.TempDirectory, 0700); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	a := &App{
		config:     cfg,
		logger:     log,
		hubService: hub.NewHubService(log),
		intake:     intake.New(cfg.TempDirectory, log),
	}

	a.handle = NewDetectorHandle(context.Background(), cfg, log)
	if _, err := a.handle.Get(); err != nil {
		log.Error("Detector unavailable: %v", err)
	}

	var recorder service.Recorder
	if cfg.DBDriver != DBDriverNone {
		db, err := sqldb.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			a.handle.Close()
			log.Close()
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		a.db = db
		a.repo = sqldb.NewPredictionRepository(db)
		a.buffer = storage.NewBufferService(a.repo, log)
		recorder = a.buffer
	}

	a.predictions = service.NewPredictionService(table, a.handle, recorder, a.hubService, log)
	a.predictions.SetMaxImagePixels(cfg.MaxImagePixels)

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, a.predictions, cfg.MaxUploadSize, log)
		if err != nil {
			log.Error("Telegram bot disabled: %v", err)
		} else {
			a.bot = bot
		}
	}

	return a, nil
}

// NewDetectorHandle builds the load-once handle for the configured backend.
// Resolving the model artifact happens inside the loader.
func NewDetectorHandle(ctx context.Context, cfg *config.Config, log *logger.Logger) *ai.Handle {
	opts := ai.Options{
		InputSize:     cfg.ModelInputSize,
		ConfThreshold: cfg.ConfThreshold,
		IoUThreshold:  cfg.IoUThreshold,
	}.Normalize()

	return ai.NewHandle(func() (ai.Detector, error) {
		resolver := ai.NewArtifactResolver(cfg.ModelPath, cfg.ModelURL, cfg.ModelDownloadRetries, log)
		modelPath, err := resolver.Resolve(ctx)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		var detector ai.Detector
		switch cfg.DetectorBackend {
		case ai.BackendONNX:
			detector, err = onnxnet.New(modelPath, cfg.OnnxRuntimeLib, opts)
		case ai.BackendGoCV:
			detector, err = gocvnet.New(modelPath, opts)
		default:
			err = fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
		}
		if err != nil {
			return nil, err
		}

		log.Info("Detector %s loaded from %s in %v", detector.Name(), modelPath, time.Since(start).Round(time.Millisecond))
		return detector, nil
	})
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts every component down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	start := func(run func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run()
		}()
	}

	// Start background services
	start(func() { a.hubService.Run(ctx) })
	if a.buffer != nil {
		start(func() { a.buffer.Run(ctx, storage.HistoryFlushInterval) })
	}
	if a.bot != nil {
		start(func() { a.bot.Run(ctx) })
	}

	router := route.SetupRoutes(route.Dependencies{
		Config:      a.config,
		Logger:      a.logger,
		Predictions: a.predictions,
		Intake:      a.intake,
		Handle:      a.handle,
		Repo:        a.repo,
		Hub:         a.hubService,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("🌿 Leaf disease service")
	a.logger.Info("📍 URL: http://localhost:%d/predict", a.config.Port)
	a.logger.Info("🤖 Model: %s (%s)", a.config.ModelPath, a.handle.Name())
	a.logger.Info("📋 Disease table: %s (%d classes)", a.predictions.Table().Name(), a.predictions.Table().Len())
	if a.repo != nil {
		a.logger.Info("🗄️  History: %s", a.config.DBDriver)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		stop()
	case <-ctx.Done():
		a.logger.Info("🛑 Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown: %v", err)
	}

	wg.Wait()
	a.Close()
	return serveErr
}

// Close releases the detector, database and log files.
func (a *App) Close() {
	if err := a.handle.Close(); err != nil {
		a.logger.Error("Failed to close detector: %v", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database: %v", err)
		}
	}
	a.logger.Close()
}
