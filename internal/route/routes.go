package route

import (
	"net/http"

	"leafdoctor/internal/config"
	"leafdoctor/internal/handler"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/middleware"
	"leafdoctor/internal/repository"
	"leafdoctor/internal/service"
	"leafdoctor/internal/service/ai"
	"leafdoctor/internal/service/intake"
	hub "leafdoctor/internal/service/websocket"
)

// Dependencies groups everything the HTTP layer needs. Repo and Hub may be nil.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Predictions *service.PredictionService
	Intake      *intake.Intake
	Handle      *ai.Handle
	Repo        repository.PredictionRepository
	Hub         *hub.HubService
}

// SetupRoutes registers the prediction endpoint, history API, live feed and
// log endpoints, and wraps the mux with request logging.
func SetupRoutes(deps Dependencies) http.Handler {
	levels := []string{logger.LevelInfo, logger.LevelWarning, logger.LevelError}
	mux := http.NewServeMux()
	cfg := deps.Config
	logger := deps.Logger
	admin := func(h http.Handler) http.Handler { return middleware.AdminOnly(cfg.AdminToken, h) }

	// Prediction
	mux.HandleFunc("/predict", handler.PredictHandler(deps.Predictions, deps.Intake, cfg.MaxUploadSize, logger))
	mux.HandleFunc("/health", handler.HealthHandler(cfg, deps.Handle, deps.Predictions.Table().Name(), logger))

	// History endpoints
	if deps.Repo != nil {
		mux.HandleFunc("/api/predictions", handler.GetPredictionsHandler(deps.Repo, logger))
		mux.HandleFunc("/api/predictions/view", handler.GetPredictionHandler(deps.Repo, logger))
		mux.HandleFunc("/api/predictions/stats", handler.GetPredictionStatsHandler(deps.Repo, logger))
		mux.Handle("/api/predictions/clear", admin(handler.ClearPredictionsHandler(deps.Repo, logger)))
	}

	// Live feed
	if deps.Hub != nil {
		mux.HandleFunc("/api/live", handler.LiveWebsocketHandler(deps.Hub, logger))
	}

	// Log endpoints
	for _, level := range levels {
		mux.Handle("/logs/"+level, admin(handler.ShowLogsHandler(logger, level)))
		mux.Handle("/logs/"+level+"/clear", admin(handler.ClearLogsHandler(logger, level)))
	}

	return middleware.RequestLogger(logger, mux)
}
