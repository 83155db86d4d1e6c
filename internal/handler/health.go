package handler

import (
	"net/http"

	"leafdoctor/internal/config"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/service/ai"
)

type healthResponse struct {
	Status        string `json:"status"`
	Model         string `json:"model"`
	Backend       string `json:"backend"`
	DetectorReady bool   `json:"detector_ready"`
	DiseaseTable  string `json:"disease_table"`
}

// HealthHandler reports whether the detector loaded.
func HealthHandler(cfg *config.Config, handle *ai.Handle, tableName string, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}

		ready := handle.Ready()
		resp := healthResponse{
			Status:        "ok",
			Model:         cfg.ModelPath,
			Backend:       handle.Name(),
			DetectorReady: ready,
			DiseaseTable:  tableName,
		}
		if !resp.DetectorReady {
			resp.Status = "degraded"
		}

		respondJSON(w, logger, http.StatusOK, resp)
	}
}
