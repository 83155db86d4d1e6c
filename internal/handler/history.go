package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/repository"
)

const (
	// DefaultPageSize is used when the request has no valid "limit".
	DefaultPageSize = 24
	// MaxPageSize caps the "limit" query parameter.
	MaxPageSize = 200
	// MaxPage keeps the row offset within an int.
	MaxPage = math.MaxInt / MaxPageSize
)

// GetPredictionsHandler returns a filtered, paginated page of the prediction history.
func GetPredictionsHandler(repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), DefaultPageSize)
		if limit > MaxPageSize {
			limit = MaxPageSize
		}
		if page > MaxPage {
			respondError(w, logger, http.StatusBadRequest, "page out of range")
			return
		}

		filter := &dto.PredictionFilters{
			Disease: q.Get("disease"),
			Source:  q.Get("source"),
			After:   parseDate(q.Get("after"), false),
			Before:  parseDate(q.Get("before"), true),
			Limit:   limit,
			Offset:  (page - 1) * limit,
		}

		predictions, err := repo.GetAll(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying predictions from database: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}

		totalCount, err := repo.GetTotalCount(r.Context(), filter)
		if err != nil {
			logger.Error("Error counting predictions: %v", err)
			totalCount = len(predictions)
		}

		respondJSON(w, logger, http.StatusOK, dto.PredictionsData{
			Predictions: predictions,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// GetPredictionHandler returns one prediction with its detections (?id=).
func GetPredictionHandler(repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			respondError(w, logger, http.StatusBadRequest, "invalid id")
			return
		}

		rec, err := repo.GetByID(r.Context(), id)
		if err != nil {
			logger.Error("Error reading prediction %d: %v", id, err)
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		if rec == nil {
			respondError(w, logger, http.StatusNotFound, "prediction not found")
			return
		}

		respondJSON(w, logger, http.StatusOK, rec)
	}
}

// GetPredictionStatsHandler returns totals per disease and per source.
func GetPredictionStatsHandler(repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}

		stats, err := repo.GetStats(r.Context())
		if err != nil {
			logger.Error("Error computing prediction stats: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}

		respondJSON(w, logger, http.StatusOK, stats)
	}
}

// ClearPredictionsHandler deletes the whole prediction history.
func ClearPredictionsHandler(repo repository.PredictionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodPost) {
			return
		}

		if err := repo.DeleteAll(r.Context()); err != nil {
			logger.Error("Error clearing prediction history: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}

		logger.Info("Prediction history cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate accepts RFC 3339 timestamps or "2006-01-02" dates. A bare date used
// as an upper bound covers the whole day.
func parseDate(v string, endOfDay bool) time.Time {
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	if endOfDay {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
