package handler

import (
	"errors"
	"net/http"

	"leafdoctor/internal/logger"
	"leafdoctor/internal/service"
	"leafdoctor/internal/service/intake"
)

// inputErrors are reported as 400 with their own message, without wrapped detail.
var inputErrors = []error{intake.ErrNoImage, intake.ErrInvalidFilename, intake.ErrUnreadableImage}

// PredictHandler accepts a leaf image (multipart "file" or JSON "image") and
// responds with the diagnosed disease and its treatment.
func PredictHandler(predictions *service.PredictionService, in *intake.Intake, maxUploadSize int64,
	logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodPost) {
			return
		}

		if maxUploadSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		}

		payload, err := in.Extract(r)
		if err != nil {
			writePredictError(w, logger, err)
			return
		}
		defer payload.Release()

		result, err := predictions.Predict(r.Context(), payload)
		if err != nil {
			writePredictError(w, logger, err)
			return
		}

		respondJSON(w, logger, http.StatusOK, result)
	}
}

func writePredictError(w http.ResponseWriter, logger *logger.Logger, err error) {
	for _, inputErr := range inputErrors {
		if errors.Is(err, inputErr) {
			logger.Warning("Rejected prediction request: %v", err)
			respondError(w, logger, http.StatusBadRequest, inputErr.Error())
			return
		}
	}

	logger.Error("Prediction failed: %v", err)
	respondError(w, logger, http.StatusInternalServerError, err.Error())
}
