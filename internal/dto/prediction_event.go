package dto

import (
	"time"

	"leafdoctor/internal/model"
)

// PredictionEvent is pushed to live viewers after every prediction.
type PredictionEvent struct {
	RequestID  string                 `json:"request_id"`
	Source     string                 `json:"source"`
	Prediction model.PredictionResult `json:"prediction"`
	CreatedAt  time.Time              `json:"created_at"`
}
