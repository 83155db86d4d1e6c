package model

import "time"

// Sources a prediction can come from.
const (
	SourceMultipart = "multipart"
	SourceJSON      = "json"
	SourceTelegram  = "telegram"
	SourceBatch     = "batch"
)

// NoClass marks a prediction made without any detection.
const NoClass = -1

// PredictionResult is the response payload of /predict.
type PredictionResult struct {
	DiseaseID   int    `json:"disease_id"`
	DiseaseName string `json:"disease_name"`
	Confidence  string `json:"confidence"`
	Treatment   string `json:"treatment"`
}

// PredictionRecord represents a stored prediction.
type PredictionRecord struct {
	ID              int64       `json:"id" db:"id"`
	RequestID       string      `json:"request_id" db:"request_id"`
	Source          string      `json:"source" db:"source"`
	ClassIndex      int         `json:"class_index" db:"class_index"`
	DiseaseID       int         `json:"disease_id" db:"disease_id"`
	DiseaseName     string      `json:"disease_name" db:"disease_name"`
	Confidence      float64     `json:"confidence" db:"confidence"`
	ConfidenceLabel string      `json:"confidence_label" db:"confidence_label"`
	ImageWidth      int         `json:"image_width" db:"image_width"`
	ImageHeight     int         `json:"image_height" db:"image_height"`
	DetectionCount  int         `json:"detection_count" db:"detection_count"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	Detections      []Detection `json:"detections,omitempty" db:"-"`
}

// PredictionStats contains statistics about stored predictions.
type PredictionStats struct {
	TotalPredictions int            `json:"total_predictions"`
	PerDisease       map[string]int `json:"per_disease"`
	PerSource        map[string]int `json:"per_source"`
}
