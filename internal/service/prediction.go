package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/model"
	"leafdoctor/internal/service/ai"
	"leafdoctor/internal/service/diagnosis"
	"leafdoctor/internal/service/intake"
)

// Recorder stores served predictions. Implementations must not block for long.
type Recorder interface {
	Record(rec *model.PredictionRecord)
}

// Broadcaster pushes served predictions to live viewers.
type Broadcaster interface {
	BroadcastPrediction(event dto.PredictionEvent)
}

// PredictionService turns one image payload into one diagnosis.
type PredictionService struct {
	table       *diagnosis.Table
	detector    ai.Detector
	recorder    Recorder
	broadcaster Broadcaster
	logger      *logger.Logger
	maxPixels   int64
	now         func() time.Time
}

// NewPredictionService creates the service. recorder and broadcaster may be nil.
func NewPredictionService(table *diagnosis.Table, detector ai.Detector, recorder Recorder,
	broadcaster Broadcaster, logger *logger.Logger) *PredictionService {
	return &PredictionService{
		table:       table,
		detector:    detector,
		recorder:    recorder,
		broadcaster: broadcaster,
		logger:      logger,
		maxPixels:   intake.DefaultMaxPixels,
		now:         time.Now,
	}
}

// Table returns the disease table used for lookups.
func (s *PredictionService) Table() *diagnosis.Table {
	return s.table
}

// SetMaxImagePixels changes the decoded size limit. Values <= 0 keep the current limit.
func (s *PredictionService) SetMaxImagePixels(n int64) {
	if n > 0 {
		s.maxPixels = n
	}
}

// Predict decodes the payload, runs the detector once and resolves the best
// detection against the disease table. Decode failures wrap
// intake.ErrUnreadableImage; detector failures are returned unchanged.
func (s *PredictionService) Predict(ctx context.Context, payload *intake.Payload) (model.PredictionResult, error) {
	img, err := payload.DecodeLimited(s.maxPixels)
	if err != nil {
		return model.PredictionResult{}, err
	}

	start := s.now()
	detections, err := s.detector.Detect(ctx, img)
	if err != nil {
		s.logger.Error("Inference failed (%s): %v", payload.Source, err)
		return model.PredictionResult{}, err
	}

	diag := s.table.Diagnose(detections)
	result := diag.Result()

	bounds := img.Bounds()
	s.logger.Info("Prediction (%s %q, %dx%d, %d detections, %v): %s %s",
		payload.Source, payload.Filename, bounds.Dx(), bounds.Dy(), len(detections), s.now().Sub(start).Round(time.Millisecond),
		result.DiseaseName, result.Confidence)

	rec := &model.PredictionRecord{
		RequestID:       uuid.NewString(),
		Source:          payload.Source,
		ClassIndex:      diag.ClassIndex,
		DiseaseID:       result.DiseaseID,
		DiseaseName:     result.DiseaseName,
		Confidence:      diag.Confidence,
		ConfidenceLabel: result.Confidence,
		ImageWidth:      bounds.Dx(),
		ImageHeight:     bounds.Dy(),
		DetectionCount:  len(detections),
		CreatedAt:       s.now().UTC(),
		Detections:      detections,
	}

	if s.recorder != nil {
		s.recorder.Record(rec)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPrediction(dto.PredictionEvent{
			RequestID:  rec.RequestID,
			Source:     rec.Source,
			Prediction: result,
			CreatedAt:  rec.CreatedAt,
		})
	}

	return result, nil
}
