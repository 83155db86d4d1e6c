package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/model"
	"leafdoctor/internal/service/diagnosis"
	"leafdoctor/internal/service/intake"
)

type fakeDetector struct {
	detections []model.Detection
	err        error
	calls      int
}

func (f *fakeDetector) Detect(context.Context, image.Image) ([]model.Detection, error) {
	f.calls++
	return f.detections, f.err
}

func (f *fakeDetector) Name() string { return "fake" }
func (f *fakeDetector) Close() error { return nil }

type captureRecorder struct {
	records []*model.PredictionRecord
}

func (c *captureRecorder) Record(rec *model.PredictionRecord) {
	c.records = append(c.records, rec)
}

type captureBroadcaster struct {
	events []dto.PredictionEvent
}

func (c *captureBroadcaster) BroadcastPrediction(event dto.PredictionEvent) {
	c.events = append(c.events, event)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 160, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPredictionService_BestDetection(t *testing.T) {
	detector := &fakeDetector{detections: []model.Detection{
		{ClassIndex: 2, Confidence: 0.41},
		{ClassIndex: 1, Confidence: 0.8734},
		{ClassIndex: 4, Confidence: 0.12},
	}}
	recorder := &captureRecorder{}
	broadcaster := &captureBroadcaster{}
	svc := NewPredictionService(diagnosis.Extended(), detector, recorder, broadcaster, logger.NewDiscard())

	result, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, pngBytes(t, 32, 24)))
	require.NoError(t, err)
	require.Equal(t, 2, result.DiseaseID)
	require.Equal(t, "Early Blight", result.DiseaseName)
	require.Equal(t, "87.34%", result.Confidence)
	require.Equal(t, 1, detector.calls)

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	require.Equal(t, model.SourceJSON, rec.Source)
	require.Equal(t, 1, rec.ClassIndex)
	require.Equal(t, 32, rec.ImageWidth)
	require.Equal(t, 24, rec.ImageHeight)
	require.Equal(t, 3, rec.DetectionCount)
	require.NotEmpty(t, rec.RequestID)

	require.Len(t, broadcaster.events, 1)
	require.Equal(t, rec.RequestID, broadcaster.events[0].RequestID)
	require.Equal(t, result, broadcaster.events[0].Prediction)
}

func TestPredictionService_NoDetectionsIsHealthy(t *testing.T) {
	svc := NewPredictionService(diagnosis.Extended(), &fakeDetector{}, nil, nil, logger.NewDiscard())

	result, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceMultipart, pngBytes(t, 8, 8)))
	require.NoError(t, err)
	require.Equal(t, 10, result.DiseaseID)
	require.Equal(t, "Healthy", result.DiseaseName)
	require.Equal(t, "100%", result.Confidence)
	require.Equal(t, "ไม่ต้องทำการรักษา", result.Treatment)
}

func TestPredictionService_UnknownClass(t *testing.T) {
	detector := &fakeDetector{detections: []model.Detection{{ClassIndex: 15, Confidence: 0.6}}}
	svc := NewPredictionService(diagnosis.Extended(), detector, nil, nil, logger.NewDiscard())

	result, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, pngBytes(t, 8, 8)))
	require.NoError(t, err)
	require.Equal(t, model.PredictionResult{
		DiseaseID:   0,
		DiseaseName: "not found",
		Confidence:  "60.00%",
		Treatment:   "not found",
	}, result)
}

func TestPredictionService_UnreadableImage(t *testing.T) {
	detector := &fakeDetector{}
	recorder := &captureRecorder{}
	svc := NewPredictionService(diagnosis.Extended(), detector, recorder, nil, logger.NewDiscard())

	_, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, []byte("not an image")))
	require.ErrorIs(t, err, intake.ErrUnreadableImage)
	require.Zero(t, detector.calls)
	require.Empty(t, recorder.records)
}

func TestPredictionService_DetectorError(t *testing.T) {
	boom := errors.New("onnx run failed")
	recorder := &captureRecorder{}
	svc := NewPredictionService(diagnosis.Extended(), &fakeDetector{err: boom}, recorder, nil, logger.NewDiscard())

	_, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, pngBytes(t, 8, 8)))
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, intake.ErrUnreadableImage)
	require.Empty(t, recorder.records)
}

func TestPredictionService_Idempotent(t *testing.T) {
	detector := &fakeDetector{detections: []model.Detection{{ClassIndex: 2, Confidence: 0.5}}}
	svc := NewPredictionService(diagnosis.Minimal(), detector, nil, nil, logger.NewDiscard())
	data := pngBytes(t, 16, 16)

	first, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, data))
	require.NoError(t, err)
	second, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, data))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, "Septoria Leaf Spot", first.DiseaseName)
}

func TestPredictionService_MaxImagePixels(t *testing.T) {
	detector := &fakeDetector{}
	svc := NewPredictionService(diagnosis.Extended(), detector, nil, nil, logger.NewDiscard())
	svc.SetMaxImagePixels(100)

	_, err := svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, pngBytes(t, 20, 10)))
	require.ErrorIs(t, err, intake.ErrUnreadableImage)
	require.Zero(t, detector.calls)

	svc.SetMaxImagePixels(0)
	_, err = svc.Predict(context.Background(), intake.FromBytes(model.SourceJSON, pngBytes(t, 20, 10)))
	require.ErrorIs(t, err, intake.ErrUnreadableImage, "non-positive values keep the previous limit")
}
