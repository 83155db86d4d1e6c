package sqldb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/model"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newRecord(requestID, disease, source string, createdAt time.Time, dets ...model.Detection) *model.PredictionRecord {
	return &model.PredictionRecord{
		RequestID:       requestID,
		Source:          source,
		ClassIndex:      0,
		DiseaseID:       1,
		DiseaseName:     disease,
		Confidence:      0.8734,
		ConfidenceLabel: "87.34%",
		ImageWidth:      640,
		ImageHeight:     480,
		CreatedAt:       createdAt,
		Detections:      dets,
	}
}

// ========================================
// Open Tests
// ========================================

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "predictions.db")

	db, err := Open(DriverSQLite, dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, db.Driver())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
}

// ========================================
// Repository Tests
// ========================================

func TestPredictionRepository_InsertAndGetByID(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	ctx := context.Background()

	rec := newRecord("req-1", "Bacterial Spot", model.SourceMultipart, time.Now(),
		model.Detection{ClassIndex: 0, Confidence: 0.87, Box: model.Box{X: 10, Y: 20, Width: 30, Height: 40}},
		model.Detection{ClassIndex: 2, Confidence: 0.31, Box: model.Box{X: 1, Y: 2, Width: 3, Height: 4}},
	)

	id, err := repo.Insert(ctx, rec)
	require.NoError(t, err)
	require.Positive(t, id)
	require.Equal(t, id, rec.ID)
	require.Equal(t, 2, rec.DetectionCount)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "req-1", got.RequestID)
	require.Equal(t, "87.34%", got.ConfidenceLabel)
	require.Equal(t, 2, got.DetectionCount)
	require.Len(t, got.Detections, 2)
	require.Equal(t, 0, got.Detections[0].ClassIndex)
	require.Equal(t, model.Box{X: 10, Y: 20, Width: 30, Height: 40}, got.Detections[0].Box)
}

func TestPredictionRepository_GetByID_Missing(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))

	got, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPredictionRepository_InsertWithoutDetections(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	ctx := context.Background()

	rec := newRecord("req-healthy", "Healthy", model.SourceJSON, time.Now())
	rec.ClassIndex = model.NoClass

	id, err := repo.Insert(ctx, rec)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.NoClass, got.ClassIndex)
	require.Empty(t, got.Detections)
}

func TestPredictionRepository_DuplicateRequestID(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Insert(ctx, newRecord("dup", "Healthy", model.SourceJSON, time.Now()))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, newRecord("dup", "Healthy", model.SourceJSON, time.Now()))
	require.Error(t, err)

	count, err := repo.GetTotalCount(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPredictionRepository_GetAllWithFilters(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []*model.PredictionRecord{
		newRecord("a", "Early Blight", model.SourceMultipart, base),
		newRecord("b", "Late Blight", model.SourceJSON, base.Add(time.Hour)),
		newRecord("c", "Early Blight", model.SourceTelegram, base.Add(2*time.Hour)),
		newRecord("d", "Healthy", model.SourceMultipart, base.Add(3*time.Hour)),
	}
	for _, rec := range records {
		_, err := repo.Insert(ctx, rec)
		require.NoError(t, err)
	}

	all, err := repo.GetAll(ctx, &dto.PredictionFilters{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "d", all[0].RequestID)
	require.Equal(t, "a", all[3].RequestID)

	blight, err := repo.GetAll(ctx, &dto.PredictionFilters{Disease: "Early Blight"})
	require.NoError(t, err)
	require.Len(t, blight, 2)

	window := &dto.PredictionFilters{After: base.Add(30 * time.Minute), Before: base.Add(150 * time.Minute)}
	inWindow, err := repo.GetAll(ctx, window)
	require.NoError(t, err)
	require.Len(t, inWindow, 2)

	count, err := repo.GetTotalCount(ctx, window)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	bySource, err := repo.GetAll(ctx, &dto.PredictionFilters{Source: model.SourceMultipart})
	require.NoError(t, err)
	require.Len(t, bySource, 2)
}

func TestPredictionRepository_Pagination(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		_, err := repo.Insert(ctx, newRecord(id, "Healthy", model.SourceJSON, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	page, err := repo.GetAll(ctx, &dto.PredictionFilters{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "p3", page[0].RequestID)
	require.Equal(t, "p2", page[1].RequestID)
}

func TestPredictionRepository_StatsAndDeleteAll(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	ctx := context.Background()

	now := time.Now()
	for _, rec := range []*model.PredictionRecord{
		newRecord("s1", "Early Blight", model.SourceMultipart, now, model.Detection{ClassIndex: 1, Confidence: 0.9}),
		newRecord("s2", "Early Blight", model.SourceJSON, now),
		newRecord("s3", "Healthy", model.SourceJSON, now),
	} {
		_, err := repo.Insert(ctx, rec)
		require.NoError(t, err)
	}

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalPredictions)
	require.Equal(t, 2, stats.PerDisease["Early Blight"])
	require.Equal(t, 1, stats.PerDisease["Healthy"])
	require.Equal(t, 2, stats.PerSource[model.SourceJSON])

	require.NoError(t, repo.DeleteAll(ctx))

	stats, err = repo.GetStats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.TotalPredictions)
	require.Empty(t, stats.PerDisease)
}
