package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/logger"
	"leafdoctor/internal/model"
)

type memoryRepo struct {
	mu      sync.Mutex
	records []*model.PredictionRecord
	failOn  string
}

func (m *memoryRepo) Insert(_ context.Context, rec *model.PredictionRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.RequestID == m.failOn {
		return 0, errors.New("insert failed")
	}
	m.records = append(m.records, rec)
	return int64(len(m.records)), nil
}

func (m *memoryRepo) GetByID(context.Context, int64) (*model.PredictionRecord, error) {
	return nil, nil
}

func (m *memoryRepo) GetAll(context.Context, *dto.PredictionFilters) ([]model.PredictionRecord, error) {
	return nil, nil
}

func (m *memoryRepo) GetTotalCount(context.Context, *dto.PredictionFilters) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *memoryRepo) GetStats(context.Context) (*model.PredictionStats, error) {
	return &model.PredictionStats{}, nil
}

func (m *memoryRepo) DeleteAll(context.Context) error {
	return nil
}

func TestBufferService_Flush(t *testing.T) {
	repo := &memoryRepo{failOn: "bad"}
	buffer := NewBufferService(repo, logger.NewDiscard())

	buffer.Record(&model.PredictionRecord{RequestID: "a"})
	buffer.Record(&model.PredictionRecord{RequestID: "bad"})
	buffer.Record(&model.PredictionRecord{RequestID: "c"})
	require.Equal(t, 3, buffer.Pending())

	saved := buffer.Flush(context.Background())
	require.Equal(t, 2, saved)
	require.Zero(t, buffer.Pending())
	require.Len(t, repo.records, 2)

	require.Zero(t, buffer.Flush(context.Background()))
}

func TestBufferService_DropsWhenFull(t *testing.T) {
	repo := &memoryRepo{}
	buffer := NewBufferService(repo, logger.NewDiscard())
	buffer.limit = 2

	for i := 0; i < 5; i++ {
		buffer.Record(&model.PredictionRecord{RequestID: fmt.Sprintf("r%d", i)})
	}
	require.Equal(t, 2, buffer.Pending())
}

func TestBufferService_RunFlushesOnShutdown(t *testing.T) {
	repo := &memoryRepo{}
	buffer := NewBufferService(repo, logger.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		buffer.Run(ctx, time.Hour)
		close(done)
	}()

	buffer.Record(&model.PredictionRecord{RequestID: "last"})
	cancel()
	<-done

	count, err := repo.GetTotalCount(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
