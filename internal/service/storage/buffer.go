package storage

import (
	"context"
	"sync"
	"time"

	"leafdoctor/internal/logger"
	"leafdoctor/internal/model"
	"leafdoctor/internal/repository"
)

const (
	// HistoryBufferLimit limits how many predictions wait in memory before new ones are dropped.
	HistoryBufferLimit = 256
	// HistoryFlushInterval defines how often buffered predictions are written to the database.
	HistoryFlushInterval = 5 * time.Second
)

// BufferService buffers prediction records in memory and periodically flushes them to the repository.
type BufferService struct {
	records []*model.PredictionRecord
	limit   int
	mu      sync.Mutex
	flushMu sync.Mutex
	logger  *logger.Logger
	repo    repository.PredictionRepository
}

// NewBufferService creates a new BufferService writing to repo.
func NewBufferService(repo repository.PredictionRepository, logger *logger.Logger) *BufferService {
	return &BufferService{
		records: make([]*model.PredictionRecord, 0),
		limit:   HistoryBufferLimit,
		logger:  logger,
		repo:    repo,
	}
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush(ctx)
		case <-ctx.Done():
			s.Flush(context.Background())
			return
		}
	}
}

// Record appends a prediction to the in-memory buffer.
func (s *BufferService) Record(rec *model.PredictionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) >= s.limit {
		s.logger.Warning("History buffer full (%d) - dropping prediction %s", s.limit, rec.RequestID)
		return
	}
	s.records = append(s.records, rec)
}

// Pending returns the number of buffered records.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush writes buffered records to the repository and resets the buffer.
// Records that fail to insert are logged and discarded.
func (s *BufferService) Flush(ctx context.Context) int {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.records
	s.records = make([]*model.PredictionRecord, 0, len(batch))
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	savedCount := 0
	for _, rec := range batch {
		if _, err := s.repo.Insert(ctx, rec); err != nil {
			s.logger.Error("Error saving prediction %s to database: %v", rec.RequestID, err)
			continue
		}
		savedCount++
	}

	s.logger.Info("Flushed %d predictions to database", savedCount)
	return savedCount
}
