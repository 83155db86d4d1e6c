package repository

import (
	"context"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/model"
)

// PredictionRepository defines the interface for prediction history operations.
type PredictionRepository interface {
	// Create operations
	Insert(ctx context.Context, rec *model.PredictionRecord) (int64, error)

	// Read operations
	GetByID(ctx context.Context, id int64) (*model.PredictionRecord, error)
	GetAll(ctx context.Context, filter *dto.PredictionFilters) ([]model.PredictionRecord, error)
	GetTotalCount(ctx context.Context, filter *dto.PredictionFilters) (int, error)
	GetStats(ctx context.Context) (*model.PredictionStats, error)

	// Delete operations
	DeleteAll(ctx context.Context) error
}
