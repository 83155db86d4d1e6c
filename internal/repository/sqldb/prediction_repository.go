package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"leafdoctor/internal/dto"
	"leafdoctor/internal/model"
)

// PredictionRepository implements repository.PredictionRepository.
type PredictionRepository struct {
	db *DB
}

// NewPredictionRepository creates a new prediction repository.
func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const predictionColumns = `id, request_id, source, class_index, disease_id, disease_name,
	confidence, confidence_label, image_width, image_height, detection_count, created_at`

type detectionRow struct {
	PredictionID int64   `db:"prediction_id"`
	ClassIndex   int     `db:"class_index"`
	Confidence   float64 `db:"confidence"`
	X            int     `db:"x"`
	Y            int     `db:"y"`
	Width        int     `db:"width"`
	Height       int     `db:"height"`
}

// Insert stores a prediction together with its detections in one transaction.
func (r *PredictionRepository) Insert(ctx context.Context, rec *model.PredictionRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO predictions (request_id, source, class_index, disease_id, disease_name,
			confidence, confidence_label, image_width, image_height, detection_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{
		rec.RequestID, rec.Source, rec.ClassIndex, rec.DiseaseID, rec.DiseaseName,
		rec.Confidence, rec.ConfidenceLabel, rec.ImageWidth, rec.ImageHeight, len(rec.Detections),
		rec.CreatedAt.UTC(),
	}

	var id int64
	if r.db.Driver() == DriverPostgres {
		if err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert prediction: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert prediction: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to read prediction id: %w", err)
		}
	}

	if len(rec.Detections) > 0 {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO detections (prediction_id, class_index, confidence, x, y, width, height)
			VALUES (?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, det := range rec.Detections {
			if _, err := stmt.ExecContext(ctx, id, det.ClassIndex, det.Confidence,
				det.Box.X, det.Box.Y, det.Box.Width, det.Box.Height); err != nil {
				return 0, fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prediction: %w", err)
	}

	rec.ID = id
	rec.DetectionCount = len(rec.Detections)
	return id, nil
}

// GetByID retrieves a prediction and its detections. Returns nil, nil when missing.
func (r *PredictionRepository) GetByID(ctx context.Context, id int64) (*model.PredictionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var rec model.PredictionRecord
	err := r.db.Conn().GetContext(ctx, &rec,
		r.db.Conn().Rebind(`SELECT `+predictionColumns+` FROM predictions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	var rows []detectionRow
	if err := r.db.Conn().SelectContext(ctx, &rows, r.db.Conn().Rebind(`
		SELECT prediction_id, class_index, confidence, x, y, width, height
		FROM detections WHERE prediction_id = ? ORDER BY confidence DESC, id ASC`), id); err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}

	for _, row := range rows {
		rec.Detections = append(rec.Detections, model.Detection{
			ClassIndex: row.ClassIndex,
			Confidence: row.Confidence,
			Box:        model.Box{X: row.X, Y: row.Y, Width: row.Width, Height: row.Height},
		})
	}
	return &rec, nil
}

// GetAll retrieves predictions matching the filter, newest first.
func (r *PredictionRepository) GetAll(ctx context.Context, filter *dto.PredictionFilters) ([]model.PredictionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT ` + predictionColumns + ` FROM predictions` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	records := []model.PredictionRecord{}
	if err := r.db.Conn().SelectContext(ctx, &records, r.db.Conn().Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	return records, nil
}

// GetTotalCount returns the number of predictions matching the filter.
func (r *PredictionRepository) GetTotalCount(ctx context.Context, filter *dto.PredictionFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().GetContext(ctx, &count, r.db.Conn().Rebind(`SELECT COUNT(*) FROM predictions`+where), args...); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return count, nil
}

// GetStats returns totals per disease and per source.
func (r *PredictionRepository) GetStats(ctx context.Context) (*model.PredictionStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.PredictionStats{
		PerDisease: make(map[string]int),
		PerSource:  make(map[string]int),
	}

	if err := r.db.Conn().GetContext(ctx, &stats.TotalPredictions, `SELECT COUNT(*) FROM predictions`); err != nil {
		return nil, fmt.Errorf("failed to count predictions: %w", err)
	}

	if err := groupCount(ctx, r.db.Conn(), "disease_name", stats.PerDisease); err != nil {
		return nil, err
	}
	if err := groupCount(ctx, r.db.Conn(), "source", stats.PerSource); err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteAll removes every prediction and detection.
func (r *PredictionRepository) DeleteAll(ctx context.Context) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM predictions`); err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}
	return tx.Commit()
}

// groupCount fills out with COUNT(*) grouped by a fixed column name.
func groupCount(ctx context.Context, conn *sqlx.DB, column string, out map[string]int) error {
	var rows []struct {
		Label string `db:"label"`
		Total int    `db:"total"`
	}
	query := fmt.Sprintf(`SELECT %s AS label, COUNT(*) AS total FROM predictions GROUP BY %s`, column, column)
	if err := conn.SelectContext(ctx, &rows, query); err != nil {
		return fmt.Errorf("failed to group predictions by %s: %w", column, err)
	}
	for _, row := range rows {
		out[row.Label] = row.Total
	}
	return nil
}

// whereClause builds the shared filter part of list and count queries.
func whereClause(filter *dto.PredictionFilters) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	if filter.Disease != "" {
		conditions = append(conditions, "disease_name = ?")
		args = append(args, filter.Disease)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if !filter.After.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.After.UTC())
	}
	if !filter.Before.IsZero() {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.Before.UTC())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
