package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

const occupancyColumns = `id, classroom_id, branch, status, class_name, subject, purpose, start_time, end_time, occupied_by, created_at, updated_at`

// OccupancyRepository manages classroom occupancy windows.
type OccupancyRepository struct {
	db *sqlx.DB
}

// NewOccupancyRepository creates a new instance of OccupancyRepository.
func NewOccupancyRepository(db *sqlx.DB) *OccupancyRepository {
	return &OccupancyRepository{db: db}
}

func (r *OccupancyRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListCurrent returns every window that has not ended at now, ordered by start.
func (r *OccupancyRepository) ListCurrent(ctx context.Context, now time.Time) ([]models.OccupancyWindow, error) {
	query := `SELECT ` + occupancyColumns + ` FROM classroom_occupancy WHERE end_time > $1 ORDER BY start_time ASC`
	var windows []models.OccupancyWindow
	if err := r.db.SelectContext(ctx, &windows, query, now); err != nil {
		return nil, fmt.Errorf("list current occupancy: %w", err)
	}
	return windows, nil
}

// ListByRoom returns the room's windows that have not ended at now.
func (r *OccupancyRepository) ListByRoom(ctx context.Context, exec sqlx.ExtContext, roomID string, now time.Time) ([]models.OccupancyWindow, error) {
	query := `SELECT ` + occupancyColumns + ` FROM classroom_occupancy WHERE classroom_id = $1 AND end_time > $2 ORDER BY start_time ASC`
	var windows []models.OccupancyWindow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &windows, query, roomID, now); err != nil {
		return nil, fmt.Errorf("list room occupancy: %w", err)
	}
	return windows, nil
}

// CloseStarted ends every window of the room that started before at and has not yet ended.
func (r *OccupancyRepository) CloseStarted(ctx context.Context, exec sqlx.ExtContext, roomID string, at time.Time) (int64, error) {
	const query = `UPDATE classroom_occupancy SET end_time = $2, updated_at = $2 WHERE classroom_id = $1 AND start_time < $2 AND end_time >= $2`
	res, err := r.exec(exec).ExecContext(ctx, query, roomID, at)
	if err != nil {
		return 0, fmt.Errorf("close started occupancy: %w", err)
	}
	return res.RowsAffected()
}

// DeleteFrom removes every window of the room that starts at or after at.
func (r *OccupancyRepository) DeleteFrom(ctx context.Context, exec sqlx.ExtContext, roomID string, at time.Time) (int64, error) {
	const query = `DELETE FROM classroom_occupancy WHERE classroom_id = $1 AND start_time >= $2`
	res, err := r.exec(exec).ExecContext(ctx, query, roomID, at)
	if err != nil {
		return 0, fmt.Errorf("delete future occupancy: %w", err)
	}
	return res.RowsAffected()
}

// TruncateOverlapping ends windows that started before start and run past it at start.
func (r *OccupancyRepository) TruncateOverlapping(ctx context.Context, exec sqlx.ExtContext, roomID string, start time.Time) (int64, error) {
	const query = `UPDATE classroom_occupancy SET end_time = $2, updated_at = NOW() WHERE classroom_id = $1 AND start_time < $2 AND end_time > $2`
	res, err := r.exec(exec).ExecContext(ctx, query, roomID, start)
	if err != nil {
		return 0, fmt.Errorf("truncate overlapping occupancy: %w", err)
	}
	return res.RowsAffected()
}

// DeleteStartingWithin removes windows that start inside [start, end).
func (r *OccupancyRepository) DeleteStartingWithin(ctx context.Context, exec sqlx.ExtContext, roomID string, start, end time.Time) (int64, error) {
	const query = `DELETE FROM classroom_occupancy WHERE classroom_id = $1 AND start_time >= $2 AND start_time < $3`
	res, err := r.exec(exec).ExecContext(ctx, query, roomID, start, end)
	if err != nil {
		return 0, fmt.Errorf("delete overlapping occupancy: %w", err)
	}
	return res.RowsAffected()
}

// Insert stores a new window.
func (r *OccupancyRepository) Insert(ctx context.Context, exec sqlx.ExtContext, window *models.OccupancyWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if window.CreatedAt.IsZero() {
		window.CreatedAt = now
	}
	window.UpdatedAt = window.CreatedAt

	const query = `INSERT INTO classroom_occupancy (id, classroom_id, branch, status, class_name, subject, purpose, start_time, end_time, occupied_by, created_at, updated_at)
VALUES (:id, :classroom_id, :branch, :status, :class_name, :subject, :purpose, :start_time, :end_time, :occupied_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, window); err != nil {
		return fmt.Errorf("insert occupancy: %w", err)
	}
	return nil
}
