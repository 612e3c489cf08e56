package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

const timetableColumns = `id, classroom_id, branch, day_of_week, start_time, end_time, class_name, subject, created_at`

// TimetableRepository manages weekly timetable slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new instance of TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns slots matching the filter ordered by day then start time.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlot, error) {
	var conditions []string
	var args []interface{}

	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("branch = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}

	query := `SELECT ` + timetableColumns + ` FROM timetable`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY day_of_week ASC, start_time ASC"

	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return slots, nil
}

// FindByID returns a slot by identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetable WHERE id = $1`
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable slot: %w", err)
	}
	return &slot, nil
}

// Create inserts a single slot.
func (r *TimetableRepository) Create(ctx context.Context, slot *models.TimetableSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO timetable (id, classroom_id, branch, day_of_week, start_time, end_time, class_name, subject, created_at)
VALUES (:id, :classroom_id, :branch, :day_of_week, :start_time, :end_time, :class_name, :subject, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create timetable slot: %w", err)
	}
	return nil
}

// InsertBatch inserts slots with pre-assigned ids. Rows whose id already exists are skipped,
// so replaying the same batch is a no-op. It returns the number of rows written.
func (r *TimetableRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO timetable (id, classroom_id, branch, day_of_week, start_time, end_time, class_name, subject, created_at)
VALUES (:id, :classroom_id, :branch, :day_of_week, :start_time, :end_time, :class_name, :subject, :created_at)
ON CONFLICT (id) DO NOTHING`

	var inserted int64
	for i := range slots {
		slot := slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		res, err := sqlx.NamedExecContext(ctx, target, query, slot)
		if err != nil {
			return inserted, fmt.Errorf("insert timetable batch row %d: %w", i+1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert timetable batch row %d: %w", i+1, err)
		}
		inserted += n
	}
	return inserted, nil
}

// Delete removes a slot owned by branch. It returns sql.ErrNoRows when nothing matched.
func (r *TimetableRepository) Delete(ctx context.Context, id string, branch models.Branch) error {
	const query = `DELETE FROM timetable WHERE id = $1 AND branch = $2`
	res, err := r.db.ExecContext(ctx, query, id, branch)
	if err != nil {
		return fmt.Errorf("delete timetable slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable slot: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
