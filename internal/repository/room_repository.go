package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

const roomColumns = `id, room_number, building, floor, capacity, created_at`

// RoomRepository reads classroom reference data.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new instance of RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns all rooms ordered by room number.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM classrooms ORDER BY room_number ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindByID returns a room by identifier.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM classrooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// LockForUpdate takes a row lock on the room for the lifetime of the transaction.
// It returns sql.ErrNoRows when the room does not exist.
func (r *RoomRepository) LockForUpdate(ctx context.Context, exec sqlx.QueryerContext, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM classrooms WHERE id = $1 FOR UPDATE`
	var room models.Room
	if err := sqlx.GetContext(ctx, exec, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}
	return &room, nil
}
