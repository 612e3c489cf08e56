package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/validation"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func crActor(branch models.Branch) *models.JWTClaims {
	return &models.JWTClaims{UserID: "cr-" + string(branch), Role: models.RoleCR, Branch: branch, Name: "Rep " + string(branch)}
}

func studentActor(branch models.Branch) *models.JWTClaims {
	return &models.JWTClaims{UserID: "stu-" + string(branch), Role: models.RoleStudent, Branch: branch}
}

// roomsStub serves a fixed room set.
type roomsStub struct {
	rooms []models.Room
	err   error
}

func (r *roomsStub) LockForUpdate(ctx context.Context, exec sqlx.QueryerContext, id string) (*models.Room, error) {
	return r.FindByID(ctx, id)
}

func (r *roomsStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.rooms {
		if r.rooms[i].ID == id {
			room := r.rooms[i]
			return &room, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *roomsStub) List(ctx context.Context) ([]models.Room, error) {
	return r.rooms, r.err
}

// memoryWindows applies the same predicates as the SQL repository to an in-memory table.
type memoryWindows struct {
	mu         sync.Mutex
	rows       []models.OccupancyWindow
	failInsert map[string]error
}

func (m *memoryWindows) CloseStarted(ctx context.Context, exec sqlx.ExtContext, roomID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		w := &m.rows[i]
		if w.ClassroomID == roomID && w.StartTime.Before(at) && !w.EndTime.Before(at) {
			w.EndTime = at
			n++
		}
	}
	return n, nil
}

func (m *memoryWindows) DeleteFrom(ctx context.Context, exec sqlx.ExtContext, roomID string, at time.Time) (int64, error) {
	return m.remove(func(w models.OccupancyWindow) bool {
		return w.ClassroomID == roomID && !w.StartTime.Before(at)
	}), nil
}

func (m *memoryWindows) TruncateOverlapping(ctx context.Context, exec sqlx.ExtContext, roomID string, start time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		w := &m.rows[i]
		if w.ClassroomID == roomID && w.StartTime.Before(start) && w.EndTime.After(start) {
			w.EndTime = start
			n++
		}
	}
	return n, nil
}

func (m *memoryWindows) DeleteStartingWithin(ctx context.Context, exec sqlx.ExtContext, roomID string, start, end time.Time) (int64, error) {
	return m.remove(func(w models.OccupancyWindow) bool {
		return w.ClassroomID == roomID && !w.StartTime.Before(start) && w.StartTime.Before(end)
	}), nil
}

func (m *memoryWindows) Insert(ctx context.Context, exec sqlx.ExtContext, window *models.OccupancyWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failInsert[window.ClassName]; err != nil {
		return err
	}
	m.rows = append(m.rows, *window)
	return nil
}

func (m *memoryWindows) ListCurrent(ctx context.Context, now time.Time) ([]models.OccupancyWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OccupancyWindow
	for _, w := range m.rows {
		if w.EndTime.After(now) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memoryWindows) remove(match func(models.OccupancyWindow) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, w := range m.rows {
		if match(w) {
			n++
			continue
		}
		kept = append(kept, w)
	}
	m.rows = kept
	return n
}

func (m *memoryWindows) activeAt(roomID string, now time.Time) []models.OccupancyWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OccupancyWindow
	for _, w := range m.rows {
		if w.ClassroomID == roomID && w.ActiveAt(now) {
			out = append(out, w)
		}
	}
	return out
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingNotifier) Publish(evt realtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recordingNotifier) count(collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Collection == collection {
			n++
		}
	}
	return n
}

func newTestOccupancyService(t *testing.T, windows *memoryWindows, rooms *roomsStub, now time.Time) (*OccupancyService, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	notifier := &recordingNotifier{}
	svc := NewOccupancyService(OccupancyServiceParams{
		Rooms:     rooms,
		Windows:   windows,
		Tx:        tx,
		Notifier:  notifier,
		Validator: validation.New(),
	})
	svc.now = func() time.Time { return now }
	return svc, mock, notifier
}
