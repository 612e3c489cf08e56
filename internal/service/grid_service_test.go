package service

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

// memoryCache stores JSON payloads like the Redis repository does.
type memoryCache struct {
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

type countingRooms struct {
	roomsStub
	calls int
}

func (c *countingRooms) List(ctx context.Context) ([]models.Room, error) {
	c.calls++
	return c.roomsStub.List(ctx)
}

// racingWindows runs onList after reading, so the caller holds a list that a
// concurrent commit has already made stale.
type racingWindows struct {
	*memoryWindows
	onList func()
}

func (r *racingWindows) ListCurrent(ctx context.Context, now time.Time) ([]models.OccupancyWindow, error) {
	out, err := r.memoryWindows.ListCurrent(ctx, now)
	if r.onList != nil {
		hook := r.onList
		r.onList = nil
		hook()
	}
	return out, err
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "1h 30m", TimeRemaining(now.Add(90*time.Minute), now))
	assert.Equal(t, "45m", TimeRemaining(now.Add(45*time.Minute+30*time.Second), now))
	assert.Equal(t, "0m", TimeRemaining(now.Add(30*time.Second), now))
	assert.Equal(t, "Expired", TimeRemaining(now, now))
	assert.Equal(t, "Expired", TimeRemaining(now.Add(-time.Minute), now))
}

func TestGridDerivesStatusFromActiveWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rooms := &roomsStub{rooms: []models.Room{{ID: "r1", RoomNumber: "101"}, {ID: "r2", RoomNumber: "102"}, {ID: "r3", RoomNumber: "103"}}}
	windows := &memoryWindows{rows: []models.OccupancyWindow{
		{ID: "w1", ClassroomID: "r1", Status: models.StatusOccupied, StartTime: now.Add(-time.Hour), EndTime: now.Add(2 * time.Hour)},
		{ID: "w2", ClassroomID: "r2", Status: models.StatusReserved, StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)},
		{ID: "w3", ClassroomID: "r3", Status: models.StatusReserved, StartTime: now.Add(-10 * time.Minute), EndTime: now.Add(20 * time.Minute)},
		{ID: "w4", ClassroomID: "r3", Status: models.StatusOccupied, StartTime: now.Add(-time.Hour), EndTime: now},
	}}

	svc := NewGridService(rooms, windows, nil, 0, nil)
	svc.now = func() time.Time { return now }

	grid, err := svc.Grid(context.Background())
	require.NoError(t, err)
	require.Len(t, grid.Rooms, 3)

	assert.Equal(t, models.StatusOccupied, grid.Rooms[0].Status)
	assert.Equal(t, "2h 0m", grid.Rooms[0].TimeRemaining)
	assert.Equal(t, models.StatusVacant, grid.Rooms[1].Status)
	assert.Nil(t, grid.Rooms[1].Occupancy)
	assert.Equal(t, models.StatusReserved, grid.Rooms[2].Status)
	assert.Equal(t, "w3", grid.Rooms[2].Occupancy.ID)
	assert.Equal(t, "20m", grid.Rooms[2].TimeRemaining)
	assert.Equal(t, 1, grid.Summary.Occupied)
	assert.Equal(t, 1, grid.Summary.Reserved)
	assert.Equal(t, 1, grid.Summary.Vacant)
}

func TestGridUsesCacheUntilOccupancyChanges(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rooms := &countingRooms{roomsStub: roomsStub{rooms: []models.Room{room101}}}
	windows := &memoryWindows{}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)

	grid := NewGridService(rooms, windows, cache, time.Minute, nil)
	grid.now = func() time.Time { return now }

	first, err := grid.Grid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusVacant, first.Rooms[0].Status)

	_, err = grid.Grid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rooms.calls)

	occupancy, mock, _ := newTestOccupancyService(t, windows, &rooms.roomsStub, now)
	occupancy.cache = cache
	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err = occupancy.SetRoomStatus(context.Background(), crActor(models.BranchCSE), room101.ID, occupiedRequest(now, now.Add(time.Hour)))
	require.NoError(t, err)

	after, err := grid.Grid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rooms.calls)
	assert.Equal(t, models.StatusOccupied, after.Rooms[0].Status)
}

func TestGridDoesNotCacheListReadBeforeInvalidate(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rooms := &roomsStub{rooms: []models.Room{room101}}
	windows := &memoryWindows{}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)

	occupancy, mock, _ := newTestOccupancyService(t, windows, rooms, now)
	occupancy.cache = cache
	mock.ExpectBegin()
	mock.ExpectCommit()

	reader := &racingWindows{memoryWindows: windows}
	reader.onList = func() {
		_, err := occupancy.SetRoomStatus(context.Background(), crActor(models.BranchCSE), room101.ID, occupiedRequest(now, now.Add(time.Hour)))
		require.NoError(t, err)
	}
	grid := NewGridService(rooms, reader, cache, time.Minute, nil)
	grid.now = func() time.Time { return now }

	stale, err := grid.Grid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusVacant, stale.Rooms[0].Status)

	fresh, err := grid.Grid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusOccupied, fresh.Rooms[0].Status)
}

func TestCacheSetIfUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	gen := cache.Generation()
	cache.SetIfUnchanged(ctx, "grid:rooms", 1, 0, gen)
	assert.Contains(t, repo.items, "grid:rooms")

	cache.Invalidate(ctx, gridCachePattern)
	assert.Empty(t, repo.items)
	assert.Equal(t, gen+1, cache.Generation())

	cache.SetIfUnchanged(ctx, "grid:rooms", 1, 0, gen)
	assert.Empty(t, repo.items)
}
