package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type occupancyReader interface {
	ListCurrent(ctx context.Context, now time.Time) ([]models.OccupancyWindow, error)
}

// GridService builds the live room grid.
type GridService struct {
	rooms    roomLister
	windows  occupancyReader
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewGridService constructs a GridService. cache may be nil.
func NewGridService(rooms roomLister, windows occupancyReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *GridService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridService{rooms: rooms, windows: windows, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Rooms lists every room ordered by room number.
func (s *GridService) Rooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if s.cache.Get(ctx, gridRoomsKey, &rooms) {
		return rooms, nil
	}
	gen := s.cache.Generation()
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	s.cache.SetIfUnchanged(ctx, gridRoomsKey, rooms, s.cacheTTL, gen)
	return rooms, nil
}

// Grid pairs every room with the window active right now, if any.
func (s *GridService) Grid(ctx context.Context) (*dto.RoomGrid, error) {
	now := s.now().UTC()

	rooms, err := s.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	windows, err := s.currentWindows(ctx, now)
	if err != nil {
		return nil, err
	}

	active := make(map[string]models.OccupancyWindow, len(windows))
	for _, window := range windows {
		if !window.ActiveAt(now) {
			continue
		}
		// Reconciliation keeps one active window per room; prefer the latest start otherwise.
		if existing, ok := active[window.ClassroomID]; ok && !window.StartTime.After(existing.StartTime) {
			continue
		}
		active[window.ClassroomID] = window
	}

	grid := &dto.RoomGrid{GeneratedAt: now, Rooms: make([]dto.GridRoom, 0, len(rooms))}
	for _, room := range rooms {
		cell := dto.GridRoom{Room: room, Status: models.StatusVacant}
		if window, ok := active[room.ID]; ok && window.Status != models.StatusVacant {
			w := window
			cell.Status = w.Status
			cell.Occupancy = &w
			cell.TimeRemaining = TimeRemaining(w.EndTime, now)
		}
		switch cell.Status {
		case models.StatusOccupied:
			grid.Summary.Occupied++
		case models.StatusReserved:
			grid.Summary.Reserved++
		default:
			grid.Summary.Vacant++
		}
		grid.Rooms = append(grid.Rooms, cell)
	}
	return grid, nil
}

func (s *GridService) currentWindows(ctx context.Context, now time.Time) ([]models.OccupancyWindow, error) {
	key := gridWindowsPrefix + now.Truncate(time.Minute).Format("200601021504")
	var windows []models.OccupancyWindow
	if s.cache.Get(ctx, key, &windows) {
		return windows, nil
	}
	gen := s.cache.Generation()
	windows, err := s.windows.ListCurrent(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy")
	}
	ttl := s.cacheTTL
	if ttl <= 0 || ttl > gridWindowsMaxTTL {
		ttl = gridWindowsMaxTTL
	}
	s.cache.SetIfUnchanged(ctx, key, windows, ttl, gen)
	return windows, nil
}

// TimeRemaining renders the time until end as "Xh Ym", "Ym" or "Expired".
func TimeRemaining(end, now time.Time) string {
	diff := end.Sub(now)
	if diff <= 0 {
		return "Expired"
	}
	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
