package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/validation"
)

type roomLocker interface {
	LockForUpdate(ctx context.Context, exec sqlx.QueryerContext, id string) (*models.Room, error)
}

type occupancyWriter interface {
	CloseStarted(ctx context.Context, exec sqlx.ExtContext, roomID string, at time.Time) (int64, error)
	DeleteFrom(ctx context.Context, exec sqlx.ExtContext, roomID string, at time.Time) (int64, error)
	TruncateOverlapping(ctx context.Context, exec sqlx.ExtContext, roomID string, start time.Time) (int64, error)
	DeleteStartingWithin(ctx context.Context, exec sqlx.ExtContext, roomID string, start, end time.Time) (int64, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, window *models.OccupancyWindow) error
}

// OccupancyServiceParams groups constructor dependencies.
type OccupancyServiceParams struct {
	Rooms     roomLocker
	Windows   occupancyWriter
	Tx        txProvider
	Cache     *CacheService
	Notifier  realtime.Notifier
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// OccupancyService reconciles room occupancy windows. Every write for a room runs in a
// transaction holding that room's row lock, so concurrent callers are serialised per room.
type OccupancyService struct {
	rooms     roomLocker
	windows   occupancyWriter
	tx        txProvider
	cache     *CacheService
	notifier  realtime.Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewOccupancyService constructs an OccupancyService.
func NewOccupancyService(params OccupancyServiceParams) *OccupancyService {
	validate := params.Validator
	if validate == nil {
		validate = validation.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupancyService{
		rooms:     params.Rooms,
		windows:   params.Windows,
		tx:        params.Tx,
		cache:     params.Cache,
		notifier:  notifierOrNop(params.Notifier),
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// SetRoomStatus closes every window of the room that has not ended and, unless the room is
// being vacated, opens one new window owned by the caller's branch. Windows already running
// are cut short at the current instant; windows that have not started are removed.
func (s *OccupancyService) SetRoomStatus(ctx context.Context, actor *models.JWTClaims, roomID string, req dto.SetRoomStatusRequest) (result *dto.SetRoomStatusResult, err error) {
	defer func() { s.metrics.RecordStatusChange(string(req.Status), err) }()

	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var window *models.OccupancyWindow
	if req.Status != models.StatusVacant {
		if !req.EndTime.After(*req.StartTime) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
		}
		occupiedBy := actor.UserID
		window = &models.OccupancyWindow{
			ID:          uuid.NewString(),
			ClassroomID: roomID,
			Branch:      actor.Branch,
			Status:      req.Status,
			ClassName:   req.ClassName,
			Subject:     req.Subject,
			Purpose:     req.Purpose,
			StartTime:   req.StartTime.UTC(),
			EndTime:     req.EndTime.UTC(),
			OccupiedBy:  &occupiedBy,
		}
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.rooms.LockForUpdate(ctx, tx, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "room not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock room")
		return nil, err
	}

	now := s.now().UTC()
	result = &dto.SetRoomStatusResult{RoomID: roomID, Status: req.Status}

	if result.Closed, err = s.windows.CloseStarted(ctx, tx, roomID, now); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close current occupancy")
		return nil, err
	}
	if result.Removed, err = s.windows.DeleteFrom(ctx, tx, roomID, now); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear upcoming occupancy")
		return nil, err
	}

	if window != nil {
		window.CreatedAt = now
		if err = s.windows.Insert(ctx, tx, window); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record occupancy")
			return nil, err
		}
		result.Window = window
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit occupancy change")
		return nil, err
	}

	s.logger.Info("room status changed",
		zap.String("room_id", roomID),
		zap.String("status", string(req.Status)),
		zap.String("actor", actor.UserID),
		zap.Int64("closed", result.Closed),
		zap.Int64("removed", result.Removed),
	)
	s.changed(ctx)
	return result, nil
}

// OccupySlot claims [window.StartTime, window.EndTime) for the window's room. Windows that
// started earlier and run into the interval are cut at its start; windows that start inside
// it are removed. It returns how many windows were truncated and removed.
func (s *OccupancyService) OccupySlot(ctx context.Context, window *models.OccupancyWindow) (truncated, removed int64, err error) {
	if !window.EndTime.After(window.StartTime) {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "slot end must be after slot start")
	}
	if s.tx == nil {
		return 0, 0, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.rooms.LockForUpdate(ctx, tx, window.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "room not found")
			return 0, 0, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock room")
		return 0, 0, err
	}

	if truncated, err = s.windows.TruncateOverlapping(ctx, tx, window.ClassroomID, window.StartTime); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to truncate overlapping occupancy")
		return 0, 0, err
	}
	if removed, err = s.windows.DeleteStartingWithin(ctx, tx, window.ClassroomID, window.StartTime, window.EndTime); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove overlapping occupancy")
		return 0, 0, err
	}
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = s.now().UTC()
	}
	if err = s.windows.Insert(ctx, tx, window); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record occupancy")
		return 0, 0, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit occupancy change")
		return 0, 0, err
	}

	s.changed(ctx)
	return truncated, removed, nil
}

func (s *OccupancyService) changed(ctx context.Context) {
	s.cache.Invalidate(ctx, gridCachePattern)
	s.notifier.Publish(realtime.Event{Collection: realtime.CollectionOccupancy, Op: realtime.OpUpdate, At: s.now().UTC()})
}
