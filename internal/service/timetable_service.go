package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/validation"
)

type timetableStore interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlot, error)
	Create(ctx context.Context, slot *models.TimetableSlot) error
	Delete(ctx context.Context, id string, branch models.Branch) error
}

type roomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type slotOccupier interface {
	OccupySlot(ctx context.Context, window *models.OccupancyWindow) (truncated, removed int64, err error)
}

// TimetableServiceParams groups constructor dependencies.
type TimetableServiceParams struct {
	Slots       timetableStore
	Rooms       roomFinder
	Occupancy   slotOccupier
	Notifier    realtime.Notifier
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Location    *time.Location
	Parallelism int
}

// TimetableService manages weekly slots and projects them onto daily occupancy.
type TimetableService struct {
	slots       timetableStore
	rooms       roomFinder
	occupancy   slotOccupier
	notifier    realtime.Notifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	location    *time.Location
	parallelism int
	now         func() time.Time
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(params TimetableServiceParams) *TimetableService {
	validate := params.Validator
	if validate == nil {
		validate = validation.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	parallelism := params.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	return &TimetableService{
		slots:       params.Slots,
		rooms:       params.Rooms,
		occupancy:   params.Occupancy,
		notifier:    notifierOrNop(params.Notifier),
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		location:    loc,
		parallelism: parallelism,
		now:         time.Now,
	}
}

// List returns the caller's branch timetable ordered by day then start time.
func (s *TimetableService) List(ctx context.Context, actor *models.JWTClaims, dayOfWeek *int) ([]models.TimetableSlot, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	slots, err := s.slots.List(ctx, models.TimetableFilter{Branch: actor.Branch, DayOfWeek: dayOfWeek})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return slots, nil
}

// Create adds one slot for the caller's branch.
func (s *TimetableService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateTimetableSlotRequest) (*models.TimetableSlot, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.StartTime >= req.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if _, err := s.rooms.FindByID(ctx, req.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown room")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	slot := &models.TimetableSlot{
		ClassroomID: req.ClassroomID,
		Branch:      actor.Branch,
		DayOfWeek:   *req.DayOfWeek,
		StartTime:   withSeconds(req.StartTime),
		EndTime:     withSeconds(req.EndTime),
		ClassName:   req.ClassName,
		Subject:     req.Subject,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable slot")
	}
	s.notifier.Publish(realtime.Event{Collection: realtime.CollectionTimetable, Op: realtime.OpInsert, At: s.now().UTC()})
	return slot, nil
}

// Delete removes a slot that belongs to the caller's branch.
func (s *TimetableService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	if err := s.slots.Delete(ctx, id, actor.Branch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable slot")
	}
	s.notifier.Publish(realtime.Event{Collection: realtime.CollectionTimetable, Op: realtime.OpDelete, At: s.now().UTC()})
	return nil
}

// SyncToday projects the caller's branch slots for today onto occupancy.
func (s *TimetableService) SyncToday(ctx context.Context, actor *models.JWTClaims) (*dto.SyncResult, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	occupiedBy := actor.UserID
	return s.SyncBranch(ctx, actor.Branch, s.Today(), &occupiedBy)
}

// Today returns the current calendar date in the configured location.
func (s *TimetableService) Today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

// SyncBranch projects every slot of branch scheduled on day's weekday onto day's calendar date.
// Slots are applied independently and concurrently; one slot failing does not undo the
// others. The returned error is reserved for failures that prevent any slot from being attempted.
func (s *TimetableService) SyncBranch(ctx context.Context, branch models.Branch, day time.Time, occupiedBy *string) (*dto.SyncResult, error) {
	started := time.Now()
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.location)
	weekday := int(day.Weekday())

	slots, err := s.slots.List(ctx, models.TimetableFilter{Branch: branch, DayOfWeek: &weekday})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable for sync")
	}

	result := &dto.SyncResult{
		Date:     day.Format("2006-01-02"),
		Branch:   branch,
		Total:    len(slots),
		Outcomes: make([]dto.SyncOutcome, len(slots)),
	}

	sem := make(chan struct{}, s.parallelism)
	var wg sync.WaitGroup
	for i := range slots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			result.Outcomes[i] = s.syncSlot(ctx, day, slots[i], branch, occupiedBy)
		}(i)
	}
	wg.Wait()

	for _, outcome := range result.Outcomes {
		if outcome.Succeeded {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	s.metrics.RecordSync(result.Succeeded, result.Failed, time.Since(started))
	s.logger.Info("timetable sync finished",
		zap.String("branch", string(branch)),
		zap.String("date", result.Date),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *TimetableService) syncSlot(ctx context.Context, day time.Time, slot models.TimetableSlot, branch models.Branch, occupiedBy *string) dto.SyncOutcome {
	outcome := dto.SyncOutcome{SlotID: slot.ID, ClassroomID: slot.ClassroomID, ClassName: slot.ClassName}

	start, err := timeOnDay(day, slot.StartTime)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	end, err := timeOnDay(day, slot.EndTime)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	subject := slot.Subject
	window := &models.OccupancyWindow{
		ClassroomID: slot.ClassroomID,
		Branch:      branch,
		Status:      models.StatusOccupied,
		ClassName:   slot.ClassName,
		Subject:     &subject,
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		OccupiedBy:  occupiedBy,
	}
	truncated, removed, err := s.occupancy.OccupySlot(ctx, window)
	if err != nil {
		s.logger.Warn("timetable slot sync failed", zap.String("slot_id", slot.ID), zap.Error(err))
		outcome.Error = appErrors.FromError(err).Message
		return outcome
	}
	outcome.Succeeded = true
	outcome.WindowID = window.ID
	outcome.Truncated = truncated
	outcome.Removed = removed
	return outcome
}

// timeOnDay places a HH:MM[:SS] time of day on day's calendar date in day's location.
func timeOnDay(day time.Time, clock string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time of day %q", clock)
}

func withSeconds(hhmm string) string {
	return hhmm + ":00"
}
