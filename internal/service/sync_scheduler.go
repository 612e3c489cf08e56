package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/jobs"
)

// JobTypeBranchSync identifies scheduled per-branch timetable syncs.
const JobTypeBranchSync = "timetable.sync"

type branchSyncer interface {
	SyncBranch(ctx context.Context, branch models.Branch, day time.Time, occupiedBy *string) (*dto.SyncResult, error)
}

// BranchSyncJob is the payload of a scheduled sync. Date is the calendar day the run
// was scheduled for, so a retry after midnight still syncs that day.
type BranchSyncJob struct {
	Branch models.Branch
	Date   string
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SyncScheduler projects every branch timetable onto occupancy once a day.
type SyncScheduler struct {
	syncer   branchSyncer
	queue    jobEnqueuer
	hour     int
	minute   int
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncScheduler builds a scheduler firing daily at the HH:MM given by at, in loc.
func NewSyncScheduler(syncer branchSyncer, queue jobEnqueuer, at string, loc *time.Location, logger *zap.Logger) (*SyncScheduler, error) {
	clock, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("parse sync time %q: %w", at, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		syncer:   syncer,
		queue:    queue,
		hour:     clock.Hour(),
		minute:   clock.Minute(),
		location: loc,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SetQueue attaches the queue once it has been built around Handle.
func (s *SyncScheduler) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// NextRun returns the first scheduled instant strictly after t.
func (s *SyncScheduler) NextRun(t time.Time) time.Time {
	local := t.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, s.location)
	}
	return next
}

// Run blocks until ctx is cancelled, enqueueing one sync per branch at every scheduled time.
func (s *SyncScheduler) Run(ctx context.Context) {
	for {
		next := s.NextRun(s.now())
		s.logger.Info("next timetable sync scheduled", zap.Time("at", next))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.EnqueueAll()
		}
	}
}

// EnqueueAll queues a sync job for every branch.
func (s *SyncScheduler) EnqueueAll() int {
	date := s.now().In(s.location).Format("2006-01-02")
	queued := 0
	for _, branch := range models.AllBranches() {
		job := jobs.Job{
			ID:      fmt.Sprintf("sync-%s-%s", branch, date),
			Type:    JobTypeBranchSync,
			Payload: BranchSyncJob{Branch: branch, Date: date},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue timetable sync", zap.String("branch", string(branch)), zap.Error(err))
			continue
		}
		queued++
	}
	return queued
}

// Handle runs one queued branch sync. A result with failed slots is returned as an error so
// the queue retries it; re-applying a slot replaces the window written on the previous attempt.
func (s *SyncScheduler) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(BranchSyncJob)
	if !ok || !payload.Branch.Valid() {
		s.logger.Error("discarding sync job with invalid payload", zap.String("job_id", job.ID))
		return nil
	}
	day, err := time.ParseInLocation("2006-01-02", payload.Date, s.location)
	if err != nil {
		s.logger.Error("discarding sync job with invalid date", zap.String("job_id", job.ID), zap.String("date", payload.Date))
		return nil
	}
	result, err := s.syncer.SyncBranch(ctx, payload.Branch, day, nil)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d slots failed for %s on %s", result.Failed, result.Total, payload.Branch, payload.Date)
	}
	return nil
}
