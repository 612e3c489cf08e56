package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/realtime"
	"github.com/classtrack/classtrack-api/pkg/tabular"
)

const defaultImportMaxBytes int64 = 2 * 1024 * 1024

type roomLister interface {
	List(ctx context.Context) ([]models.Room, error)
}

type timetableBatchWriter interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) (int64, error)
}

// ImportServiceParams groups constructor dependencies.
type ImportServiceParams struct {
	Rooms      roomLister
	Slots      timetableBatchWriter
	Tx         txProvider
	Notifier   realtime.Notifier
	Metrics    *MetricsService
	Logger     *zap.Logger
	PreviewTTL time.Duration
	MaxBytes   int64
}

// ImportService turns uploaded timetable files into reviewed previews and commits them.
type ImportService struct {
	rooms    roomLister
	slots    timetableBatchWriter
	tx       txProvider
	notifier realtime.Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	maxBytes int64
	store    *previewStore
	now      func() time.Time
}

// NewImportService constructs an ImportService.
func NewImportService(params ImportServiceParams) *ImportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.PreviewTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	maxBytes := params.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultImportMaxBytes
	}
	svc := &ImportService{
		rooms:    params.Rooms,
		slots:    params.Slots,
		tx:       params.Tx,
		notifier: notifierOrNop(params.Notifier),
		metrics:  params.Metrics,
		logger:   logger,
		maxBytes: maxBytes,
		now:      time.Now,
	}
	svc.store = newPreviewStore(ttl, func() time.Time { return svc.now() })
	return svc
}

// Preview parses a CSV or XLSX file, validates every row against the room catalogue and
// the caller's branch, and keeps the result so it can be committed later.
func (s *ImportService) Preview(ctx context.Context, actor *models.JWTClaims, filename string, r io.Reader) (*dto.ImportPreview, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "failed to read upload")
	}
	if int64(len(raw)) > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	records, err := tabular.Read(filename, bytes.NewReader(raw))
	if err != nil {
		switch {
		case errors.Is(err, tabular.ErrUnsupportedFormat):
			return nil, appErrors.Clone(appErrors.ErrValidation, "file must be .csv or .xlsx")
		case errors.Is(err, tabular.ErrEmptyFile):
			return nil, appErrors.Clone(appErrors.ErrValidation, "file has no header row")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file could not be parsed")
		}
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file has no data rows")
	}

	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	preview := ValidateImport(records, rooms, actor.Branch)
	for i := range preview.Accepted {
		preview.Accepted[i].ID = uuid.NewString()
	}
	preview.ImportID = uuid.NewString()
	preview.Filename = filename

	entry := s.store.Save(importEntry{preview: preview, owner: actor.UserID})
	expires := entry.createdAt.Add(s.store.ttl)
	entry.preview.ExpiresAt = &expires

	s.metrics.RecordImportPreview(preview.AcceptedCount, preview.RejectedCount)
	s.logger.Info("timetable import previewed",
		zap.String("import_id", preview.ImportID),
		zap.String("branch", string(actor.Branch)),
		zap.Int("accepted", preview.AcceptedCount),
		zap.Int("rejected", preview.RejectedCount),
	)
	return &entry.preview, nil
}

// Commit writes the accepted rows of a stored preview in one transaction. Rows are not
// re-validated. Slot ids were fixed at preview time, so a retried commit inserts nothing new.
func (s *ImportService) Commit(ctx context.Context, actor *models.JWTClaims, importID string, skipRejected bool) (result *dto.CommitImportResult, err error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	entry, ok := s.store.Get(importID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import preview not found or expired")
	}
	if entry.owner != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "import preview belongs to another user")
	}
	preview := entry.preview
	if preview.RejectedCount > 0 && !skipRejected {
		return nil, appErrors.Clone(appErrors.ErrConflict, "preview has rejected rows; set skip_rejected to import the accepted rows only")
	}
	if preview.AcceptedCount == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "preview has no accepted rows")
	}

	defer func() { s.metrics.RecordImportCommit(err) }()

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

	inserted, err := s.slots.InsertBatch(ctx, tx, preview.Accepted)
	if err != nil {
		s.logger.Error("timetable import failed", zap.String("import_id", importID), zap.Error(err))
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "import failed; no rows were written")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "import failed; no rows were written")
		return nil, err
	}

	if inserted > 0 {
		s.notifier.Publish(realtime.Event{Collection: realtime.CollectionTimetable, Op: realtime.OpInsert, At: s.now().UTC()})
	}
	s.logger.Info("timetable import committed",
		zap.String("import_id", importID),
		zap.Int64("inserted", inserted),
		zap.Int("skipped", preview.RejectedCount),
	)
	return &dto.CommitImportResult{ImportID: importID, Inserted: inserted, Skipped: preview.RejectedCount}, nil
}

type importEntry struct {
	preview   dto.ImportPreview
	owner     string
	createdAt time.Time
}

// previewStore keeps previews in memory until they expire.
type previewStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]importEntry
}

func newPreviewStore(ttl time.Duration, now func() time.Time) *previewStore {
	return &previewStore{
		ttl:   ttl,
		now:   now,
		items: make(map[string]importEntry),
	}
}

// Save stores entry and drops anything already expired.
func (s *previewStore) Save(entry importEntry) importEntry {
	now := s.now()
	entry.createdAt = now
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.items {
		if now.Sub(item.createdAt) > s.ttl {
			delete(s.items, id)
		}
	}
	s.items[entry.preview.ImportID] = entry
	return entry
}

func (s *previewStore) Get(id string) (importEntry, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return importEntry{}, false
	}
	if s.now().Sub(entry.createdAt) > s.ttl {
		s.Delete(id)
		return importEntry{}, false
	}
	return entry, true
}

func (s *previewStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
