package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/export"
)

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type timetableLister interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSlot, error)
}

// ExportService renders a branch timetable as CSV, PDF or XLSX.
type ExportService struct {
	slots     timetableLister
	rooms     roomLister
	renderers map[dto.ExportFormat]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(slots timetableLister, rooms roomLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		slots: slots,
		rooms: rooms,
		renderers: map[dto.ExportFormat]export.Renderer{
			dto.ExportFormatCSV:  export.NewCSVExporter(),
			dto.ExportFormatPDF:  export.NewPDFExporter(),
			dto.ExportFormatXLSX: export.NewXLSXExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Timetable renders the caller's branch timetable. The CSV and XLSX layouts use the
// import columns, so an exported file can be uploaded again unchanged.
func (s *ExportService) Timetable(ctx context.Context, actor *models.JWTClaims, format dto.ExportFormat) (*dto.ExportFile, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if format == "" {
		format = dto.ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, xlsx")
	}

	slots, err := s.slots.List(ctx, models.TimetableFilter{Branch: actor.Branch})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	roomNumbers := make(map[string]string, len(rooms))
	for _, room := range rooms {
		roomNumbers[room.ID] = room.RoomNumber
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("%s timetable", actor.Branch),
		Headers: dto.ImportColumns,
		Rows:    make([]map[string]string, 0, len(slots)),
	}
	for _, slot := range slots {
		day := fmt.Sprintf("%d", slot.DayOfWeek)
		if format == dto.ExportFormatPDF && slot.DayOfWeek >= 0 && slot.DayOfWeek < len(weekdayNames) {
			day = weekdayNames[slot.DayOfWeek]
		}
		data.Rows = append(data.Rows, map[string]string{
			dto.ImportColumnDayOfWeek: day,
			dto.ImportColumnStartTime: trimSeconds(slot.StartTime),
			dto.ImportColumnEndTime:   trimSeconds(slot.EndTime),
			dto.ImportColumnRoom:      roomNumbers[slot.ClassroomID],
			dto.ImportColumnBranch:    string(slot.Branch),
			dto.ImportColumnClassName: slot.ClassName,
			dto.ImportColumnSubject:   slot.Subject,
		})
	}

	content, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("timetable exported",
		zap.String("branch", string(actor.Branch)),
		zap.String("format", string(format)),
		zap.Int("rows", len(slots)),
	)
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("timetable-%s-%s.%s", strings.ToLower(string(actor.Branch)), s.now().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

// trimSeconds turns a stored HH:MM:SS into the HH:MM accepted on import.
func trimSeconds(clock string) string {
	if len(clock) == len("15:04:05") {
		return clock[:5]
	}
	return clock
}
