package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/middleware"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

type timetableService interface {
	List(ctx context.Context, actor *models.JWTClaims, dayOfWeek *int) ([]models.TimetableSlot, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateTimetableSlotRequest) (*models.TimetableSlot, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	SyncToday(ctx context.Context, actor *models.JWTClaims) (*dto.SyncResult, error)
}

type importService interface {
	Preview(ctx context.Context, actor *models.JWTClaims, filename string, r io.Reader) (*dto.ImportPreview, error)
	Commit(ctx context.Context, actor *models.JWTClaims, importID string, skipRejected bool) (*dto.CommitImportResult, error)
}

type exportService interface {
	Timetable(ctx context.Context, actor *models.JWTClaims, format dto.ExportFormat) (*dto.ExportFile, error)
}

// TimetableHandler exposes the branch timetable, its import and export, and the daily sync.
type TimetableHandler struct {
	timetable timetableService
	imports   importService
	exports   exportService
}

// NewTimetableHandler constructs a TimetableHandler.
func NewTimetableHandler(timetable timetableService, imports importService, exports exportService) *TimetableHandler {
	return &TimetableHandler{timetable: timetable, imports: imports, exports: exports}
}

// List godoc
// @Summary List branch timetable
// @Tags Timetable
// @Produce json
// @Param day_of_week query int false "0 (Sunday) to 6"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var day *int
	if raw := c.Query("day_of_week"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 6 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be an integer between 0 and 6"))
			return
		}
		day = &parsed
	}
	slots, err := h.timetable.List(c.Request.Context(), claimsFromContext(c), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(slots))
	ok(c, http.StatusOK, slots)
}

// Create godoc
// @Summary Add a timetable slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req dto.CreateTimetableSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err, "invalid timetable payload")
		return
	}
	slot, err := h.timetable.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Delete godoc
// @Summary Delete a timetable slot
// @Tags Timetable
// @Param id path string true "Slot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.timetable.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Sync godoc
// @Summary Sync today's timetable to occupancy
// @Description Applies every slot of today for the caller's branch; one outcome per slot
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/sync [post]
func (h *TimetableHandler) Sync(c *gin.Context) {
	result, err := h.timetable.SyncToday(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "partial", result.Failed > 0 && result.Succeeded > 0)
	ok(c, http.StatusOK, result)
}

// PreviewImport godoc
// @Summary Preview a timetable file
// @Description Validates every row of an uploaded CSV or XLSX file without writing anything
// @Tags Timetable
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Timetable file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/import/preview [post]
func (h *TimetableHandler) PreviewImport(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badPayload(c, err, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		badPayload(c, err, "file could not be read")
		return
	}
	defer file.Close()

	preview, err := h.imports.Preview(c.Request.Context(), claimsFromContext(c), header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, http.StatusOK, preview)
}

// CommitImport godoc
// @Summary Commit a previewed import
// @Tags Timetable
// @Accept json
// @Produce json
// @Param importId path string true "Import ID"
// @Param payload body dto.CommitImportRequest false "Commit options"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/import/{importId}/commit [post]
func (h *TimetableHandler) CommitImport(c *gin.Context) {
	var req dto.CommitImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badPayload(c, err, "invalid commit payload")
			return
		}
	}
	result, err := h.imports.Commit(c.Request.Context(), claimsFromContext(c), c.Param("importId"), req.SkipRejected)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// Export godoc
// @Summary Download the branch timetable
// @Tags Timetable
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.exports.Timetable(c.Request.Context(), claimsFromContext(c), dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
