package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type timetableMock struct {
	day *int
}

func (m *timetableMock) List(ctx context.Context, actor *models.JWTClaims, dayOfWeek *int) ([]models.TimetableSlot, error) {
	m.day = dayOfWeek
	return []models.TimetableSlot{}, nil
}

func (m *timetableMock) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateTimetableSlotRequest) (*models.TimetableSlot, error) {
	return &models.TimetableSlot{ID: "s1"}, nil
}

func (m *timetableMock) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if id != "s1" {
		return appErrors.Clone(appErrors.ErrNotFound, "timetable slot not found")
	}
	return nil
}

func (m *timetableMock) SyncToday(ctx context.Context, actor *models.JWTClaims) (*dto.SyncResult, error) {
	return &dto.SyncResult{Total: 2, Succeeded: 1, Failed: 1}, nil
}

type importMock struct {
	filename     string
	content      string
	skipRejected bool
}

func (m *importMock) Preview(ctx context.Context, actor *models.JWTClaims, filename string, r io.Reader) (*dto.ImportPreview, error) {
	raw, _ := io.ReadAll(r)
	m.filename = filename
	m.content = string(raw)
	return &dto.ImportPreview{ImportID: "imp-1"}, nil
}

func (m *importMock) Commit(ctx context.Context, actor *models.JWTClaims, importID string, skipRejected bool) (*dto.CommitImportResult, error) {
	m.skipRejected = skipRejected
	return &dto.CommitImportResult{ImportID: importID, Inserted: 3}, nil
}

type exportMock struct{}

func (exportMock) Timetable(ctx context.Context, actor *models.JWTClaims, format dto.ExportFormat) (*dto.ExportFile, error) {
	if format != dto.ExportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, xlsx")
	}
	return &dto.ExportFile{Filename: "timetable-cse.csv", ContentType: "text/csv", Content: []byte("a,b\n")}, nil
}

func buildTimetableRouter(slots *timetableMock, imports *importMock) *gin.Engine {
	h := NewTimetableHandler(slots, imports, exportMock{})
	router := newTestRouter()
	router.GET("/timetable", h.List)
	router.POST("/timetable", h.Create)
	router.DELETE("/timetable/:id", h.Delete)
	router.POST("/timetable/sync", h.Sync)
	router.POST("/timetable/import/preview", h.PreviewImport)
	router.POST("/timetable/import/:importId/commit", h.CommitImport)
	router.GET("/timetable/export", h.Export)
	return router
}

func TestTimetableHandlerList(t *testing.T) {
	slots := &timetableMock{}
	router := buildTimetableRouter(slots, &importMock{})

	resp := performRequest(router, newRequest(http.MethodGet, "/timetable?day_of_week=3", nil, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, slots.day)
	assert.Equal(t, 3, *slots.day)

	resp = performRequest(router, newRequest(http.MethodGet, "/timetable?day_of_week=9", nil, ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTimetableHandlerCreateSyncAndDelete(t *testing.T) {
	router := buildTimetableRouter(&timetableMock{}, &importMock{})

	resp := performRequest(router, newRequest(http.MethodPost, "/timetable", strings.NewReader(`{"classroom_id":"r1"}`), "application/json"))
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = performRequest(router, newRequest(http.MethodPost, "/timetable/sync", nil, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	env := decodeEnvelope(t, resp)
	assert.JSONEq(t, `{"partial":true}`, string(env["meta"]))

	resp = performRequest(router, newRequest(http.MethodDelete, "/timetable/s1", nil, ""))
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = performRequest(router, newRequest(http.MethodDelete, "/timetable/s2", nil, ""))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTimetableHandlerImportFlow(t *testing.T) {
	imports := &importMock{}
	router := buildTimetableRouter(&timetableMock{}, imports)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "week.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("day_of_week\n1\n"))
	require.NoError(t, writer.Close())

	resp := performRequest(router, newRequest(http.MethodPost, "/timetable/import/preview", body, writer.FormDataContentType()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "week.csv", imports.filename)
	assert.Equal(t, "day_of_week\n1\n", imports.content)

	resp = performRequest(router, newRequest(http.MethodPost, "/timetable/import/preview", strings.NewReader(""), "multipart/form-data; boundary=x"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = performRequest(router, newRequest(http.MethodPost, "/timetable/import/imp-1/commit", strings.NewReader(`{"skip_rejected":true}`), "application/json"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, imports.skipRejected)

	resp = performRequest(router, newRequest(http.MethodPost, "/timetable/import/imp-1/commit", nil, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, imports.skipRejected)
	assert.Contains(t, resp.Body.String(), `"import_id":"imp-1"`)
}

func TestTimetableHandlerExport(t *testing.T) {
	router := buildTimetableRouter(&timetableMock{}, &importMock{})

	resp := performRequest(router, newRequest(http.MethodGet, "/timetable/export", nil, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable-cse.csv"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", resp.Body.String())

	resp = performRequest(router, newRequest(http.MethodGet, "/timetable/export?format=docx", nil, ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
