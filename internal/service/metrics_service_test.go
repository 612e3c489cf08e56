package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService(func() int { return 3 })

	m.RecordStatusChange("occupied", nil)
	m.RecordStatusChange("occupied", errors.New("boom"))
	m.RecordSync(2, 1, time.Second)
	m.RecordImportPreview(4, 1)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("occupied", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.syncSlots.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importRows.WithLabelValues("rejected")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "classtrack_realtime_subscribers 3")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordStatusChange("vacant", nil)
	m.RecordSync(1, 0, time.Second)
	m.RecordChatMessage("accepted")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
