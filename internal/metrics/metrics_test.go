package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFlush(t *testing.T) {
	c := NewCollector("test")
	c.RecordFlush(2, 1, 3)
	c.RecordFlush(1, 0, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.flushed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.retained))
}

func TestRemoteRequestClasses(t *testing.T) {
	c := NewCollector("test")
	c.RecordRemoteRequest("GET", 200)
	c.RecordRemoteRequest("GET", 204)
	c.RecordRemoteRequest("POST", 404)
	c.RecordRemoteRequest("POST", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.remoteRequests.WithLabelValues("GET", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.remoteRequests.WithLabelValues("POST", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.remoteRequests.WithLabelValues("POST", "error")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordFlush(1, 1, 1)
	c.RecordPending(3)
	c.RecordSyncPhase("flush", time.Second)
	c.RecordOnline(true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("lifesync")
	c.RecordPending(4)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "lifesync_queue_pending 4"))
}
