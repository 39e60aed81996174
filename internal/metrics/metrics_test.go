package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMutation("DEPOSIT", "ok", time.Millisecond)
		m.RecordConflict()
		m.RecordRejection("rate")
		m.SlotAcquired()
		m.SlotReleased()
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
	})
}

func TestRecordMutation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordMutation("WITHDRAW", "InsufficientFunds", time.Millisecond)
	m.RecordMutation("WITHDRAW", "InsufficientFunds", time.Millisecond)
	m.RecordRejection("rate")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MutationsTotal.WithLabelValues("WITHDRAW", "InsufficientFunds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdmissionRejections.WithLabelValues("rate")))
}

func TestHTTPMetricsMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(HTTPMetricsMiddleware(m))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", Handler(reg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wallets_http_requests_total")
}
