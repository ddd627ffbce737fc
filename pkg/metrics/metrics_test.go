package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func histogramCount(t *testing.T, h prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := h.(prometheus.Metric)
	require.True(t, ok)

	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestInitMetrics_Idempotent(t *testing.T) {
	InitMetrics()
	first := LoanOperationsTotal
	InitMetrics()
	assert.Same(t, first, LoanOperationsTotal)
}

func TestRecordLoan(t *testing.T) {
	before := testutil.ToFloat64(func() prometheus.Counter {
		InitMetrics()
		return LoanOperationsTotal.WithLabelValues("borrow", "success")
	}())

	RecordLoan("borrow", "success")
	RecordLoan("borrow", "success")
	RecordLoan("borrow", "limit_exceeded")

	assert.Equal(t, before+2, testutil.ToFloat64(LoanOperationsTotal.WithLabelValues("borrow", "success")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(LoanOperationsTotal.WithLabelValues("borrow", "limit_exceeded")), 1.0)
}

func TestGaugesAndCounters(t *testing.T) {
	SetOverdueLoans(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(OverdueLoans))
	SetOverdueLoans(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(OverdueLoans))

	RecordBreakerState("payment-gateway", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(CircuitBreakerState.WithLabelValues("payment-gateway")))

	before := testutil.ToFloat64(LateFeesCollected)
	AddLateFeesCollected(3.5)
	assert.InDelta(t, before+3.5, testutil.ToFloat64(LateFeesCollected), 1e-9)
}

func TestRecordSaga(t *testing.T) {
	InitMetrics()
	failures := testutil.ToFloat64(SagaExecutionsTotal.WithLabelValues("test-saga", "failure"))
	compensations := testutil.ToFloat64(SagaCompensationsTotal.WithLabelValues("test-saga"))
	observed := histogramCount(t, SagaExecutionDuration.WithLabelValues("test-saga"))

	RecordSaga("test-saga", time.Now(), errors.New("boom"), true)

	assert.Equal(t, failures+1, testutil.ToFloat64(SagaExecutionsTotal.WithLabelValues("test-saga", "failure")))
	assert.Equal(t, compensations+1, testutil.ToFloat64(SagaCompensationsTotal.WithLabelValues("test-saga")))
	assert.Equal(t, observed+1, histogramCount(t, SagaExecutionDuration.WithLabelValues("test-saga")))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/v1/books/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/books/:id", "200"))

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/books/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, before+2, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/books/:id", "200")), "按路由模板聚合")
	assert.GreaterOrEqual(t, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")), 1.0)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "library_overdue_loans"))
}
