package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/metrics"
)

func TestRecorder_CuentaPorEtiquetas(t *testing.T) {
	rec := metrics.NewWithRegistry(prometheus.NewRegistry())

	rec.ObserveOperation("process", "TRANSFER", "OK", 10*time.Millisecond)
	rec.ObserveOperation("process", "TRANSFER", "OK", 20*time.Millisecond)
	rec.ObserveOperation("process", "TRANSFER", "INSUFFICIENT_STOCK", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.Counter("process", "TRANSFER", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Counter("process", "TRANSFER", "INSUFFICIENT_STOCK")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.Counter("cancel", "TRANSFER", "OK")))
}

func TestRecorder_HandlerExponeMetricas(t *testing.T) {
	rec := metrics.NewWithRegistry(prometheus.NewRegistry())
	rec.ObserveOperation("create", "ADJUSTMENT", "OK", 5*time.Millisecond)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sanmarino_movements_operations_total{operation="create",result="OK",type="ADJUSTMENT"} 1`)
	assert.Contains(t, string(body), "sanmarino_movements_operation_duration_seconds_bucket")
}
