package prompush

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/metrics"
)

type gateway struct {
	mu      sync.Mutex
	methods []string
	paths   []string
	status  int
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.methods = append(g.methods, r.Method)
	g.paths = append(g.paths, r.URL.Path)
	w.WriteHeader(g.status)
}

func TestNewBackend_RejectsEmptyArgs(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("", "http://localhost:9091")
	require.Error(t, err)
	_, err = NewBackend("job", "  ")
	require.Error(t, err)
}

func TestBackend_CollectsAndPushes(t *testing.T) {
	t.Parallel()

	gw := &gateway{status: http.StatusOK}
	srv := httptest.NewServer(gw)
	defer srv.Close()

	b, err := NewBackend("istanbul_weather", srv.URL)
	require.NoError(t, err)

	b.IncCounter(metrics.StageTotal, 1, metrics.Labels{"stage": "impute", "status": "ok"})
	b.IncCounter(metrics.StageTotal, 2, metrics.Labels{"stage": "impute", "status": "ok"})
	b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"kind": "loaded"})
	b.IncCounter(metrics.RunsTotal, 1, nil)
	b.IncCounter("unknown_total", 1, nil)
	b.ObserveHistogram(metrics.StageDurationSeconds, (250 * time.Millisecond).Seconds(), metrics.Labels{"stage": "impute", "status": "ok"})

	assert.Equal(t, 3.0, testutil.ToFloat64(b.counters[metrics.StageTotal].WithLabelValues("impute", "ok")))
	assert.Equal(t, 5.0, testutil.ToFloat64(b.counters[metrics.RowsTotal].WithLabelValues("loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.counters[metrics.RunsTotal].WithLabelValues("unknown")))
	assert.NotContains(t, b.counters, "unknown_total")
	assert.Equal(t, 1, testutil.CollectAndCount(b.histograms[metrics.StageDurationSeconds]))

	require.NoError(t, b.Flush())
	require.Len(t, gw.methods, 1)
	assert.Equal(t, http.MethodPut, gw.methods[0])
	assert.Equal(t, "/metrics/job/istanbul_weather", gw.paths[0])
}

func TestBackend_FlushReportsGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&gateway{status: http.StatusInternalServerError})
	defer srv.Close()

	b, err := NewBackend("job", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"status": "error"})

	err = b.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompush: push")
}
