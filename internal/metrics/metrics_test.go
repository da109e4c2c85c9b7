package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NotNil(t, r.MessagesTotal)
	require.NotNil(t, r.TicksTotal)
	require.NotNil(t, r.StoreOperationsTotal)

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestRecordMessage(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RecordMessage("in", "run")
	r.RecordMessage("in", "run")
	r.RecordMessage("out", "started")

	require.Equal(t, 2.0, testutil.ToFloat64(r.MessagesTotal.WithLabelValues("in", "run")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.MessagesTotal.WithLabelValues("out", "started")))
}

func TestRecordStoreOperation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RecordStoreOperation("save", nil, 10*time.Millisecond)
	r.RecordStoreOperation("save", errors.New("disk full"), 5*time.Millisecond)
	r.RecordStoreOperation("save", nil, 20*time.Millisecond)

	counter, err := r.StoreOperationsTotal.GetMetricWithLabelValues("save", "success")
	require.NoError(t, err)
	var metric dto.Metric
	require.NoError(t, counter.Write(&metric))
	require.Equal(t, 2.0, metric.GetCounter().GetValue())
	require.Equal(t, 1.0, testutil.ToFloat64(r.StoreOperationsTotal.WithLabelValues("save", "error")))
}

func TestRecordUpdate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RecordUpdate(3, time.Millisecond)
	r.RecordUpdate(0, time.Millisecond)
	r.RecordTreeResult("success")
	require.Equal(t, 3.0, testutil.ToFloat64(r.TicksTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(r.TreeResultsTotal.WithLabelValues("success")))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RunningTrees.Set(2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "bti_running_trees 2"), body)
	require.Contains(t, body, "go_goroutines")
}
