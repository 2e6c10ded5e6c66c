package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun(nil)
		m.ObserveStage("provision", time.Second, errors.New("boom"))
		m.RecordTeardownFailure()
		m.AddMigrations(3)
		m.AddGeneratedFiles(2)
		assert.NoError(t, m.Push(context.Background(), "http://unused", "dockgen"))
	})
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRun(nil)
	m.RecordRun(errors.New("failed"))
	m.RecordRun(errors.New("failed again"))
	m.ObserveStage("readiness", 2*time.Second, errors.New("timeout"))
	m.ObserveStage("provision", time.Second, nil)
	m.RecordTeardownFailure()
	m.AddMigrations(4)
	m.AddMigrations(0)
	m.AddGeneratedFiles(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailuresTotal.WithLabelValues("readiness")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageFailuresTotal.WithLabelValues("provision")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TeardownFailuresTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.MigrationsApplied))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.GeneratedFilesTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestMetrics_Push(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewMetrics(prometheus.NewRegistry())
	m.RecordRun(nil)

	require.NoError(t, m.Push(context.Background(), server.URL, "dockgen"))
	assert.Equal(t, "/metrics/job/dockgen", gotPath)
	assert.NotEmpty(t, gotBody)

	assert.NoError(t, m.Push(context.Background(), "", "dockgen"), "empty url disables pushing")
}

func TestMetrics_PushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := NewMetrics(prometheus.NewRegistry())
	err := m.Push(context.Background(), server.URL, "dockgen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), server.URL)
}
