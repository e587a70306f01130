package jobs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/authz"
	jobmetrics "github.com/scholaris/scholaris/internal/jobs"
)

func TestWarmupHandleBadPayloadSkipsRetry(t *testing.T) {
	job := NewPermissionsWarmupJob(authz.NewResolver(nil, nil), nil, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskPermissionsWarmup, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWarmupHandleRecordsFailureOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	// Nil pool makes the run fail after the tracker has started.
	job := NewPermissionsWarmupJob(authz.NewResolver(nil, nil), nil, nil, metrics)

	task, err := NewPermissionsWarmupTask(PermissionsWarmupPayload{})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))

	body := scrapeRegistry(t, registry)
	require.Contains(t, body, `scholaris_job_runs_total{job="authz:permissions_warmup",status="failure"} 1`)
	require.Contains(t, body, `scholaris_job_failures_total{job="authz:permissions_warmup"} 1`)
}

func scrapeRegistry(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(data)
}
