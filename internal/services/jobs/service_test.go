package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/httpexec"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
	"github.com/ternarybob/tento/internal/services/expansion"
	"github.com/ternarybob/tento/internal/storage/badger"
)

type jobHarness struct {
	service   interfaces.JobService
	expansion interfaces.ExpansionService
	storage   interfaces.StorageManager
	server    *httptest.Server
}

func newJobHarness(t *testing.T) *jobHarness {
	t.Helper()

	logger := common.GetLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	config := common.NewDefaultConfig()
	config.Executor.DispatchInterval = "100ms"

	service := NewService(manager, httpexec.NewExecutor(logger, &config.Executor), nil, logger, &config.Executor)
	require.NoError(t, service.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = service.Stop(stopCtx)
	})

	return &jobHarness{
		service:   service,
		expansion: expansion.NewService(manager, nil, logger, &config.Fuzzer),
		storage:   manager,
		server:    server,
	}
}

func (h *jobHarness) httpConfig() models.HTTPConfig {
	config := models.DefaultHTTPConfig()
	config.BaseURL = strings.TrimPrefix(h.server.URL, "http://")
	config.Timeout = 5
	return config
}

// createRun expands a sniper template with the given payloads and
// returns the run id.
func (h *jobHarness) createRun(t *testing.T, payloads ...string) uint64 {
	t.Helper()
	resp, err := h.expansion.ExpandPlaceholders(context.Background(), &models.PlaceholderRequest{
		Template:    "GET /item?q=<<>> HTTP/1.1\nHost: placeholder.invalid\n\n",
		Strategy:    "sniper",
		PayloadSets: []models.PayloadSet{{Name: "s", Payloads: payloads}},
	})
	require.NoError(t, err)
	return resp.RequestID
}

func waitForStatus(t *testing.T, service interfaces.JobService, id string, status models.JobStatus, within time.Duration) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = service.GetJob(context.Background(), id)
		return err == nil && job.Status == status
	}, within, 20*time.Millisecond, "job %s did not reach %s", id, status)
	return job
}

func TestService_JobRunsToCompletion(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a", "b")
	job, err := h.service.CreateJob(ctx, runID, "", h.httpConfig())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 3, job.Progress.TotalRequests)

	done := waitForStatus(t, h.service, job.ID, models.JobStatusCompleted, 10*time.Second)
	assert.Equal(t, 3, done.Progress.CompletedRequests)
	assert.Equal(t, 3, done.Progress.SuccessfulRequests)
	assert.Zero(t, done.Progress.FailedRequests)
	assert.NotNil(t, done.Progress.StartTime)
	assert.NotNil(t, done.Progress.EndTime)

	// Ordinals are contiguous from 1 and include the seed row.
	results, err := h.storage.Results().GetResults(ctx, job.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, result := range results {
		assert.Equal(t, i+1, result.Ordinal)
		assert.True(t, result.Success)
		require.NotNil(t, result.Response)
		assert.Equal(t, http.StatusOK, result.Response.StatusCode)
		assert.NotEmpty(t, result.Response.ActualRequest)
	}
	assert.True(t, results[0].Provenance.IsSeed())
}

func TestService_CreateJobUnknownRun(t *testing.T) {
	h := newJobHarness(t)

	_, err := h.service.CreateJob(context.Background(), 424242, "", h.httpConfig())
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestService_TransportFailuresCountAsFailed(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a")
	config := h.httpConfig()
	config.BaseURL = "127.0.0.1:1"
	config.Timeout = 2

	job, err := h.service.CreateJob(ctx, runID, "", config)
	require.NoError(t, err)

	// Transport failures are recorded per result; the job still
	// completes.
	done := waitForStatus(t, h.service, job.ID, models.JobStatusCompleted, 15*time.Second)
	assert.Equal(t, 2, done.Progress.CompletedRequests)
	assert.Equal(t, 2, done.Progress.FailedRequests)
	assert.Zero(t, done.Progress.SuccessfulRequests)

	results, err := h.storage.Results().GetResults(ctx, job.ID, 0, 0)
	require.NoError(t, err)
	for _, result := range results {
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
		assert.Zero(t, result.Response.StatusCode)
	}
}

func TestService_CancelDuringSequentialDelay(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a", "b", "c", "d", "e", "f", "g", "h", "i")
	config := h.httpConfig()
	config.SequentialExecution = true
	config.RequestDelay = 2.0

	job, err := h.service.CreateJob(ctx, runID, "", config)
	require.NoError(t, err)

	// Wait until at least two requests completed, then cancel.
	require.Eventually(t, func() bool {
		current, err := h.service.GetJob(ctx, job.ID)
		return err == nil && current.Progress.CompletedRequests >= 2
	}, 15*time.Second, 20*time.Millisecond)

	before, err := h.service.GetJob(ctx, job.ID)
	require.NoError(t, err)
	cancelledAt := before.Progress.CompletedRequests

	require.NoError(t, h.service.StopJob(ctx, job.ID))
	done := waitForStatus(t, h.service, job.ID, models.JobStatusCancelled, 1500*time.Millisecond)

	// At most the in-flight request finishes after the cancel.
	assert.LessOrEqual(t, done.Progress.CompletedRequests, cancelledAt+1)

	count, err := h.storage.Results().CountResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, done.Progress.CompletedRequests, count)

	// No further results get written once cancelled.
	time.Sleep(300 * time.Millisecond)
	after, err := h.storage.Results().CountResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, count, after)
}

func TestService_CancelPendingJob(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	// Saturate the dispatcher with slow sequential jobs so a later job
	// stays pending.
	runID := h.createRun(t, "a", "b", "c")
	slow := h.httpConfig()
	slow.SequentialExecution = true
	slow.RequestDelay = 5

	for i := 0; i < 5; i++ {
		_, err := h.service.CreateJob(ctx, runID, "", slow)
		require.NoError(t, err)
	}
	pending, err := h.service.CreateJob(ctx, runID, "", h.httpConfig())
	require.NoError(t, err)

	require.NoError(t, h.service.StopJob(ctx, pending.ID))
	job, err := h.service.GetJob(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)

	count, err := h.storage.Results().CountResults(ctx, pending.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_StopRejectsTerminalJob(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a")
	job, err := h.service.CreateJob(ctx, runID, "", h.httpConfig())
	require.NoError(t, err)
	waitForStatus(t, h.service, job.ID, models.JobStatusCompleted, 10*time.Second)

	err = h.service.StopJob(ctx, job.ID)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrForbiddenTransition))
}

func TestService_ResumeTruncatesResults(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a", "b", "c", "d")
	config := h.httpConfig()
	config.SequentialExecution = true
	config.RequestDelay = 1.5

	job, err := h.service.CreateJob(ctx, runID, "", config)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := h.service.GetJob(ctx, job.ID)
		return err == nil && current.Progress.CompletedRequests >= 1
	}, 10*time.Second, 20*time.Millisecond)
	require.NoError(t, h.service.StopJob(ctx, job.ID))
	waitForStatus(t, h.service, job.ID, models.JobStatusCancelled, 3*time.Second)

	resumed, err := h.service.ResumeJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, resumed.Status)
	assert.Empty(t, resumed.Error)
	assert.Zero(t, resumed.Progress.CompletedRequests)
	assert.Equal(t, 5, resumed.Progress.TotalRequests)

	done := waitForStatus(t, h.service, job.ID, models.JobStatusCompleted, 30*time.Second)
	assert.Equal(t, 5, done.Progress.CompletedRequests)

	// Exactly one result per request after the resumed attempt.
	results, err := h.storage.Results().GetResults(ctx, job.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, result := range results {
		assert.Equal(t, i+1, result.Ordinal)
	}
}

func TestService_ResumeRejectsNonTerminal(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a")
	job, err := h.service.CreateJob(ctx, runID, "", h.httpConfig())
	require.NoError(t, err)

	_, err = h.service.ResumeJob(ctx, job.ID)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrForbiddenTransition))
}

func TestService_DeleteJobRemovesResults(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a")
	job, err := h.service.CreateJob(ctx, runID, "", h.httpConfig())
	require.NoError(t, err)
	waitForStatus(t, h.service, job.ID, models.JobStatusCompleted, 10*time.Second)

	require.NoError(t, h.service.DeleteJob(ctx, job.ID))

	_, err = h.service.GetJob(ctx, job.ID)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
	count, err := h.storage.Results().CountResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_ExecuteSingle(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "needle")
	resp, err := h.service.ExecuteSingle(ctx, runID, 1, h.httpConfig())
	require.NoError(t, err)

	assert.Equal(t, runID, resp.RequestID)
	assert.Equal(t, 1, resp.Position)
	assert.Contains(t, resp.Request, "needle")
	require.NotNil(t, resp.Response)
	assert.Equal(t, http.StatusOK, resp.Response.StatusCode)

	_, err = h.service.ExecuteSingle(ctx, runID, 99, h.httpConfig())
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestService_CleanupJobs(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a")
	job, err := h.service.CreateJob(ctx, runID, "", h.httpConfig())
	require.NoError(t, err)
	waitForStatus(t, h.service, job.ID, models.JobStatusCompleted, 10*time.Second)

	// Recent terminal job survives a 24h sweep.
	deleted, err := h.service.CleanupJobs(ctx, 24)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// Age the job past the cutoff directly in the store.
	stored, err := h.storage.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	stored.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, h.storage.Jobs().SaveJob(ctx, stored))

	deleted, err = h.service.CleanupJobs(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	count, err := h.storage.Results().CountResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = h.service.CleanupJobs(ctx, -1)
	assert.True(t, models.IsKind(err, models.ErrInvalidInput))
}

func TestService_RecoveryMarksRunningJobsFailed(t *testing.T) {
	logger := common.GetLogger()
	dir := t.TempDir()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: dir})
	require.NoError(t, err)

	// Simulate a crash: a job persisted as RUNNING with partial
	// results, then the process goes away.
	job := models.NewJob("crashed", 1, 4, models.DefaultHTTPConfig())
	require.NoError(t, job.MarkStarted())
	job.Progress.RecordResult(1, true)
	require.NoError(t, manager.Jobs().SaveJob(context.Background(), job))
	require.NoError(t, manager.Results().AppendResult(context.Background(),
		models.NewJobResult(job.ID, 1, "req", models.SeedProvenance(), &models.HTTPResponse{StatusCode: 200})))
	require.NoError(t, manager.Close())

	// Restart against the same directory.
	manager, err = badger.NewManager(logger, &common.BadgerConfig{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	config := common.NewDefaultConfig()
	service := NewService(manager, httpexec.NewExecutor(logger, &config.Executor), nil, logger, &config.Executor)
	require.NoError(t, service.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = service.Stop(stopCtx)
	})

	recovered, err := service.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, recovered.Status)
	assert.Contains(t, recovered.Error, "interrupted")

	// Partial results are intact and the job can be resumed.
	count, err := manager.Results().CountResults(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	resumed, err := service.ResumeJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, resumed.Status)
}

func TestService_Statistics(t *testing.T) {
	h := newJobHarness(t)
	ctx := context.Background()

	runID := h.createRun(t, "a")
	job, err := h.service.CreateJob(ctx, runID, "", h.httpConfig())
	require.NoError(t, err)
	waitForStatus(t, h.service, job.ID, models.JobStatusCompleted, 10*time.Second)

	stats, err := h.service.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalJobs)
	assert.Equal(t, 1, stats.StatusDistribution["completed"])
	assert.Zero(t, stats.ActiveJobs)
}
