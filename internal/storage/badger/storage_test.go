package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = manager.Close()
	})
	return manager
}

func sampleRun(strategy models.Strategy, total int) *models.CorpusRun {
	return models.NewCorpusRun(
		"GET /item?id=<<id>> HTTP/1.1\nHost: example.com\n\n",
		[]string{"<<id>>"},
		strategy,
		[]models.PayloadSet{{Name: "<<id>>", Payloads: []string{"1", "2"}}},
		total,
	)
}

func sampleRows(n int) []*models.GeneratedRequest {
	rows := make([]*models.GeneratedRequest, 0, n+1)
	rows = append(rows, &models.GeneratedRequest{
		Content:    "GET /item?id= HTTP/1.1\nHost: example.com\n\n",
		Provenance: models.SeedProvenance(),
	})
	for i := 0; i < n; i++ {
		rows = append(rows, &models.GeneratedRequest{
			Content:    "GET /item?id=payload HTTP/1.1\nHost: example.com\n\n",
			Provenance: models.SniperProvenance("payload", i+1),
		})
	}
	return rows
}

func TestCorpusStorage_SaveAndGetRun(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	run := sampleRun(models.StrategySniper, 3)
	rows := sampleRows(2)
	require.NoError(t, manager.Corpus().SaveRun(ctx, run, rows))
	assert.NotZero(t, run.ID)

	got, err := manager.Corpus().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StrategySniper, got.Strategy)
	assert.Equal(t, 3, got.TotalRequests)
	assert.Equal(t, []string{"<<id>>"}, got.Placeholders)
}

func TestCorpusStorage_RunIDsStartAtOne(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	first := sampleRun(models.StrategySniper, 1)
	require.NoError(t, manager.Corpus().SaveRun(ctx, first, sampleRows(0)))
	assert.EqualValues(t, 1, first.ID)

	second := sampleRun(models.StrategySniper, 1)
	require.NoError(t, manager.Corpus().SaveRun(ctx, second, sampleRows(0)))
	assert.EqualValues(t, 2, second.ID)

	// A store reopened over the same database resumes after the
	// highest assigned ID.
	reopened := NewCorpusStorage(manager.db, common.GetLogger())
	third := sampleRun(models.StrategyMutation, 1)
	require.NoError(t, reopened.SaveRun(ctx, third, sampleRows(0)))
	assert.EqualValues(t, 3, third.ID)
}

func TestCorpusStorage_GetRunNotFound(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.Corpus().GetRun(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestCorpusStorage_RequestsInOrdinalOrder(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	run := sampleRun(models.StrategySniper, 3)
	require.NoError(t, manager.Corpus().SaveRun(ctx, run, sampleRows(2)))

	requests, err := manager.Corpus().GetRequests(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	for i, req := range requests {
		assert.Equal(t, i, req.Ordinal)
		assert.Equal(t, run.ID, req.RunID)
	}
	assert.True(t, requests[0].Provenance.IsSeed())

	at, err := manager.Corpus().GetRequestAt(ctx, run.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, at.Ordinal)
	assert.Equal(t, "payload", at.Provenance.Payload)

	_, err = manager.Corpus().GetRequestAt(ctx, run.ID, 99)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestCorpusStorage_ListRunsNewestFirst(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	first := sampleRun(models.StrategySniper, 1)
	require.NoError(t, manager.Corpus().SaveRun(ctx, first, sampleRows(0)))
	time.Sleep(5 * time.Millisecond)
	second := sampleRun(models.StrategyMutation, 1)
	require.NoError(t, manager.Corpus().SaveRun(ctx, second, sampleRows(0)))

	runs, err := manager.Corpus().ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	paged, err := manager.Corpus().ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)
}

func TestCorpusStorage_DeleteRunCascades(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	run := sampleRun(models.StrategySniper, 3)
	require.NoError(t, manager.Corpus().SaveRun(ctx, run, sampleRows(2)))

	require.NoError(t, manager.Corpus().DeleteRun(ctx, run.ID))

	_, err := manager.Corpus().GetRun(ctx, run.ID)
	assert.True(t, models.IsKind(err, models.ErrNotFound))

	requests, err := manager.Corpus().GetRequests(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)

	err = manager.Corpus().DeleteRun(ctx, run.ID)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestCorpusStorage_Statistics(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.Corpus().SaveRun(ctx, sampleRun(models.StrategySniper, 5), sampleRows(0)))
	require.NoError(t, manager.Corpus().SaveRun(ctx, sampleRun(models.StrategySniper, 3), sampleRows(0)))
	require.NoError(t, manager.Corpus().SaveRun(ctx, sampleRun(models.StrategyClusterBomb, 7), sampleRows(0)))

	stats, err := manager.Corpus().Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 15, stats.TotalGenerated)
	assert.Equal(t, 2, stats.ByStrategy["sniper"])
	assert.Equal(t, 1, stats.ByStrategy["cluster_bomb"])
	assert.Equal(t, 0, stats.ByStrategy["pitchfork"])
}

func TestJobStorage_SaveGetDelete(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	job := models.NewJob("scan", 1, 10, models.DefaultHTTPConfig())
	require.NoError(t, manager.Jobs().SaveJob(ctx, job))

	got, err := manager.Jobs().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "scan", got.Name)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 10, got.Progress.TotalRequests)

	require.NoError(t, manager.Jobs().DeleteJob(ctx, job.ID))
	_, err = manager.Jobs().GetJob(ctx, job.ID)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestJobStorage_GetJobsByStatus(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	pending := models.NewJob("a", 1, 1, models.DefaultHTTPConfig())
	running := models.NewJob("b", 1, 1, models.DefaultHTTPConfig())
	require.NoError(t, running.MarkStarted())
	require.NoError(t, manager.Jobs().SaveJob(ctx, pending))
	require.NoError(t, manager.Jobs().SaveJob(ctx, running))

	got, err := manager.Jobs().GetJobsByStatus(ctx, models.JobStatusRunning)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, running.ID, got[0].ID)
}

func TestJobStorage_DeleteTerminalBefore(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	old := models.NewJob("old", 1, 1, models.DefaultHTTPConfig())
	require.NoError(t, old.MarkStarted())
	require.NoError(t, old.MarkCompleted())
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, manager.Jobs().SaveJob(ctx, old))

	oldButActive := models.NewJob("active", 1, 1, models.DefaultHTTPConfig())
	require.NoError(t, oldButActive.MarkStarted())
	oldButActive.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, manager.Jobs().SaveJob(ctx, oldButActive))

	recent := models.NewJob("recent", 1, 1, models.DefaultHTTPConfig())
	require.NoError(t, recent.MarkStarted())
	require.NoError(t, recent.MarkCompleted())
	require.NoError(t, manager.Jobs().SaveJob(ctx, recent))

	deleted, err := manager.Jobs().DeleteTerminalBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, deleted)

	remaining, err := manager.Jobs().ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestJobStorage_Statistics(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	pending := models.NewJob("a", 1, 1, models.DefaultHTTPConfig())
	done := models.NewJob("b", 1, 1, models.DefaultHTTPConfig())
	require.NoError(t, done.MarkStarted())
	require.NoError(t, done.MarkCompleted())
	require.NoError(t, manager.Jobs().SaveJob(ctx, pending))
	require.NoError(t, manager.Jobs().SaveJob(ctx, done))

	stats, err := manager.Jobs().Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalJobs)
	assert.Equal(t, 1, stats.ActiveJobs)
	assert.Equal(t, 1, stats.StatusDistribution["pending"])
	assert.Equal(t, 1, stats.StatusDistribution["completed"])
	assert.Equal(t, 0, stats.StatusDistribution["failed"])
}

func TestResultStorage_AppendAndPage(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	jobID := "job-1"
	for i := 0; i < 5; i++ {
		response := &models.HTTPResponse{StatusCode: 200, URL: "http://example.com", ElapsedTime: 0.1}
		result := models.NewJobResult(jobID, i, "GET / HTTP/1.1\r\n\r\n", models.SniperProvenance("p", i), response)
		require.NoError(t, manager.Results().AppendResult(ctx, result))
	}

	count, err := manager.Results().CountResults(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	page, err := manager.Results().GetResults(ctx, jobID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 2, page[0].Ordinal)
	assert.Equal(t, 3, page[1].Ordinal)

	one, err := manager.Results().GetResultByOrdinal(ctx, jobID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, one.Ordinal)
	assert.True(t, one.Success)

	_, err = manager.Results().GetResultByOrdinal(ctx, jobID, 99)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestResultStorage_DeleteAndWalk(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		failed := &models.HTTPResponse{StatusCode: 0, Error: "connection refused"}
		result := models.NewJobResult("job-a", i, "req", models.SeedProvenance(), failed)
		require.NoError(t, manager.Results().AppendResult(ctx, result))
	}
	other := models.NewJobResult("job-b", 0, "req", models.SeedProvenance(), &models.HTTPResponse{StatusCode: 200})
	require.NoError(t, manager.Results().AppendResult(ctx, other))

	var seen []int
	err := manager.Results().ForEachResult(ctx, "job-a", func(r *models.JobResult) error {
		assert.False(t, r.Success)
		seen = append(seen, r.Ordinal)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)

	require.NoError(t, manager.Results().DeleteResults(ctx, "job-a"))
	count, err := manager.Results().CountResults(ctx, "job-a")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = manager.Results().CountResults(ctx, "job-b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
