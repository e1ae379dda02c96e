package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
	"github.com/ternarybob/tento/internal/services/analysis"
	"github.com/ternarybob/tento/internal/storage/badger"
)

func newTestService(t *testing.T) (interfaces.ReportService, interfaces.StorageManager) {
	t.Helper()
	logger := common.GetLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return NewService(manager, analysis.NewService(manager, logger), logger), manager
}

func seedReportJob(t *testing.T, storage interfaces.StorageManager) string {
	t.Helper()
	ctx := context.Background()

	job := models.NewJob("report-job", 7, 3, models.DefaultHTTPConfig())
	require.NoError(t, job.MarkStarted())
	job.Progress.RecordResult(1, true)
	job.Progress.RecordResult(2, true)
	job.Progress.RecordResult(3, true)
	require.NoError(t, job.MarkCompleted())
	require.NoError(t, storage.Jobs().SaveJob(ctx, job))

	results := []*models.JobResult{
		models.NewJobResult(job.ID, 1, "GET / HTTP/1.1", models.SeedProvenance(),
			&models.HTTPResponse{StatusCode: 200, Body: "welcome", ElapsedTime: 0.2}),
		models.NewJobResult(job.ID, 2, "GET /?q=x HTTP/1.1", models.SniperProvenance("' OR 1=1", 1),
			&models.HTTPResponse{StatusCode: 500, Body: "error in your SQL syntax", ElapsedTime: 0.3}),
		models.NewJobResult(job.ID, 3, "GET /?q=y HTTP/1.1", models.SniperProvenance("reflected-payload", 1),
			&models.HTTPResponse{StatusCode: 200, Body: "you sent reflected-payload back", ElapsedTime: 0.4}),
	}
	for _, result := range results {
		require.NoError(t, storage.Results().AppendResult(ctx, result))
	}
	return job.ID
}

func TestRenderJobReport_Markdown(t *testing.T) {
	service, storage := newTestService(t)
	jobID := seedReportJob(t, storage)

	doc, contentType, err := service.RenderJobReport(context.Background(), jobID, interfaces.ReportFormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown; charset=utf-8", contentType)

	report := string(doc)
	assert.Contains(t, report, "# Job Report: "+jobID)
	assert.Contains(t, report, "| Status | completed |")
	assert.Contains(t, report, "| Total requests | 3 |")
	assert.Contains(t, report, "| 200 | 2 |")
	assert.Contains(t, report, "| 500 | 1 |")
	assert.Contains(t, report, "SQL syntax")
	assert.Contains(t, report, "reflected-payload")
}

func TestRenderJobReport_HTML(t *testing.T) {
	service, storage := newTestService(t)
	jobID := seedReportJob(t, storage)

	doc, contentType, err := service.RenderJobReport(context.Background(), jobID, interfaces.ReportFormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", contentType)

	page := string(doc)
	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, "<h1>Job Report: "+jobID+"</h1>")
	assert.Contains(t, page, "<table>")
}

func TestRenderJobReport_PDF(t *testing.T) {
	service, storage := newTestService(t)
	jobID := seedReportJob(t, storage)

	doc, contentType, err := service.RenderJobReport(context.Background(), jobID, interfaces.ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	require.Greater(t, len(doc), 4)
	assert.Equal(t, "%PDF", string(doc[:4]))
}

func TestRenderJobReport_UnknownJob(t *testing.T) {
	service, _ := newTestService(t)
	_, _, err := service.RenderJobReport(context.Background(), "missing", interfaces.ReportFormatMarkdown)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestRenderJobReport_InvalidFormat(t *testing.T) {
	service, storage := newTestService(t)
	jobID := seedReportJob(t, storage)

	_, _, err := service.RenderJobReport(context.Background(), jobID, "docx")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrInvalidInput))
}
