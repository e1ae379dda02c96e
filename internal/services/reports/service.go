// -----------------------------------------------------------------------
// Report service - job execution and analysis summaries
// -----------------------------------------------------------------------

package reports

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

// reportData collects everything one report renders: the job record,
// its response status distribution, and the three analyses run with
// their default configurations.
type reportData struct {
	job          *models.Job
	statusCounts map[int]int
	patterns     *models.ErrorPatternReport
	reflection   *models.ReflectionReport
	delays       *models.TimeDelayReport
}

// Service renders job reports. All inputs come from the stores and the
// analysis service; nothing is cached or persisted.
type Service struct {
	storage  interfaces.StorageManager
	analysis interfaces.AnalysisService
	logger   arbor.ILogger
}

func NewService(storage interfaces.StorageManager, analysis interfaces.AnalysisService, logger arbor.ILogger) interfaces.ReportService {
	return &Service{storage: storage, analysis: analysis, logger: logger}
}

// RenderJobReport produces the job summary in the requested format and
// returns the document bytes with their content type.
func (s *Service) RenderJobReport(ctx context.Context, jobID string, format string) ([]byte, string, error) {
	switch format {
	case interfaces.ReportFormatMarkdown, interfaces.ReportFormatHTML, interfaces.ReportFormatPDF:
	default:
		return nil, "", models.NewInvalidInput("invalid report format: %s", format)
	}

	data, err := s.collect(ctx, jobID)
	if err != nil {
		return nil, "", err
	}
	markdown := buildMarkdown(data)

	switch format {
	case interfaces.ReportFormatMarkdown:
		return []byte(markdown), "text/markdown; charset=utf-8", nil
	case interfaces.ReportFormatHTML:
		html, err := renderHTML(markdown, data.job.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to render html report: %w", err)
		}
		return html, "text/html; charset=utf-8", nil
	default:
		pdf, err := renderPDF(data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to render pdf report: %w", err)
		}
		return pdf, "application/pdf", nil
	}
}

func (s *Service) collect(ctx context.Context, jobID string) (*reportData, error) {
	job, err := s.storage.Jobs().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	statusCounts := map[int]int{}
	err = s.storage.Results().ForEachResult(ctx, jobID, func(result *models.JobResult) error {
		if result.Response != nil {
			statusCounts[result.Response.StatusCode]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	patterns, err := s.analysis.AnalyzeErrorPatterns(ctx, jobID, models.ErrorPatternConfig{})
	if err != nil {
		return nil, err
	}
	reflection, err := s.analysis.AnalyzeReflection(ctx, jobID, models.DefaultReflectionConfig())
	if err != nil {
		return nil, err
	}
	delays, err := s.analysis.AnalyzeTimeDelays(ctx, jobID, models.DefaultTimeDelayConfig())
	if err != nil {
		return nil, err
	}

	return &reportData{
		job:          job,
		statusCounts: statusCounts,
		patterns:     patterns,
		reflection:   reflection,
		delays:       delays,
	}, nil
}

// renderHTML converts the markdown report into a standalone HTML page.
func renderHTML(markdown, jobID string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, err
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Job Report %s</title>\n</head>\n<body>\n", jobID)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
