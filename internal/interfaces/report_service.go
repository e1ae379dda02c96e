package interfaces

import (
	"context"
)

// Report output formats.
const (
	ReportFormatMarkdown = "markdown"
	ReportFormatHTML     = "html"
	ReportFormatPDF      = "pdf"
)

// ReportService - renders job execution and analysis summaries
type ReportService interface {
	// RenderJobReport produces a document for the job in the given
	// format and returns the bytes with their content type.
	RenderJobReport(ctx context.Context, jobID string, format string) ([]byte, string, error)
}
