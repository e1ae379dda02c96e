package interfaces

import (
	"context"

	"github.com/ternarybob/tento/internal/models"
)

// AnalysisService - read-only vulnerability passes over stored results
type AnalysisService interface {
	// AnalyzeErrorPatterns scans each result for known error fragments.
	AnalyzeErrorPatterns(ctx context.Context, jobID string, cfg models.ErrorPatternConfig) (*models.ErrorPatternReport, error)

	// AnalyzeReflection searches response bodies for sent payloads and
	// their encoded variants.
	AnalyzeReflection(ctx context.Context, jobID string, cfg models.ReflectionConfig) (*models.ReflectionReport, error)

	// AnalyzeTimeDelays flags results whose elapsed time exceeds the
	// baseline by the configured threshold.
	AnalyzeTimeDelays(ctx context.Context, jobID string, cfg models.TimeDelayConfig) (*models.TimeDelayReport, error)
}
