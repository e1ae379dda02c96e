// -----------------------------------------------------------------------
// Analysis service - read-only vulnerability passes over job results
// -----------------------------------------------------------------------

package analysis

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

// Service runs the three detectors over persisted job results. All
// passes are pure reads; nothing they compute is stored.
type Service struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewService(storage interfaces.StorageManager, logger arbor.ILogger) interfaces.AnalysisService {
	return &Service{storage: storage, logger: logger}
}

// AnalyzeErrorPatterns scans each result's status line, headers, and
// body for the configured literal fragments. An empty pattern list
// selects the embedded catalog.
func (s *Service) AnalyzeErrorPatterns(ctx context.Context, jobID string, cfg models.ErrorPatternConfig) (*models.ErrorPatternReport, error) {
	if _, err := s.storage.Jobs().GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}

	report := &models.ErrorPatternReport{
		JobID:         jobID,
		Config:        cfg,
		PatternCounts: map[string]int{},
		Findings:      []models.PatternFinding{},
	}
	err := s.storage.Results().ForEachResult(ctx, jobID, func(result *models.JobResult) error {
		report.TotalResults++
		if finding := matchPatterns(result, patterns, cfg.CaseSensitive, report.PatternCounts); finding != nil {
			report.Findings = append(report.Findings, *finding)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("job_id", jobID).
		Int("results", report.TotalResults).
		Int("findings", len(report.Findings)).
		Msg("Error-pattern analysis completed")
	return report, nil
}

// AnalyzeReflection searches response bodies for each result's payload
// and its enabled encoded variants.
func (s *Service) AnalyzeReflection(ctx context.Context, jobID string, cfg models.ReflectionConfig) (*models.ReflectionReport, error) {
	if _, err := s.storage.Jobs().GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	if cfg.MinPayloadLength < 0 {
		return nil, models.NewInvalidInput("min_payload_length must not be negative, got %d", cfg.MinPayloadLength)
	}

	report := &models.ReflectionReport{
		JobID:         jobID,
		Config:        cfg,
		VariantCounts: map[string]int{},
		Findings:      []models.ReflectionFinding{},
	}
	err := s.storage.Results().ForEachResult(ctx, jobID, func(result *models.JobResult) error {
		report.TotalResults++
		report.Findings = append(report.Findings, findReflections(result, cfg, report.VariantCounts)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("job_id", jobID).
		Int("results", report.TotalResults).
		Int("findings", len(report.Findings)).
		Msg("Reflection analysis completed")
	return report, nil
}

// AnalyzeTimeDelays flags results whose elapsed time exceeds the
// partition baseline by at least the configured threshold.
func (s *Service) AnalyzeTimeDelays(ctx context.Context, jobID string, cfg models.TimeDelayConfig) (*models.TimeDelayReport, error) {
	if _, err := s.storage.Jobs().GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	if cfg.TimeThreshold <= 0 {
		return nil, models.NewInvalidInput("time_threshold must be positive, got %v", cfg.TimeThreshold)
	}
	switch cfg.BaselineMethod {
	case models.BaselineFirstRequest, models.BaselineMedian, models.BaselineMean:
	default:
		return nil, models.NewInvalidInput("invalid baseline method: %s", cfg.BaselineMethod)
	}

	// The pass needs two walks over the elapsed times, so collect once.
	var results []*models.JobResult
	err := s.storage.Results().ForEachResult(ctx, jobID, func(result *models.JobResult) error {
		results = append(results, result)
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := timeDelayPass(results, cfg)
	report.JobID = jobID

	s.logger.Debug().
		Str("job_id", jobID).
		Int("results", report.TotalResults).
		Int("flagged", report.FlaggedCount).
		Msg("Time-delay analysis completed")
	return report, nil
}
