// -----------------------------------------------------------------------
// Expansion service - corpus run creation, lookup, and deletion
// -----------------------------------------------------------------------

package expansion

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

// Service expands templates into corpus runs and manages the stored
// history. Runs are immutable once saved.
type Service struct {
	storage interfaces.StorageManager
	events  interfaces.EventService
	logger  arbor.ILogger
	config  *common.FuzzerConfig
}

// NewService creates the expansion service.
func NewService(storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger, config *common.FuzzerConfig) interfaces.ExpansionService {
	return &Service{
		storage: storage,
		events:  events,
		logger:  logger,
		config:  config,
	}
}

func (s *Service) ExpandPlaceholders(ctx context.Context, req *models.PlaceholderRequest) (*models.PlaceholderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("invalid expansion request: %v", err)
	}
	strategy, err := models.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	if strategy == models.StrategyMutation {
		return nil, models.NewInvalidInput("strategy mutation is served by the mutations endpoint")
	}

	rows, err := Expand(req.Template, req.Placeholders, strategy, req.PayloadSets, s.config.MaxRequestsPerRun)
	if err != nil {
		return nil, err
	}

	run := models.NewCorpusRun(req.Template, req.Placeholders, strategy, req.PayloadSets, len(rows))
	if err := s.storage.Corpus().SaveRun(ctx, run, rows); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("run_id", int64(run.ID)).
		Str("strategy", string(strategy)).
		Int("total_requests", len(rows)).
		Msg("Corpus run created")
	s.publishRunEvent(ctx, interfaces.EventRunCreated, run)

	return buildResponse(run, rows), nil
}

func (s *Service) ExpandMutations(ctx context.Context, req *models.MutationRequest) (*models.PlaceholderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("invalid mutation request: %v", err)
	}

	rows, err := ExpandMutation(req.Template, req.Mutations, s.config.MaxRequestsPerRun)
	if err != nil {
		return nil, err
	}

	// The run header records mutations as materialized payload sets so
	// history listings show what was substituted.
	placeholders := make([]string, 0, len(req.Mutations))
	sets := make([]models.PayloadSet, 0, len(req.Mutations))
	for _, m := range req.Mutations {
		placeholders = append(placeholders, m.PlaceholderName())
		sets = append(sets, models.PayloadSet{
			Name:     m.Token,
			Payloads: models.MaterializeValues(m.Values),
		})
	}

	run := models.NewCorpusRun(req.Template, placeholders, models.StrategyMutation, sets, len(rows))
	if err := s.storage.Corpus().SaveRun(ctx, run, rows); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("run_id", int64(run.ID)).
		Int("mutations", len(req.Mutations)).
		Int("total_requests", len(rows)).
		Msg("Mutation run created")
	s.publishRunEvent(ctx, interfaces.EventRunCreated, run)

	return buildResponse(run, rows), nil
}

// ExpandIntuitive accepts token-keyed payload sets, derives the
// declared placeholder names from the tokens, and runs the requested
// positional strategy.
func (s *Service) ExpandIntuitive(ctx context.Context, req *models.IntuitiveRequest) (*models.PlaceholderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("invalid intuitive request: %v", err)
	}

	placeholders := make([]string, 0, len(req.PayloadSets))
	sets := make([]models.PayloadSet, 0, len(req.PayloadSets))
	for _, m := range req.PayloadSets {
		name := m.PlaceholderName()
		placeholders = append(placeholders, name)
		sets = append(sets, models.PayloadSet{
			Name:     name,
			Payloads: models.MaterializeValues(m.Values),
		})
	}

	return s.ExpandPlaceholders(ctx, &models.PlaceholderRequest{
		Template:     req.Template,
		Placeholders: placeholders,
		Strategy:     req.Strategy,
		PayloadSets:  sets,
	})
}

func (s *Service) GetRun(ctx context.Context, id uint64) (*models.PlaceholderResponse, error) {
	run, err := s.storage.Corpus().GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.storage.Corpus().GetRequests(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildResponse(run, rows), nil
}

func (s *Service) ListHistory(ctx context.Context, limit, offset int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = s.config.HistoryPageLimit
	}
	runs, err := s.storage.Corpus().ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	entries := make([]models.HistoryEntry, len(runs))
	for i, run := range runs {
		entries[i] = run.HistoryView()
	}
	return entries, nil
}

// DeleteRun removes a run, its generated rows, and every job that
// executed it together with their results. Deletion is refused while a
// referencing job is still pending or running.
func (s *Service) DeleteRun(ctx context.Context, id uint64) error {
	run, err := s.storage.Corpus().GetRun(ctx, id)
	if err != nil {
		return err
	}

	jobs, err := s.storage.Jobs().ListJobs(ctx)
	if err != nil {
		return err
	}
	referencing := make([]*models.Job, 0)
	for _, job := range jobs {
		if job.RunID != id {
			continue
		}
		if !job.IsTerminal() {
			return models.NewInvalidInput("cannot delete run %d: job %s is %s", id, job.ID, job.Status)
		}
		referencing = append(referencing, job)
	}

	for _, job := range referencing {
		if err := s.storage.Results().DeleteResults(ctx, job.ID); err != nil {
			return err
		}
		if err := s.storage.Jobs().DeleteJob(ctx, job.ID); err != nil {
			return err
		}
	}
	if err := s.storage.Corpus().DeleteRun(ctx, id); err != nil {
		return err
	}

	s.logger.Info().
		Int64("run_id", int64(id)).
		Int("jobs_removed", len(referencing)).
		Msg("Corpus run deleted")
	s.publishRunEvent(ctx, interfaces.EventRunDeleted, run)
	return nil
}

func (s *Service) Statistics(ctx context.Context) (*models.CorpusStatistics, error) {
	return s.storage.Corpus().Statistics(ctx)
}

func (s *Service) publishRunEvent(ctx context.Context, eventType interfaces.EventType, run *models.CorpusRun) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, interfaces.Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"run_id":         run.ID,
			"strategy":       string(run.Strategy),
			"total_requests": run.TotalRequests,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("run_id", int64(run.ID)).Msg("Failed to publish run event")
	}
}

func buildResponse(run *models.CorpusRun, rows []*models.GeneratedRequest) *models.PlaceholderResponse {
	requests := make([]models.GeneratedRequest, len(rows))
	for i, row := range rows {
		requests[i] = *row
	}
	return &models.PlaceholderResponse{
		Strategy:      string(run.Strategy),
		TotalRequests: run.TotalRequests,
		Requests:      requests,
		RequestID:     run.ID,
	}
}
