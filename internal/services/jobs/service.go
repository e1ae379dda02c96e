// -----------------------------------------------------------------------
// Job service - lifecycle, scheduling, and execution of fuzzing jobs
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

// Service owns the job table and the dispatcher that feeds pending
// jobs to the executor. The persistent store is authoritative; the
// in-memory map is a read-through cache rebuilt on startup. The mutex
// guards the map and job mutations and is never held across I/O.
type Service struct {
	storage  interfaces.StorageManager
	executor interfaces.BatchExecutor
	events   interfaces.EventService
	logger   arbor.ILogger
	config   *common.ExecutorConfig

	mu      sync.Mutex
	cond    *sync.Cond
	jobs    map[string]*models.Job
	cancels map[string]context.CancelFunc
	running int
	stopped bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewService creates the job service. Start must be called before jobs
// are dispatched.
func NewService(storage interfaces.StorageManager, executor interfaces.BatchExecutor, events interfaces.EventService, logger arbor.ILogger, config *common.ExecutorConfig) interfaces.JobService {
	s := &Service{
		storage:  storage,
		executor: executor,
		events:   events,
		logger:   logger,
		config:   config,
		jobs:     make(map[string]*models.Job),
		cancels:  make(map[string]context.CancelFunc),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// CreateJob registers a pending job over a stored run and wakes the
// dispatcher.
func (s *Service) CreateJob(ctx context.Context, runID uint64, name string, config models.HTTPConfig) (*models.Job, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	run, err := s.storage.Corpus().GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = fmt.Sprintf("run-%d", runID)
	}
	job := models.NewJob(name, runID, run.TotalRequests, config)
	if err := s.storage.Jobs().SaveJob(ctx, job); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", job.ID).
		Int64("run_id", int64(runID)).
		Int("total_requests", run.TotalRequests).
		Msg("Job created")
	s.publishJobEvent(ctx, interfaces.EventJobCreated, &snapshot)
	s.cond.Signal()

	return &snapshot, nil
}

// ExecuteSingle sends one generated request synchronously without
// creating a job.
func (s *Service) ExecuteSingle(ctx context.Context, runID uint64, position int, config models.HTTPConfig) (*models.ExecuteSingleResponse, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	row, err := s.storage.Corpus().GetRequestAt(ctx, runID, position)
	if err != nil {
		return nil, err
	}

	response := s.executor.Execute(ctx, row.Content, config)
	return &models.ExecuteSingleResponse{
		RequestID: runID,
		Position:  position,
		Request:   row.Content,
		Response:  response,
	}, nil
}

// GetJob returns a snapshot of the job, reading through to the store
// on a cache miss.
func (s *Service) GetJob(ctx context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		snapshot := *job
		s.mu.Unlock()
		return &snapshot, nil
	}
	s.mu.Unlock()

	job, err := s.storage.Jobs().GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.jobs[id]; ok {
		job = cached
	} else {
		s.jobs[id] = job
	}
	snapshot := *job
	s.mu.Unlock()
	return &snapshot, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]*models.Job, error) {
	return s.storage.Jobs().ListJobs(ctx)
}

// StopJob cancels a pending or running job. The status write happens
// immediately; a running job's executor context is cancelled so
// parallel batches drop outstanding requests and sequential batches
// halt after the in-flight one.
func (s *Service) StopJob(ctx context.Context, id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return models.NewNotFound("job not found: %s", id)
	}
	if err := job.MarkCancelled(); err != nil {
		s.mu.Unlock()
		return err
	}
	cancel := s.cancels[id]
	snapshot := *job
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := s.storage.Jobs().SaveJob(ctx, &snapshot); err != nil {
		return err
	}

	s.logger.Info().Str("job_id", id).Msg("Job cancelled")
	s.publishJobEvent(ctx, interfaces.EventJobCancelled, &snapshot)
	return nil
}

// ResumeJob returns a cancelled or failed job to pending. Results from
// the previous attempt are truncated before the job becomes eligible
// again, so a completed resume holds exactly one result per request.
func (s *Service) ResumeJob(ctx context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, models.NewNotFound("job not found: %s", id)
	}
	if job.Status != models.JobStatusCancelled && job.Status != models.JobStatusFailed {
		status := job.Status
		s.mu.Unlock()
		return nil, models.NewForbiddenTransition("cannot resume job in state %s", status)
	}
	s.mu.Unlock()

	if err := s.storage.Results().DeleteResults(ctx, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if err := job.MarkResumed(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := *job
	s.mu.Unlock()

	if err := s.storage.Jobs().SaveJob(ctx, &snapshot); err != nil {
		return nil, err
	}

	s.logger.Info().Str("job_id", id).Msg("Job resumed")
	s.publishJobEvent(ctx, interfaces.EventJobResumed, &snapshot)
	s.cond.Signal()

	return &snapshot, nil
}

// DeleteJob removes a job and its results. Running jobs must be
// stopped first.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok && job.Status == models.JobStatusRunning {
		s.mu.Unlock()
		return models.NewInvalidInput("cannot delete job %s while it is running", id)
	}
	s.mu.Unlock()

	if !ok {
		stored, err := s.storage.Jobs().GetJob(ctx, id)
		if err != nil {
			return err
		}
		if stored.Status == models.JobStatusRunning {
			return models.NewInvalidInput("cannot delete job %s while it is running", id)
		}
	}

	if err := s.storage.Results().DeleteResults(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Jobs().DeleteJob(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()

	s.logger.Info().Str("job_id", id).Msg("Job deleted")
	s.publishJobEvent(ctx, interfaces.EventJobDeleted, &models.Job{ID: id})
	return nil
}

// CleanupJobs deletes terminal jobs older than maxAgeHours along with
// their results.
func (s *Service) CleanupJobs(ctx context.Context, maxAgeHours float64) (int, error) {
	if maxAgeHours <= 0 {
		return 0, models.NewInvalidInput("max_age_hours must be positive, got %v", maxAgeHours)
	}

	cutoff := time.Now().Add(-time.Duration(maxAgeHours * float64(time.Hour)))
	deleted, err := s.storage.Jobs().DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, id := range deleted {
		if err := s.storage.Results().DeleteResults(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("job_id", id).Msg("Failed to delete results of cleaned-up job")
		}
	}

	s.mu.Lock()
	for _, id := range deleted {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	if len(deleted) > 0 {
		s.logger.Info().Int("count", len(deleted)).Float64("max_age_hours", maxAgeHours).Msg("Old jobs cleaned up")
	}
	return len(deleted), nil
}

func (s *Service) Statistics(ctx context.Context) (*models.JobStatistics, error) {
	return s.storage.Jobs().Statistics(ctx)
}

// Start recovers persisted jobs and launches the dispatcher.
func (s *Service) Start(ctx context.Context) error {
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())

	if err := s.recoverJobs(ctx); err != nil {
		return err
	}

	interval := 2 * time.Second
	if s.config.DispatchInterval != "" {
		if parsed, err := time.ParseDuration(s.config.DispatchInterval); err == nil && parsed > 0 {
			interval = parsed
		}
	}

	s.wg.Add(2)
	go s.dispatchLoop()
	go s.safetyTicker(interval)

	s.logger.Info().
		Int("max_concurrent_jobs", s.maxConcurrent()).
		Str("dispatch_interval", interval.String()).
		Msg("Job dispatcher started")
	return nil
}

// Stop cancels running jobs and waits for the dispatcher and runners
// to exit, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for _, cancel := range s.cancels {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.cond.Broadcast()
	if s.baseCancel != nil {
		s.baseCancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info().Msg("Job service stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for job service shutdown: %w", ctx.Err())
	}
}

func (s *Service) maxConcurrent() int {
	if s.config.MaxConcurrentJobs > 0 {
		return s.config.MaxConcurrentJobs
	}
	return 5
}

func (s *Service) publishJobEvent(ctx context.Context, eventType interfaces.EventType, job *models.Job) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: job.View()}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to publish job event")
	}
}
