package jobs

import (
	"context"

	"github.com/ternarybob/tento/internal/models"
)

// recoverJobs rebuilds the in-memory job table from the store on
// startup. Jobs left RUNNING by a crash cannot have survived the
// restart, so they become FAILED with a synthetic interrupted message;
// their partial results stay intact for inspection and resume. PENDING
// jobs stay eligible and the dispatcher picks them up again.
func (s *Service) recoverJobs(ctx context.Context) error {
	stored, err := s.storage.Jobs().ListJobs(ctx)
	if err != nil {
		return err
	}

	interrupted := 0
	pending := 0
	for _, job := range stored {
		if job.Status == models.JobStatusRunning {
			_ = job.MarkFailed(models.NewInterrupted("job interrupted by service restart").Error())
			if err := s.storage.Jobs().SaveJob(ctx, job); err != nil {
				return err
			}
			interrupted++
		}
		if job.Status == models.JobStatusPending {
			pending++
		}

		s.mu.Lock()
		s.jobs[job.ID] = job
		s.mu.Unlock()
	}

	if len(stored) > 0 {
		s.logger.Info().
			Int("total", len(stored)).
			Int("interrupted", interrupted).
			Int("pending", pending).
			Msg("Jobs recovered from storage")
	}
	return nil
}
