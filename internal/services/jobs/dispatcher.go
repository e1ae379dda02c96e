package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/tento/internal/models"
)

// dispatchLoop waits on the condition variable for a pending job and a
// free slot, then hands the job to a runner goroutine. The variable is
// signaled on job creation, resume, runner completion, and shutdown;
// the safety ticker re-checks periodically in case a signal was lost.
func (s *Service) dispatchLoop() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for !s.stopped && (s.running >= s.maxConcurrent() || s.nextPendingLocked() == nil) {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}

		job := s.nextPendingLocked()
		if err := job.MarkStarted(); err != nil {
			// Raced with an external transition; re-evaluate.
			s.mu.Unlock()
			continue
		}

		jobCtx, cancel := context.WithCancel(s.baseCtx)
		s.cancels[job.ID] = cancel
		s.running++
		s.wg.Add(1)
		go s.runJob(jobCtx, job)
		s.mu.Unlock()
	}
}

// nextPendingLocked returns the oldest pending job, or nil. Caller
// holds the mutex.
func (s *Service) nextPendingLocked() *models.Job {
	var oldest *models.Job
	for _, job := range s.jobs {
		if job.Status != models.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	return oldest
}

// safetyTicker wakes the dispatcher on an interval until shutdown.
func (s *Service) safetyTicker(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			s.cond.Broadcast()
		}
	}
}
