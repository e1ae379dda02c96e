package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ResultStorage implements the ResultStorage interface for Badger
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResultStorage) AppendResult(ctx context.Context, result *models.JobResult) error {
	if result == nil || result.JobID == "" {
		return fmt.Errorf("result job ID is required")
	}

	if err := s.db.Store().Insert(badgerhold.NextSequence(), result); err != nil {
		return models.NewStorageError(err, "failed to append result %d of job %s", result.Ordinal, result.JobID)
	}
	return nil
}

func (s *ResultStorage) GetResults(ctx context.Context, jobID string, limit, offset int) ([]*models.JobResult, error) {
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("Ordinal")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var results []models.JobResult
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, models.NewStorageError(err, "failed to get results of job %s", jobID)
	}

	out := make([]*models.JobResult, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}

func (s *ResultStorage) GetResultByOrdinal(ctx context.Context, jobID string, ordinal int) (*models.JobResult, error) {
	var results []models.JobResult
	err := s.db.Store().Find(&results, badgerhold.Where("JobID").Eq(jobID).And("Ordinal").Eq(ordinal))
	if err != nil {
		return nil, models.NewStorageError(err, "failed to get result %d of job %s", ordinal, jobID)
	}
	if len(results) == 0 {
		return nil, models.NewNotFound("job %s has no result for request %d", jobID, ordinal)
	}
	// A resumed job truncates its log before re-executing, so ordinals
	// are unique; take the last write just in case.
	return &results[len(results)-1], nil
}

func (s *ResultStorage) CountResults(ctx context.Context, jobID string) (int, error) {
	count, err := s.db.Store().Count(&models.JobResult{}, badgerhold.Where("JobID").Eq(jobID))
	if err != nil {
		return 0, models.NewStorageError(err, "failed to count results of job %s", jobID)
	}
	return int(count), nil
}

func (s *ResultStorage) DeleteResults(ctx context.Context, jobID string) error {
	if err := s.db.Store().DeleteMatching(&models.JobResult{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return models.NewStorageError(err, "failed to delete results of job %s", jobID)
	}
	return nil
}

// ForEachResult walks a job's results oldest-first. Rows are fetched in
// key order and re-sorted by ordinal so callers see execution order.
func (s *ResultStorage) ForEachResult(ctx context.Context, jobID string, fn func(*models.JobResult) error) error {
	var results []models.JobResult
	if err := s.db.Store().Find(&results, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return models.NewStorageError(err, "failed to walk results of job %s", jobID)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Ordinal < results[j].Ordinal
	})

	for i := range results {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := fn(&results[i]); err != nil {
			return err
		}
	}
	return nil
}
