package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CorpusStorage implements the CorpusStorage interface for Badger
type CorpusStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// Run IDs start at 1; 0 means unassigned. The counter initializes
	// lazily from the highest stored ID.
	mu     sync.Mutex
	nextID uint64
}

// NewCorpusStorage creates a new CorpusStorage instance
func NewCorpusStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CorpusStorage {
	return &CorpusStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun persists the run header and its generated rows. Row ordinals
// are assigned here from slice order; if any row insert fails the run
// and the rows written so far are removed again.
func (s *CorpusStorage) SaveRun(ctx context.Context, run *models.CorpusRun, requests []*models.GeneratedRequest) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}

	id, err := s.nextRunID()
	if err != nil {
		return err
	}
	run.ID = id
	if err := s.db.Store().Insert(run.ID, run); err != nil {
		return models.NewStorageError(err, "failed to save run")
	}

	for i, req := range requests {
		req.RunID = run.ID
		req.Ordinal = i
		if err := s.db.Store().Insert(badgerhold.NextSequence(), req); err != nil {
			s.rollbackRun(run.ID)
			return models.NewStorageError(err, "failed to save generated request %d of run %d", i, run.ID)
		}
	}

	s.logger.Debug().
		Int64("run_id", int64(run.ID)).
		Int("requests", len(requests)).
		Str("strategy", string(run.Strategy)).
		Msg("Corpus run saved")
	return nil
}

// nextRunID hands out 1-based run IDs. A zero ID would read as absent
// in request bodies, so the sequence never produces one.
func (s *CorpusStorage) nextRunID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextID == 0 {
		var runs []models.CorpusRun
		if err := s.db.Store().Find(&runs, badgerhold.Where("ID").Ge(uint64(0)).SortBy("ID").Reverse().Limit(1)); err != nil {
			return 0, models.NewStorageError(err, "failed to read last run id")
		}
		s.nextID = 1
		if len(runs) > 0 {
			s.nextID = runs[0].ID + 1
		}
	}

	id := s.nextID
	s.nextID++
	return id, nil
}

// rollbackRun best-effort removes a partially written run.
func (s *CorpusStorage) rollbackRun(runID uint64) {
	if err := s.db.Store().DeleteMatching(&models.GeneratedRequest{}, badgerhold.Where("RunID").Eq(runID)); err != nil {
		s.logger.Warn().Err(err).Int64("run_id", int64(runID)).Msg("Failed to roll back generated requests")
	}
	if err := s.db.Store().Delete(runID, &models.CorpusRun{}); err != nil && err != badgerhold.ErrNotFound {
		s.logger.Warn().Err(err).Int64("run_id", int64(runID)).Msg("Failed to roll back run header")
	}
}

func (s *CorpusStorage) GetRun(ctx context.Context, id uint64) (*models.CorpusRun, error) {
	var run models.CorpusRun
	if err := s.db.Store().Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFound("run not found: %d", id)
		}
		return nil, models.NewStorageError(err, "failed to get run %d", id)
	}
	return &run, nil
}

func (s *CorpusStorage) ListRuns(ctx context.Context, limit, offset int) ([]*models.CorpusRun, error) {
	query := badgerhold.Where("ID").Ge(uint64(0)).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var runs []models.CorpusRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, models.NewStorageError(err, "failed to list runs")
	}

	result := make([]*models.CorpusRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *CorpusStorage) DeleteRun(ctx context.Context, id uint64) error {
	var run models.CorpusRun
	if err := s.db.Store().Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.NewNotFound("run not found: %d", id)
		}
		return models.NewStorageError(err, "failed to get run %d", id)
	}

	if err := s.db.Store().DeleteMatching(&models.GeneratedRequest{}, badgerhold.Where("RunID").Eq(id)); err != nil {
		return models.NewStorageError(err, "failed to delete generated requests of run %d", id)
	}
	if err := s.db.Store().Delete(id, &models.CorpusRun{}); err != nil {
		return models.NewStorageError(err, "failed to delete run %d", id)
	}

	s.logger.Debug().Int64("run_id", int64(id)).Msg("Corpus run deleted")
	return nil
}

func (s *CorpusStorage) GetRequests(ctx context.Context, runID uint64) ([]*models.GeneratedRequest, error) {
	var requests []models.GeneratedRequest
	if err := s.db.Store().Find(&requests, badgerhold.Where("RunID").Eq(runID).SortBy("Ordinal")); err != nil {
		return nil, models.NewStorageError(err, "failed to get requests of run %d", runID)
	}

	result := make([]*models.GeneratedRequest, len(requests))
	for i := range requests {
		result[i] = &requests[i]
	}
	return result, nil
}

func (s *CorpusStorage) GetRequestAt(ctx context.Context, runID uint64, position int) (*models.GeneratedRequest, error) {
	var requests []models.GeneratedRequest
	err := s.db.Store().Find(&requests, badgerhold.Where("RunID").Eq(runID).And("Ordinal").Eq(position))
	if err != nil {
		return nil, models.NewStorageError(err, "failed to get request %d of run %d", position, runID)
	}
	if len(requests) == 0 {
		return nil, models.NewNotFound("run %d has no request at position %d", runID, position)
	}
	return &requests[0], nil
}

func (s *CorpusStorage) CountRuns(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.CorpusRun{}, nil)
	if err != nil {
		return 0, models.NewStorageError(err, "failed to count runs")
	}
	return int(count), nil
}

// Statistics walks the run headers. Totals come from the stored
// TotalRequests so the generated rows are never loaded.
func (s *CorpusStorage) Statistics(ctx context.Context) (*models.CorpusStatistics, error) {
	var runs []models.CorpusRun
	if err := s.db.Store().Find(&runs, nil); err != nil {
		return nil, models.NewStorageError(err, "failed to load runs for statistics")
	}

	stats := &models.CorpusStatistics{
		ByStrategy: make(map[string]int),
	}
	for _, strategy := range models.Strategies {
		stats.ByStrategy[string(strategy)] = 0
	}
	for _, run := range runs {
		stats.TotalRuns++
		stats.TotalGenerated += run.TotalRequests
		stats.ByStrategy[string(run.Strategy)]++
	}
	return stats, nil
}
