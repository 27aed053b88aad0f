package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
)

// RunStorage implements interfaces.RunStorage, keyed by run id
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.RunStorage = (*RunStorage)(nil)

// NewRunStorage creates a RunStorage
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) *RunStorage {
	return &RunStorage{db: db, logger: logger}
}

// SaveRun inserts or replaces the record, keeping the original CreatedAt
func (s *RunStorage) SaveRun(ctx context.Context, run *models.RunRecord) error {
	if run == nil || run.RunID == "" {
		return errors.New("run id is required")
	}

	now := time.Now()
	var existing models.RunRecord
	err := s.db.Store().Get(run.RunID, &existing)
	switch {
	case err == nil && !existing.CreatedAt.IsZero():
		run.CreatedAt = existing.CreatedAt
	case run.CreatedAt.IsZero():
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	if err := s.db.Store().Upsert(run.RunID, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}

	s.logger.Debug().Str("run_id", run.RunID).Str("status", string(run.Status)).Msg("Run saved")
	return nil
}

// GetRun returns interfaces.ErrRunNotFound when runID has no record
func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	var run models.RunRecord
	if err := s.db.Store().Get(runID, &run); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all
func (s *RunStorage) ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	query := badgerhold.Where("RunID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.RunRecord
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.RunRecord, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// DeleteRun removes the record; deleting a missing run is not an error
func (s *RunStorage) DeleteRun(ctx context.Context, runID string) error {
	if err := s.db.Store().Delete(runID, &models.RunRecord{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}
