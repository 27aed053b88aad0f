package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/todayvn/internal/models"
)

// ErrRunNotFound is returned when no ledger record exists for a run id
var ErrRunNotFound = errors.New("run not found")

// RunStorage persists the run ledger
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	GetRun(ctx context.Context, runID string) (*models.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
	DeleteRun(ctx context.Context, runID string) error
}
