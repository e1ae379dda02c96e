package interfaces

import (
	"context"

	"github.com/ternarybob/tento/internal/models"
)

// ExpansionService - template expansion and corpus run management
type ExpansionService interface {
	// ExpandPlaceholders runs a positional-strategy expansion and
	// persists the resulting corpus run.
	ExpandPlaceholders(ctx context.Context, req *models.PlaceholderRequest) (*models.PlaceholderResponse, error)

	// ExpandMutations runs a token-mutation expansion and persists it.
	ExpandMutations(ctx context.Context, req *models.MutationRequest) (*models.PlaceholderResponse, error)

	// ExpandIntuitive derives placeholder names from tokens, then
	// delegates to ExpandPlaceholders.
	ExpandIntuitive(ctx context.Context, req *models.IntuitiveRequest) (*models.PlaceholderResponse, error)

	// GetRun rebuilds the full expansion response for a stored run.
	GetRun(ctx context.Context, id uint64) (*models.PlaceholderResponse, error)

	// ListHistory returns stored run headers newest-first.
	ListHistory(ctx context.Context, limit, offset int) ([]models.HistoryEntry, error)

	// DeleteRun removes a stored run and its generated rows.
	DeleteRun(ctx context.Context, id uint64) error

	// Statistics aggregates corpus totals.
	Statistics(ctx context.Context) (*models.CorpusStatistics, error)
}
