package inventory

import (
	"context"

	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

type Repository interface {
	// ListCandidates returns products that carry a remote key.
	ListCandidates(ctx context.Context, filters dto.CandidateFilters) ([]model.StockCandidate, error)
	SetQuantity(ctx context.Context, productID, qty int64) error
	// GetQuantity returns found=false when the row no longer exists.
	GetQuantity(ctx context.Context, productID int64) (qty int64, found bool, err error)
}

// Publisher announces verified stock changes to other systems.
type Publisher interface {
	PublishStockChanged(ctx context.Context, event dto.StockChangedEvent) error
	Close() error
}
