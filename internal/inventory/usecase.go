package inventory

import (
	"context"

	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
)

type UseCase interface {
	// DetectAndApplyDrift compares local quantities with the remote ones in
	// batches and writes the differences. Batch and row failures are counted
	// in the result, not returned.
	DetectAndApplyDrift(ctx context.Context, opts dto.DriftOptions) (*dto.DriftResult, error)
}
