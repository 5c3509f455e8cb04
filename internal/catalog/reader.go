package catalog

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

// Reader is the read side of the remote master catalog. Implementations wrap
// retryable failures with model.ErrTransientRead.
type Reader interface {
	ProductsModifiedSince(ctx context.Context, since time.Time, pageSize int) ([]model.RemoteProduct, error)
	VariantsByProducts(ctx context.Context, productIDs []int64) ([]model.RemoteVariant, error)
	VariantsForProduct(ctx context.Context, productID int64) ([]model.RemoteVariant, error)
	AttributeValues(ctx context.Context, valueIDs []int64) ([]model.RemoteAttributeValue, error)
	ProductQuantities(ctx context.Context, productIDs []int64) ([]model.RemoteQuantity, error)
	ProductImages(ctx context.Context, productIDs []int64) (map[int64][]byte, error)
}
