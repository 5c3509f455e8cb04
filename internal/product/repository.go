package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

type Repository interface {
	// UpsertProduct matches p by remote key, then by sku. A new row is written
	// in full; a matched row only receives qty, remote_key_id and cost_price.
	// The returned row is nil when the read-back found nothing.
	UpsertProduct(ctx context.Context, p *model.Product) (row *model.Product, inserted bool, err error)
	// UpsertVariant matches v by sku. A new row is written in full; a matched
	// row only receives stock, details and name.
	UpsertVariant(ctx context.Context, v *model.ProductVariant) (row *model.ProductVariant, inserted bool, err error)
	// DeactivateVariantsExcept sets status 0 on the product's variants whose sku
	// is not in skus. skus must not be empty.
	DeactivateVariantsExcept(ctx context.Context, productID int64, skus []string) (int64, error)
	// UpdateVariantStock writes stock to the variant located by key and returns
	// the name of the rule that matched, or "" when no row changed.
	UpdateVariantStock(ctx context.Context, key MatchKey, stock int64) (string, error)

	FindVariantsByProduct(ctx context.Context, productID int64) ([]model.ProductVariant, error)
	ListImageCandidates(ctx context.Context, limit int) ([]model.ImageCandidate, error)
	UpdateThumbImage(ctx context.Context, productID int64, path string) error
}
