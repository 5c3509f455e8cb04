package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
)

type UseCase interface {
	// ReconcileVariant returns model.ErrSkipped when the variant has no usable sku.
	ReconcileVariant(ctx context.Context, rv model.RemoteVariant, descriptors []model.AttributeDescriptor, productID int64) (*dto.VariantResult, error)
	ReconcileProduct(ctx context.Context, rp model.RemoteProduct, variants []model.RemoteVariant, values []model.RemoteAttributeValue) (*dto.ProductResult, error)
}
