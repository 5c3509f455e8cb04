package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fekuna/omnipos-catalog-sync/internal/attribute"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/slug"
	"go.uber.org/zap"
)

// Defaults are the placeholders written on newly imported products.
type Defaults struct {
	CategoryID      int64
	SubCategoryID   int64
	ChildCategoryID int64
	ThumbImage      string
}

type reconciler struct {
	repo     product.Repository
	defaults Defaults
	logger   logger.ZapLogger
}

func NewReconciler(repo product.Repository, defaults Defaults, log logger.ZapLogger) product.UseCase {
	return &reconciler{
		repo:     repo,
		defaults: defaults,
		logger:   log,
	}
}

func (uc *reconciler) ReconcileVariant(ctx context.Context, rv model.RemoteVariant, descriptors []model.AttributeDescriptor, productID int64) (*dto.VariantResult, error) {
	if !rv.Sellable() {
		return nil, model.ErrSkipped
	}

	if len(descriptors) == 0 {
		descriptors = attribute.Compose(rv, nil)
	}
	details, err := attribute.Encode(descriptors)
	if err != nil {
		return nil, fmt.Errorf("encode details for variant %d: %w", rv.ID, err)
	}

	var name string
	if rv.DisplayName != nil {
		name = *rv.DisplayName
	}

	row, inserted, err := uc.repo.UpsertVariant(ctx, &model.ProductVariant{
		ProductID:  productID,
		Name:       name,
		SKU:        *rv.SKU,
		Stock:      model.Units(rv.Quantity),
		Price:      rv.ListPrice,
		CostPrice:  rv.CostPrice,
		Percentage: model.Percentage(rv.CostPrice, rv.ListPrice),
		Weight:     model.Grams(rv.Weight),
		Details:    details,
		Status:     model.StatusInactive,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert variant sku=%s: %w", *rv.SKU, err)
	}
	return &dto.VariantResult{Variant: row, Inserted: inserted}, nil
}

func (uc *reconciler) ReconcileProduct(ctx context.Context, rp model.RemoteProduct, variants []model.RemoteVariant, values []model.RemoteAttributeValue) (*dto.ProductResult, error) {
	res := &dto.ProductResult{RemoteID: rp.ID}
	remoteKey := strconv.FormatInt(rp.ID, 10)

	row, inserted, err := uc.repo.UpsertProduct(ctx, uc.newProduct(rp, remoteKey))
	if err != nil {
		return res, fmt.Errorf("upsert product %d: %w", rp.ID, err)
	}
	if row == nil || row.ID == 0 {
		uc.logger.Info("product upsert returned no row, leaving it for the next pass", zap.Int64("remote_id", rp.ID))
		res.Aborted = true
		return res, nil
	}
	res.ProductID = row.ID
	res.Inserted = inserted

	var errs []error
	for _, rv := range variants {
		if rv.ProductID != rp.ID {
			continue
		}
		out, err := uc.ReconcileVariant(ctx, rv, attribute.Compose(rv, values), row.ID)
		switch {
		case errors.Is(err, model.ErrSkipped):
			res.VariantsSkipped++
			uc.logger.Debug("variant has no sku, skipped", zap.Int64("remote_id", rv.ID), zap.Int64("product_id", row.ID))
		case err != nil:
			res.VariantsFailed++
			errs = append(errs, err)
			uc.logger.Error("variant reconcile failed", zap.Int64("remote_id", rv.ID), zap.Int64("product_id", row.ID), zap.Error(err))
		case out.Inserted:
			res.VariantsInserted++
		default:
			res.VariantsUpdated++
		}
	}

	if skus := remoteSKUs(rp.ID, variants); len(skus) > 0 {
		n, err := uc.repo.DeactivateVariantsExcept(ctx, row.ID, skus)
		if err != nil {
			errs = append(errs, fmt.Errorf("deactivate variants of product %d: %w", row.ID, err))
		}
		res.VariantsDeactivated = n
	}

	return res, errors.Join(errs...)
}

func (uc *reconciler) newProduct(rp model.RemoteProduct, remoteKey string) *model.Product {
	return &model.Product{
		Name:             rp.Name,
		ShortName:        rp.Name,
		Slug:             slug.ForProduct(rp.Name, rp.ID, rp.SKU),
		SKU:              rp.SKU,
		Qty:              model.Units(rp.Quantity),
		ThumbImage:       uc.defaults.ThumbImage,
		CategoryID:       uc.defaults.CategoryID,
		SubCategoryID:    uc.defaults.SubCategoryID,
		ChildCategoryID:  uc.defaults.ChildCategoryID,
		Weight:           model.Grams(rp.Weight),
		SeoTitle:         rp.Name,
		SeoDescription:   rp.Name,
		Price:            rp.ListPrice,
		CostPrice:        rp.CostPrice,
		ShortDescription: rp.Name,
		LongDescription:  rp.Name,
		Status:           model.StatusInactive,
		ApproveByAdmin:   0,
		UUID:             "o_imported_" + remoteKey,
		RemoteKeyID:      &remoteKey,
	}
}

// remoteSKUs returns the distinct skus present on the product's variants.
// Every present string counts, "" and "False" included: those variants are
// never written, but they still mark the batch as a real variant listing.
func remoteSKUs(productID int64, variants []model.RemoteVariant) []string {
	seen := map[string]bool{}
	var skus []string
	for _, rv := range variants {
		if rv.ProductID != productID || rv.SKU == nil || seen[*rv.SKU] {
			continue
		}
		seen[*rv.SKU] = true
		skus = append(skus, *rv.SKU)
	}
	return skus
}
