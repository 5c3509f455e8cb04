package repository

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
)

const (
	productsTable = "products"
	variantsTable = "product_variants"
)

var productColumns = []string{
	"id", "name", "short_name", "slug", "sku", "qty", "thumb_image",
	"category_id", "sub_category_id", "child_category_id", "weight",
	"seo_title", "seo_description", "price", "cost_price",
	"short_description", "long_description", "status", "approve_by_admin",
	"uuid", "remote_key_id", "created_at", "updated_at",
}

var variantColumns = []string{
	"id", "product_id", "name", "sku", "stock", "price", "cost_price",
	"percentage", "weight", "details", "status", "remote_key_id",
	"created_at", "updated_at",
}

// SQLRepository works on any dialect database.Open supports.
type SQLRepository struct {
	store   *database.Store
	matcher product.Matcher
}

var _ product.Repository = (*SQLRepository)(nil)

func NewSQLRepository(store *database.Store) *SQLRepository {
	return &SQLRepository{store: store, matcher: product.NewMatcher()}
}

func (r *SQLRepository) UpsertProduct(ctx context.Context, p *model.Product) (*model.Product, bool, error) {
	key := product.MatchKey{SKU: p.SKU}
	if p.RemoteKeyID != nil {
		key.RemoteKeyID = *p.RemoteKeyID
	}

	var existing model.Product
	rule, err := r.matcher.Resolve(key, func(where database.Where) (bool, error) {
		return r.store.GetOne(ctx, &existing, productsTable, productColumns, where)
	})
	if err != nil {
		return nil, false, err
	}

	if rule == "" {
		if err := r.store.Insert(ctx, productsTable, productInsertFields(p)); err != nil {
			return nil, false, err
		}
		row, err := r.productBy(ctx, database.Eq("remote_key_id", key.RemoteKeyID))
		return row, true, err
	}

	update := database.Fields{
		"qty":           p.Qty,
		"remote_key_id": p.RemoteKeyID,
		"cost_price":    p.CostPrice,
	}
	byID := database.Eq("id", existing.ID)
	if _, err := r.store.Update(ctx, productsTable, byID.And(database.Differs(update)), update); err != nil {
		return nil, false, err
	}
	row, err := r.productBy(ctx, byID)
	return row, false, err
}

func (r *SQLRepository) productBy(ctx context.Context, where database.Where) (*model.Product, error) {
	var row model.Product
	found, err := r.store.GetOne(ctx, &row, productsTable, productColumns, where)
	if err != nil || !found {
		return nil, err
	}
	return &row, nil
}

func productInsertFields(p *model.Product) database.Fields {
	return database.Fields{
		"name":              p.Name,
		"short_name":        p.ShortName,
		"slug":              p.Slug,
		"sku":               p.SKU,
		"qty":               p.Qty,
		"thumb_image":       p.ThumbImage,
		"category_id":       p.CategoryID,
		"sub_category_id":   p.SubCategoryID,
		"child_category_id": p.ChildCategoryID,
		"weight":            p.Weight,
		"seo_title":         p.SeoTitle,
		"seo_description":   p.SeoDescription,
		"price":             p.Price,
		"cost_price":        p.CostPrice,
		"short_description": p.ShortDescription,
		"long_description":  p.LongDescription,
		"status":            p.Status,
		"approve_by_admin":  p.ApproveByAdmin,
		"uuid":              p.UUID,
		"remote_key_id":     p.RemoteKeyID,
	}
}

func (r *SQLRepository) UpsertVariant(ctx context.Context, v *model.ProductVariant) (*model.ProductVariant, bool, error) {
	insert := database.Fields{
		"product_id": v.ProductID,
		"name":       v.Name,
		"sku":        v.SKU,
		"stock":      v.Stock,
		"price":      v.Price,
		"cost_price": v.CostPrice,
		"percentage": v.Percentage,
		"weight":     v.Weight,
		"details":    v.Details,
		"status":     v.Status,
	}
	update := database.Fields{
		"stock":   v.Stock,
		"details": v.Details,
		"name":    v.Name,
	}

	var row model.ProductVariant
	inserted, found, err := r.store.Upsert(ctx, &row, variantsTable, variantColumns, insert, update, database.Eq("sku", v.SKU))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, inserted, nil
	}
	return &row, inserted, nil
}

func (r *SQLRepository) DeactivateVariantsExcept(ctx context.Context, productID int64, skus []string) (int64, error) {
	if len(skus) == 0 {
		return 0, fmt.Errorf("deactivate variants of %d: empty sku set", productID)
	}
	where := database.Eq("product_id", productID).And(
		database.NotIn("sku", skus),
		database.Raw("status <> ?", model.StatusInactive),
	)
	return r.store.Update(ctx, variantsTable, where, database.Fields{"status": model.StatusInactive})
}

func (r *SQLRepository) UpdateVariantStock(ctx context.Context, key product.MatchKey, stock int64) (string, error) {
	fields := database.Fields{"stock": stock}
	return r.matcher.Resolve(key, func(where database.Where) (bool, error) {
		n, err := r.store.Update(ctx, variantsTable, where.And(database.Differs(fields)), fields)
		return n > 0, err
	})
}

func (r *SQLRepository) FindVariantsByProduct(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	var rows []model.ProductVariant
	err := r.store.GetAll(ctx, &rows, variantsTable, variantColumns, database.Eq("product_id", productID), database.QueryOptions{OrderBy: "id"})
	return rows, err
}

func (r *SQLRepository) ListImageCandidates(ctx context.Context, limit int) ([]model.ImageCandidate, error) {
	var rows []model.ImageCandidate
	err := r.store.GetAll(ctx, &rows, productsTable,
		[]string{"id", "remote_key_id", "thumb_image"},
		database.Present("remote_key_id"),
		database.QueryOptions{OrderBy: "updated_at DESC, id DESC", Limit: limit},
	)
	return rows, err
}

func (r *SQLRepository) UpdateThumbImage(ctx context.Context, productID int64, path string) error {
	fields := database.Fields{"thumb_image": path}
	_, err := r.store.Update(ctx, productsTable, database.Eq("id", productID).And(database.Differs(fields)), fields)
	return err
}
