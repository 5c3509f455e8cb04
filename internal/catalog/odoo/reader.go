package odoo

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/catalog"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/spf13/cast"
)

const (
	ProductModel        = "product.template"
	VariantModel        = "product.product"
	AttributeValueModel = "product.template.attribute.value"
)

var (
	productFields = []string{
		"id", "name", "default_code", "list_price", "standard_price",
		"qty_available", "weight", "write_date",
	}
	variantFields = []string{
		"id", "product_tmpl_id", "default_code", "display_name", "qty_available",
		"lst_price", "standard_price", "weight", "product_template_variant_value_ids",
	}
	attributeValueFields = []string{"id", "name", "html_color", "attribute_line_id", "product_tmpl_id"}
	quantityFields       = []string{"id", "qty_available", "name", "write_date"}
	imageFields          = []string{"id", "image_1920"}
)

// Reader implements catalog.Reader on top of Client.
type Reader struct {
	client    *Client
	chunkSize int
}

var _ catalog.Reader = (*Reader)(nil)

func NewReader(client *Client, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &Reader{client: client, chunkSize: chunkSize}
}

func (r *Reader) ProductsModifiedSince(ctx context.Context, since time.Time, pageSize int) ([]model.RemoteProduct, error) {
	domain := Domain{Cond("write_date", ">", since.UTC().Format(DateTimeLayout))}

	var products []model.RemoteProduct
	offset := 0
	for {
		page, err := r.client.SearchRead(ctx, ProductModel, domain, productFields, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("read modified products: %w", err)
		}
		for _, rec := range page {
			products = append(products, decodeProduct(rec))
		}
		if pageSize <= 0 || len(page) < pageSize {
			return products, nil
		}
		offset += len(page)
	}
}

func (r *Reader) VariantsByProducts(ctx context.Context, productIDs []int64) ([]model.RemoteVariant, error) {
	var variants []model.RemoteVariant
	for _, chunk := range chunks(productIDs, r.chunkSize) {
		recs, err := r.client.SearchRead(ctx, VariantModel, Domain{Cond("product_tmpl_id", "in", chunk)}, variantFields, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("read variants: %w", err)
		}
		for _, rec := range recs {
			variants = append(variants, decodeVariant(rec))
		}
	}
	return variants, nil
}

func (r *Reader) VariantsForProduct(ctx context.Context, productID int64) ([]model.RemoteVariant, error) {
	ids, err := r.client.Search(ctx, VariantModel, Domain{Cond("product_tmpl_id", "=", productID)})
	if err != nil {
		return nil, fmt.Errorf("search variants of %d: %w", productID, err)
	}
	recs, err := r.client.Read(ctx, VariantModel, ids, variantFields)
	if err != nil {
		return nil, fmt.Errorf("read variants of %d: %w", productID, err)
	}
	variants := make([]model.RemoteVariant, 0, len(recs))
	for _, rec := range recs {
		variants = append(variants, decodeVariant(rec))
	}
	return variants, nil
}

func (r *Reader) AttributeValues(ctx context.Context, valueIDs []int64) ([]model.RemoteAttributeValue, error) {
	var values []model.RemoteAttributeValue
	for _, chunk := range chunks(valueIDs, r.chunkSize) {
		recs, err := r.client.Read(ctx, AttributeValueModel, chunk, attributeValueFields)
		if err != nil {
			return nil, fmt.Errorf("read attribute values: %w", err)
		}
		for _, rec := range recs {
			values = append(values, decodeAttributeValue(rec))
		}
	}
	return values, nil
}

func (r *Reader) ProductQuantities(ctx context.Context, productIDs []int64) ([]model.RemoteQuantity, error) {
	recs, err := r.client.Read(ctx, ProductModel, productIDs, quantityFields)
	if err != nil {
		return nil, fmt.Errorf("read quantities: %w", err)
	}
	out := make([]model.RemoteQuantity, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeQuantity(rec))
	}
	return out, nil
}

func (r *Reader) ProductImages(ctx context.Context, productIDs []int64) (map[int64][]byte, error) {
	recs, err := r.client.Read(ctx, ProductModel, productIDs, imageFields)
	if err != nil {
		return nil, fmt.Errorf("read images: %w", err)
	}
	out := make(map[int64][]byte, len(recs))
	for _, rec := range recs {
		if img, ok := decodeImage(rec); ok {
			out[cast.ToInt64(rec["id"])] = img
		}
	}
	return out, nil
}

func chunks(ids []int64, size int) [][]int64 {
	var out [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
