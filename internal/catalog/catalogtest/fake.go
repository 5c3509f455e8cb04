// Package catalogtest provides an in-memory catalog.Reader for tests.
package catalogtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/catalog"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

const (
	OpProducts        = "products"
	OpVariants        = "variants"
	OpProductVariants = "product_variants"
	OpAttributeValues = "attribute_values"
	OpQuantities      = "quantities"
	OpImages          = "images"
)

type Fake struct {
	mu sync.Mutex

	products map[int64]model.RemoteProduct
	variants []model.RemoteVariant
	values   map[int64]model.RemoteAttributeValue
	images   map[int64][]byte

	failOp  map[string]failure
	failIDs map[int64]failure
	calls   map[string]int
}

type failure struct {
	remaining int
	err       error
}

var _ catalog.Reader = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		products: map[int64]model.RemoteProduct{},
		values:   map[int64]model.RemoteAttributeValue{},
		images:   map[int64][]byte{},
		failOp:   map[string]failure{},
		failIDs:  map[int64]failure{},
		calls:    map[string]int{},
	}
}

func (f *Fake) AddProduct(p model.RemoteProduct, variants ...model.RemoteVariant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
	for _, v := range variants {
		v.ProductID = p.ID
		f.variants = append(f.variants, v)
	}
}

func (f *Fake) AddAttributeValues(values ...model.RemoteAttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.values[v.ID] = v
	}
}

func (f *Fake) SetImage(productID int64, img []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[productID] = img
}

// SetQuantity changes the remote on-hand quantity of a product.
func (f *Fake) SetQuantity(productID int64, qty float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[productID]
	p.Quantity = qty
	f.products[productID] = p
}

// FailOp makes the next n calls of op return err.
func (f *Fake) FailOp(op string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOp[op] = failure{remaining: n, err: err}
}

// FailQuantitiesFor makes the next n quantity reads that include productID
// return err.
func (f *Fake) FailQuantitiesFor(productID int64, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIDs[productID] = failure{remaining: n, err: err}
}

func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter records a call and returns the injected failure, if any. Callers hold mu.
func (f *Fake) enter(op string) error {
	f.calls[op]++
	fl, ok := f.failOp[op]
	if !ok || fl.remaining == 0 {
		return nil
	}
	fl.remaining--
	f.failOp[op] = fl
	return fl.err
}

func (f *Fake) ProductsModifiedSince(ctx context.Context, since time.Time, pageSize int) ([]model.RemoteProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpProducts); err != nil {
		return nil, err
	}
	var out []model.RemoteProduct
	for _, p := range f.products {
		if p.LastModified.After(since) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) VariantsByProducts(ctx context.Context, productIDs []int64) ([]model.RemoteVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpVariants); err != nil {
		return nil, err
	}
	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	var out []model.RemoteVariant
	for _, v := range f.variants {
		if want[v.ProductID] {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *Fake) VariantsForProduct(ctx context.Context, productID int64) ([]model.RemoteVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpProductVariants); err != nil {
		return nil, err
	}
	var out []model.RemoteVariant
	for _, v := range f.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *Fake) AttributeValues(ctx context.Context, valueIDs []int64) ([]model.RemoteAttributeValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpAttributeValues); err != nil {
		return nil, err
	}
	var out []model.RemoteAttributeValue
	for _, id := range valueIDs {
		if v, ok := f.values[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *Fake) ProductQuantities(ctx context.Context, productIDs []int64) ([]model.RemoteQuantity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpQuantities); err != nil {
		return nil, err
	}
	for _, id := range productIDs {
		fl, ok := f.failIDs[id]
		if !ok || fl.remaining == 0 {
			continue
		}
		fl.remaining--
		f.failIDs[id] = fl
		return nil, fmt.Errorf("quantities for %v: %w", productIDs, fl.err)
	}
	var out []model.RemoteQuantity
	for _, id := range productIDs {
		if p, ok := f.products[id]; ok {
			out = append(out, model.RemoteQuantity{ID: p.ID, Name: p.Name, Quantity: p.Quantity, LastModified: p.LastModified})
		}
	}
	return out, nil
}

func (f *Fake) ProductImages(ctx context.Context, productIDs []int64) (map[int64][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpImages); err != nil {
		return nil, err
	}
	out := map[int64][]byte{}
	for _, id := range productIDs {
		if img, ok := f.images[id]; ok {
			out[id] = img
		}
	}
	return out, nil
}
