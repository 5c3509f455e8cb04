package odoo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Model  string
	Method string
	Args   []any
	Kwargs map[string]any
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) all() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

// fakeServer answers execute_kw calls with handle and records every call.
func fakeServer(t *testing.T, handle func(c call) (any, *RPCError)) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a := req.Params.Args
		c := call{Model: a[3].(string), Method: a[4].(string), Args: a[5].([]any)}
		if kw, ok := a[6].(map[string]any); ok {
			c.Kwargs = kw
		}
		rec.add(c)

		result, rpcErr := handle(c)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result, "error": rpcErr})
	}))
	t.Cleanup(srv.Close)

	return NewClient(Config{URL: srv.URL, DB: "shop", UID: 2, APIKey: "k", Timeout: 5 * time.Second}), rec
}

func TestReader_ProductsModifiedSince_PagesUntilShortPage(t *testing.T) {
	client, calls := fakeServer(t, func(c call) (any, *RPCError) {
		offset := int(c.Kwargs["offset"].(float64))
		switch offset {
		case 0:
			return []map[string]any{
				{"id": 1, "name": "Shirt", "default_code": "SH-1", "list_price": 20.5, "standard_price": 10, "qty_available": 4, "weight": 0.25, "write_date": "2024-03-01 10:00:00"},
				{"id": 2, "name": "Cap", "default_code": false, "list_price": 5, "standard_price": false, "qty_available": 0, "weight": false, "write_date": "2024-03-01 11:00:00"},
			}, nil
		default:
			return []map[string]any{
				{"id": 3, "name": "Sock", "default_code": "SO-1", "list_price": 2, "standard_price": 1, "qty_available": 9, "weight": 0.05, "write_date": false},
			}, nil
		}
	})

	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	products, err := NewReader(client, 100).ProductsModifiedSince(context.Background(), since, 2)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Len(t, calls.all(), 2)

	first := calls.all()[0]
	assert.Equal(t, ProductModel, first.Model)
	assert.Equal(t, "search_read", first.Method)
	assert.Equal(t, []any{[]any{"write_date", ">", "2024-02-01 00:00:00"}}, first.Args[0])

	assert.Equal(t, "SH-1", *products[0].SKU)
	assert.Equal(t, 20.5, products[0].ListPrice)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), products[0].LastModified)
	assert.Nil(t, products[1].SKU)
	assert.Zero(t, products[1].CostPrice)
	assert.True(t, products[2].LastModified.IsZero())
}

func TestReader_VariantsByProducts_ChunksIDs(t *testing.T) {
	client, calls := fakeServer(t, func(c call) (any, *RPCError) {
		return []map[string]any{
			{"id": 10, "product_tmpl_id": []any{1, "Shirt"}, "default_code": "SH-1-R", "display_name": "Shirt (Red)", "qty_available": 3, "lst_price": 20, "standard_price": 8, "weight": 0.2, "product_template_variant_value_ids": []any{7, 8}},
		}, nil
	})

	variants, err := NewReader(client, 2).VariantsByProducts(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, calls.all(), 2)
	require.Len(t, variants, 2)
	assert.Equal(t, int64(1), variants[0].ProductID)
	assert.Equal(t, []int64{7, 8}, variants[0].AttributeValueIDs)
	assert.Equal(t, "Shirt (Red)", *variants[0].DisplayName)
}

func TestReader_VariantsForProduct_SearchThenRead(t *testing.T) {
	client, calls := fakeServer(t, func(c call) (any, *RPCError) {
		if c.Method == "search" {
			return []int64{10, 11}, nil
		}
		return []map[string]any{
			{"id": 10, "product_tmpl_id": []any{1, "Shirt"}, "default_code": false, "display_name": "Shirt", "product_template_variant_value_ids": []any{}},
			{"id": 11, "product_tmpl_id": []any{1, "Shirt"}, "default_code": "SH-1-B", "display_name": "Shirt (Blue)", "product_template_variant_value_ids": false},
		}, nil
	})

	variants, err := NewReader(client, 0).VariantsForProduct(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	got := calls.all()
	assert.Equal(t, "search", got[0].Method)
	assert.Equal(t, "read", got[1].Method)
	assert.False(t, variants[0].Sellable())
	assert.True(t, variants[1].Sellable())
	assert.Empty(t, variants[1].AttributeValueIDs)
}

func TestReader_AttributeValues(t *testing.T) {
	client, _ := fakeServer(t, func(c call) (any, *RPCError) {
		return []map[string]any{
			{"id": 7, "name": "Red", "html_color": "#ff0000", "attribute_line_id": []any{3, "Color"}, "product_tmpl_id": []any{1, "Shirt"}},
			{"id": 8, "name": "XL", "html_color": false, "attribute_line_id": []any{4, "Size"}, "product_tmpl_id": []any{1, "Shirt"}},
		}, nil
	})

	values, err := NewReader(client, 50).AttributeValues(context.Background(), []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "#ff0000", *values[0].ColorCode)
	assert.Equal(t, "Color", values[0].LineLabel)
	assert.Nil(t, values[1].ColorCode)
	assert.Equal(t, "Size", values[1].LineLabel)
}

func TestReader_ProductImages_DecodesBase64(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nrest")
	client, _ := fakeServer(t, func(c call) (any, *RPCError) {
		return []map[string]any{
			{"id": 1, "image_1920": base64.StdEncoding.EncodeToString(png)},
			{"id": 2, "image_1920": false},
		}, nil
	})

	images, err := NewReader(client, 50).ProductImages(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int64][]byte{1: png}, images)
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL, Timeout: time.Second})
	_, err := NewReader(client, 10).ProductQuantities(context.Background(), []int64{1})
	assert.ErrorIs(t, err, model.ErrTransientRead)
}

func TestClient_RPCErrorIsNotTransient(t *testing.T) {
	client, _ := fakeServer(t, func(c call) (any, *RPCError) {
		e := &RPCError{Code: 200, Message: "Odoo Server Error"}
		e.Data.Name = "odoo.exceptions.AccessError"
		e.Data.Message = "denied"
		return nil, e
	})

	_, err := NewReader(client, 10).ProductQuantities(context.Background(), []int64{1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrTransientRead)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "denied", rpcErr.Data.Message)
}

func TestClient_EmptyReadSkipsRoundTrip(t *testing.T) {
	client, calls := fakeServer(t, func(c call) (any, *RPCError) { return nil, nil })

	quantities, err := NewReader(client, 10).ProductQuantities(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quantities)
	assert.Empty(t, calls.all())
}
