package odoo

import (
	"encoding/base64"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/spf13/cast"
)

// DateTimeLayout is the remote server's datetime format, always UTC.
const DateTimeLayout = "2006-01-02 15:04:05"

// The remote side encodes empty values as JSON false; these helpers map it to
// zero values or nil.

func optString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func floatOf(v any) float64 {
	if _, ok := v.(bool); ok {
		return 0
	}
	return cast.ToFloat64(v)
}

func many2oneID(v any) int64 {
	if pair, ok := v.([]any); ok && len(pair) > 0 {
		return cast.ToInt64(pair[0])
	}
	return 0
}

func many2oneLabel(v any) string {
	if pair, ok := v.([]any); ok && len(pair) > 1 {
		return cast.ToString(pair[1])
	}
	return ""
}

func idsOf(v any) []int64 {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(list))
	for _, item := range list {
		if id := cast.ToInt64(item); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func timeOf(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeProduct(r Record) model.RemoteProduct {
	return model.RemoteProduct{
		ID:           cast.ToInt64(r["id"]),
		Name:         stringOf(r["name"]),
		SKU:          optString(r["default_code"]),
		ListPrice:    floatOf(r["list_price"]),
		CostPrice:    floatOf(r["standard_price"]),
		Quantity:     floatOf(r["qty_available"]),
		Weight:       floatOf(r["weight"]),
		LastModified: timeOf(r["write_date"]),
	}
}

func decodeVariant(r Record) model.RemoteVariant {
	return model.RemoteVariant{
		ID:                cast.ToInt64(r["id"]),
		ProductID:         many2oneID(r["product_tmpl_id"]),
		SKU:               optString(r["default_code"]),
		DisplayName:       optString(r["display_name"]),
		Quantity:          floatOf(r["qty_available"]),
		ListPrice:         floatOf(r["lst_price"]),
		CostPrice:         floatOf(r["standard_price"]),
		Weight:            floatOf(r["weight"]),
		AttributeValueIDs: idsOf(r["product_template_variant_value_ids"]),
	}
}

func decodeAttributeValue(r Record) model.RemoteAttributeValue {
	return model.RemoteAttributeValue{
		ID:        cast.ToInt64(r["id"]),
		ProductID: many2oneID(r["product_tmpl_id"]),
		ColorCode: optString(r["html_color"]),
		Name:      stringOf(r["name"]),
		LineLabel: many2oneLabel(r["attribute_line_id"]),
	}
}

func decodeQuantity(r Record) model.RemoteQuantity {
	return model.RemoteQuantity{
		ID:           cast.ToInt64(r["id"]),
		Name:         stringOf(r["name"]),
		Quantity:     floatOf(r["qty_available"]),
		LastModified: timeOf(r["write_date"]),
	}
}

func decodeImage(r Record) ([]byte, bool) {
	s, ok := r["image_1920"].(string)
	if !ok || s == "" {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}
