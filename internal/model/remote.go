package model

import (
	"strings"
	"time"
)

// RemoteProduct is an immutable snapshot of a product template read from the
// remote catalog.
type RemoteProduct struct {
	ID           int64
	Name         string
	SKU          *string
	ListPrice    float64
	CostPrice    float64
	Quantity     float64
	Weight       float64 // kilograms
	LastModified time.Time
}

type RemoteVariant struct {
	ID                int64
	ProductID         int64
	SKU               *string
	DisplayName       *string
	Quantity          float64
	ListPrice         float64
	CostPrice         float64
	Weight            float64 // kilograms
	AttributeValueIDs []int64
}

// Sellable reports whether the variant carries a usable SKU. Null, empty and the
// literal "false" (any case) all mean the variant is not sellable.
func (v RemoteVariant) Sellable() bool {
	return ValidSKU(v.SKU)
}

func ValidSKU(sku *string) bool {
	if sku == nil {
		return false
	}
	s := strings.TrimSpace(*sku)
	return s != "" && !strings.EqualFold(s, "false")
}

type RemoteAttributeValue struct {
	ID        int64
	ProductID int64
	ColorCode *string
	Name      string
	LineLabel string
}

// RemoteQuantity is the slim record read by the drift passes.
type RemoteQuantity struct {
	ID           int64
	Name         string
	Quantity     float64
	LastModified time.Time
}
