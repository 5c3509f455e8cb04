package dto

import "github.com/fekuna/omnipos-catalog-sync/internal/model"

type VariantResult struct {
	Variant  *model.ProductVariant
	Inserted bool
}

// ProductResult summarizes one product reconciliation.
type ProductResult struct {
	RemoteID  int64
	ProductID int64
	Inserted  bool
	// Aborted is set when the upsert produced no usable row.
	Aborted bool

	VariantsInserted    int
	VariantsUpdated     int
	VariantsSkipped     int
	VariantsFailed      int
	VariantsDeactivated int64
}
