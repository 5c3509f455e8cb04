package model

import "time"

// Row status values shared by products and variants.
const (
	StatusInactive = 0
	StatusActive   = 1
)

type BaseModel struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Product is a storefront product row.
type Product struct {
	BaseModel
	Name             string  `db:"name" json:"name"`
	ShortName        string  `db:"short_name" json:"short_name"`
	Slug             string  `db:"slug" json:"slug"`
	SKU              *string `db:"sku" json:"sku"`
	Qty              int64   `db:"qty" json:"qty"`
	ThumbImage       string  `db:"thumb_image" json:"thumb_image"`
	CategoryID       int64   `db:"category_id" json:"category_id"`
	SubCategoryID    int64   `db:"sub_category_id" json:"sub_category_id"`
	ChildCategoryID  int64   `db:"child_category_id" json:"child_category_id"`
	Weight           float64 `db:"weight" json:"weight"` // grams
	SeoTitle         string  `db:"seo_title" json:"seo_title"`
	SeoDescription   string  `db:"seo_description" json:"seo_description"`
	Price            float64 `db:"price" json:"price"`
	CostPrice        float64 `db:"cost_price" json:"cost_price"`
	ShortDescription string  `db:"short_description" json:"short_description"`
	LongDescription  string  `db:"long_description" json:"long_description"`
	Status           int     `db:"status" json:"status"`
	ApproveByAdmin   int     `db:"approve_by_admin" json:"approve_by_admin"`
	UUID             string  `db:"uuid" json:"uuid"`
	RemoteKeyID      *string `db:"remote_key_id" json:"remote_key_id"`

	Variants []ProductVariant `db:"-" json:"variants"`
}

// ProductVariant is a storefront variant row. Details holds the serialized
// AttributeDescriptor list.
type ProductVariant struct {
	BaseModel
	ProductID   int64   `db:"product_id" json:"product_id"`
	Name        string  `db:"name" json:"name"`
	SKU         string  `db:"sku" json:"sku"`
	Stock       int64   `db:"stock" json:"stock"`
	Price       float64 `db:"price" json:"price"`
	CostPrice   float64 `db:"cost_price" json:"cost_price"`
	Percentage  int64   `db:"percentage" json:"percentage"`
	Weight      float64 `db:"weight" json:"weight"` // grams
	Details     string  `db:"details" json:"details"`
	Status      int     `db:"status" json:"status"`
	RemoteKeyID *string `db:"remote_key_id" json:"remote_key_id"`
}
