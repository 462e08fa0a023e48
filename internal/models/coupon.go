package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Coupon applicability scopes.
const (
	AppliesToAll           = "all"
	AppliesToSubcategories = "subcategories"
	AppliesToProducts      = "products"
)

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id"`
	Code              string     `bun:"code,notnull,unique" json:"code"`
	DiscountType      string     `bun:"discount_type,notnull" json:"discount_type"`
	DiscountValue     float64    `bun:"discount_value,notnull" json:"discount_value"`
	MinPurchaseAmount float64    `bun:"min_purchase_amount" json:"min_purchase_amount"`
	StartDate         *time.Time `bun:"start_date,nullzero" json:"start_date,omitempty"`
	EndDate           *time.Time `bun:"end_date,nullzero" json:"end_date,omitempty"`
	// UsageLimit of zero means unlimited.
	UsageLimit    int    `bun:"usage_limit" json:"usage_limit"`
	UsedCount     int    `bun:"used_count,notnull" json:"used_count"`
	IsActive      bool   `bun:"is_active,notnull" json:"is_active"`
	AppliesToType string `bun:"applies_to_type,notnull" json:"applies_to_type"`
}

type CouponSubcategory struct {
	bun.BaseModel `bun:"table:coupon_subcategories"`

	CouponID      int64 `bun:"coupon_id,pk" json:"coupon_id"`
	SubCategoryID int64 `bun:"sub_category_id,pk" json:"sub_category_id"`
}

type CouponProduct struct {
	bun.BaseModel `bun:"table:coupon_products"`

	CouponID  int64 `bun:"coupon_id,pk" json:"coupon_id"`
	ProductID int64 `bun:"product_id,pk" json:"product_id"`
}
