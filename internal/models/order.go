package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment status lifecycle: pending → paid, at most once; pending → failed.
// A paid order never regresses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID              int64  `bun:"id,pk,autoincrement" json:"id"`
	UserID          int64  `bun:"user_id,notnull" json:"user_id"`
	RazorpayOrderID string `bun:"razorpay_order_id,notnull" json:"razorpay_order_id"`
	PaymentStatus   string `bun:"payment_status,notnull" json:"payment_status"`

	// Monetary columns are decimal rupees in the schema. Business logic works
	// in integer paise and converts exactly once at this boundary.
	TotalAmount    float64 `bun:"total_amount" json:"total_amount"`
	ShippingFee    float64 `bun:"shipping_fee" json:"shipping_fee"`
	TaxAmount      float64 `bun:"tax_amount" json:"tax_amount"`
	DiscountAmount float64 `bun:"discount_amount" json:"discount_amount"`

	CouponCode   string `bun:"coupon_code,nullzero" json:"coupon_code,omitempty"`
	DiscountType string `bun:"discount_type,nullzero" json:"discount_type,omitempty"`

	// Shipping carrier id, set on the Ordered→Shipping transition.
	ShippingID string `bun:"shipping_id,nullzero" json:"shipping_id,omitempty"`

	// Immutable shipping address snapshot, decoupled from later address edits.
	ShipName    string `bun:"ship_name" json:"ship_name"`
	ShipPhone   string `bun:"ship_phone" json:"ship_phone"`
	ShipLine1   string `bun:"ship_line1" json:"ship_line1"`
	ShipLine2   string `bun:"ship_line2,nullzero" json:"ship_line2,omitempty"`
	ShipCity    string `bun:"ship_city" json:"ship_city"`
	ShipState   string `bun:"ship_state" json:"ship_state"`
	ShipPincode string `bun:"ship_pincode" json:"ship_pincode"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// OrderItem snapshots product and variant fields at purchase time.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID          int64   `bun:"id,pk,autoincrement" json:"id"`
	OrderID     int64   `bun:"order_id,notnull" json:"order_id"`
	VariantID   int64   `bun:"variant_id,notnull" json:"variant_id"`
	ProductName string  `bun:"product_name" json:"product_name"`
	Description string  `bun:"description" json:"description"`
	Size        string  `bun:"size,nullzero" json:"size,omitempty"`
	Color       string  `bun:"color,nullzero" json:"color,omitempty"`
	Price       float64 `bun:"price" json:"price"`
	ImagePath   string  `bun:"image_path,nullzero" json:"image_path,omitempty"`
	Quantity    int     `bun:"quantity,notnull" json:"quantity"`
}

// OrderStatusEvent is an append-only fulfillment log row. The current status of
// an order is its most recent event.
type OrderStatusEvent struct {
	bun.BaseModel `bun:"table:order_status"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID   int64     `bun:"order_id,notnull" json:"order_id"`
	Status    string    `bun:"status,notnull" json:"status"`
	Note      string    `bun:"note,nullzero" json:"note,omitempty"`
	CreatedBy int64     `bun:"created_by" json:"created_by"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// OrderDetails is the /order/details response shape.
type OrderDetails struct {
	Order   Order              `json:"order"`
	Items   []OrderItem        `json:"items"`
	History []OrderStatusEvent `json:"history"`
}

// OrderSummary is one row of the staff listing.
type OrderSummary struct {
	Order
	CurrentStatus string `json:"current_status"`
}
