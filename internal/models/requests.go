package models

type OrderItemRequest struct {
	VariantID int64 `json:"variantId"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderRequest struct {
	Items      []OrderItemRequest `json:"items"`
	ShippingID int64              `json:"shipping_id"`
	CouponCode string             `json:"coupon_code,omitempty"`
}

// CreateOrderResponse carries what the gateway checkout widget needs. Amount is
// in paise, matching what the gateway expects.
type CreateOrderResponse struct {
	OrderID    int64  `json:"orderId"`
	PaymentID  string `json:"paymentId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	GatewayKey string `json:"gatewayKey"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

type VerifyPaymentResponse struct {
	OrderID int64 `json:"orderId"`
}

type StatusUpdateRequest struct {
	OrderID    int64  `json:"orderId"`
	Status     string `json:"status"`
	Note       string `json:"note,omitempty"`
	ShippingID string `json:"shippingId,omitempty"`
}
