package order

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"ms-orders/internal/apperr"
	"ms-orders/internal/config"
	"ms-orders/internal/logger"
	"ms-orders/internal/models"
	"ms-orders/internal/order/db"

	"github.com/uptrace/bun"
)

// PaymentGateway is the outbound payment processor port.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency string, notes map[string]string) (string, error)
	CancelOrder(ctx context.Context, gatewayOrderID string) error
	KeyID() string
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Emailer sends transactional mail.
type Emailer interface {
	SendOrderConfirmation(ctx context.Context, email string, c models.OrderConfirmation) error
}

type Service struct {
	DB       *db.DB
	Gateway  PaymentGateway
	Notifier Notifier
	Emailer  Emailer

	cfg    config.CheckoutConfig
	logger *logger.Logger
}

func NewService(database *db.DB, gateway PaymentGateway, notifier Notifier, emailer Emailer, cfg config.CheckoutConfig, log *logger.Logger) *Service {
	return &Service{
		DB:       database,
		Gateway:  gateway,
		Notifier: notifier,
		Emailer:  emailer,
		cfg:      cfg,
		logger:   log,
	}
}

// toPaise converts decimal rupees to integer paise. This is the only place
// money crosses from the schema's representation into business math.
func toPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

func toRupees(paise int64) float64 {
	return float64(paise) / 100
}

// checkoutLine is the locked, snapshotted state of one cart item.
type checkoutLine struct {
	req       models.OrderItemRequest
	variant   *models.Variant
	product   *models.Product
	imagePath string
	linePaise int64
}

// Checkout reserves stock, prices the cart, registers a gateway order and
// creates the local order, all within one transaction. The gateway call
// happens before the local commit; if the commit fails afterwards a
// best-effort gateway cancel is issued.
func (s *Service) Checkout(ctx context.Context, userID int64, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return nil, err
	}

	var (
		resp           models.CreateOrderResponse
		gatewayOrderID string
		zeroedVariants []int64
	)

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		addr, err := s.DB.GetShippingAddress(ctx, tx, req.ShippingID, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return apperr.New(apperr.NotFound, "shipping address not found")
			}
			return err
		}

		// Lock variant rows in ascending id order so concurrent checkouts
		// sharing variants cannot deadlock. Items keep their request order.
		sortedItems := make([]models.OrderItemRequest, len(req.Items))
		copy(sortedItems, req.Items)
		sort.Slice(sortedItems, func(i, j int) bool {
			return sortedItems[i].VariantID < sortedItems[j].VariantID
		})

		lines := make(map[int64]*checkoutLine, len(req.Items))
		var subtotal int64
		for _, item := range sortedItems {
			variant, err := s.DB.GetVariantForUpdate(ctx, tx, item.VariantID)
			if err != nil {
				if db.IsNotFound(err) {
					return apperr.New(apperr.NotFound, fmt.Sprintf("variant %d not found", item.VariantID))
				}
				return err
			}
			if variant.Stock < item.Quantity {
				return apperr.New(apperr.Conflict, fmt.Sprintf("insufficient stock for variant %d", item.VariantID))
			}

			imagePath, err := s.DB.GetFirstVariantImage(ctx, tx, variant.ID)
			if err != nil {
				return err
			}

			linePaise := toPaise(variant.Price) * int64(item.Quantity)
			subtotal += linePaise
			lines[item.VariantID] = &checkoutLine{
				req:       item,
				variant:   variant,
				imagePath: imagePath,
				linePaise: linePaise,
			}
		}

		if err := s.loadLineProducts(ctx, tx, lines); err != nil {
			return err
		}

		var coupon *models.Coupon
		var discount int64
		if req.CouponCode != "" {
			coupon, err = s.validateCoupon(ctx, tx, req.CouponCode, userID, lines, subtotal)
			if err != nil {
				return err
			}
			discount = computeDiscount(coupon, subtotal)
		}

		shippingFee := s.cfg.ShippingFeePaise
		tax := subtotal * s.cfg.TaxRateBps / 10000
		total := subtotal + shippingFee + tax - discount
		if total <= 0 {
			return apperr.New(apperr.Validation, "order total must be positive")
		}

		// Remote order first, local commit after: a failed commit can cancel
		// the gateway order, but a committed order without a gateway order
		// could never be paid.
		gatewayOrderID, err = s.Gateway.CreateOrder(ctx, total, s.cfg.Currency, map[string]string{
			"user_id": strconv.FormatInt(userID, 10),
		})
		if err != nil {
			return apperr.Wrap(apperr.External, "payment gateway error", err)
		}

		now := time.Now()
		order := &models.Order{
			UserID:          userID,
			RazorpayOrderID: gatewayOrderID,
			PaymentStatus:   models.PaymentStatusPending,
			TotalAmount:     toRupees(total),
			ShippingFee:     toRupees(shippingFee),
			TaxAmount:       toRupees(tax),
			DiscountAmount:  toRupees(discount),
			ShipName:        addr.Name,
			ShipPhone:       addr.Phone,
			ShipLine1:       addr.Line1,
			ShipLine2:       addr.Line2,
			ShipCity:        addr.City,
			ShipState:       addr.State,
			ShipPincode:     addr.Pincode,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if coupon != nil {
			order.CouponCode = coupon.Code
			order.DiscountType = coupon.DiscountType
		}
		if err := s.DB.InsertOrder(ctx, tx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			line := lines[item.VariantID]
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				VariantID:   line.variant.ID,
				ProductName: line.product.Name,
				Description: line.variant.Description,
				Size:        line.variant.Size,
				Color:       line.variant.Color,
				Price:       line.variant.Price,
				ImagePath:   line.imagePath,
				Quantity:    item.Quantity,
			})
		}
		if err := s.DB.InsertOrderItems(ctx, tx, items); err != nil {
			return err
		}

		for _, item := range sortedItems {
			line := lines[item.VariantID]
			remaining := line.variant.Stock - item.Quantity
			if err := s.DB.SetVariantStock(ctx, tx, line.variant.ID, remaining); err != nil {
				return err
			}
			if remaining == 0 {
				zeroedVariants = append(zeroedVariants, line.variant.ID)
			}
		}

		if coupon != nil {
			if err := s.DB.IncrementCouponUsage(ctx, tx, coupon.ID); err != nil {
				return err
			}
		}

		resp = models.CreateOrderResponse{
			OrderID:    order.ID,
			PaymentID:  gatewayOrderID,
			Amount:     total,
			Currency:   s.cfg.Currency,
			GatewayKey: s.Gateway.KeyID(),
		}
		return nil
	})
	if err != nil {
		if gatewayOrderID != "" {
			s.cancelGatewayOrder(gatewayOrderID)
		}
		return nil, err
	}

	s.logger.LogOrder("CREATE", resp.OrderID, fmt.Sprintf("pending order for user %d, total %d paise", userID, resp.Amount))
	s.notifyLowStock(ctx, zeroedVariants)

	return &resp, nil
}

// loadLineProducts resolves the product for every locked line with one batch
// query and snapshots it onto the line.
func (s *Service) loadLineProducts(ctx context.Context, tx bun.Tx, lines map[int64]*checkoutLine) error {
	seen := make(map[int64]bool, len(lines))
	productIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		if !seen[line.variant.ProductID] {
			seen[line.variant.ProductID] = true
			productIDs = append(productIDs, line.variant.ProductID)
		}
	}

	products, err := s.DB.GetProductsByIDs(ctx, tx, productIDs)
	if err != nil {
		return err
	}
	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, line := range lines {
		product, ok := byID[line.variant.ProductID]
		if !ok {
			return apperr.New(apperr.Internal, fmt.Sprintf("product %d missing for variant %d", line.variant.ProductID, line.variant.ID))
		}
		line.product = product
	}
	return nil
}

func validateCheckoutRequest(req models.CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return apperr.New(apperr.Validation, "order must contain at least one item")
	}
	if req.ShippingID <= 0 {
		return apperr.New(apperr.Validation, "shipping_id is required")
	}
	seen := make(map[int64]bool, len(req.Items))
	for _, item := range req.Items {
		if item.VariantID <= 0 {
			return apperr.New(apperr.Validation, "each item must have a valid variant id")
		}
		if item.Quantity <= 0 {
			return apperr.New(apperr.Validation, fmt.Sprintf("invalid quantity for variant %d", item.VariantID))
		}
		if seen[item.VariantID] {
			return apperr.New(apperr.Validation, fmt.Sprintf("duplicate variant %d in order", item.VariantID))
		}
		seen[item.VariantID] = true
	}
	return nil
}

// cancelGatewayOrder compensates a gateway order after a failed local commit.
// Failures are logged only; there is no retry.
func (s *Service) cancelGatewayOrder(gatewayOrderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Gateway.CancelOrder(ctx, gatewayOrderID); err != nil {
		s.logger.Error("PAYMENT", fmt.Sprintf("failed to cancel gateway order %s after rollback: %v", gatewayOrderID, err))
	}
}

func (s *Service) notifyLowStock(ctx context.Context, variantIDs []int64) {
	for _, id := range variantIDs {
		n := models.Notification{
			Type:        "low_stock",
			Title:       "Variant out of stock",
			Description: fmt.Sprintf("Variant %d has reached zero stock", id),
			Priority:    "high",
			Deeplink:    fmt.Sprintf("/catalog/variants/%d", id),
			Target:      models.TargetRoleOf("admin"),
		}
		if err := s.Notifier.Notify(ctx, n); err != nil {
			s.logger.Error("NOTIFY", fmt.Sprintf("low stock notification for variant %d failed: %v", id, err))
		}
	}
}
