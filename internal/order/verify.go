package order

import (
	"context"
	"fmt"

	"ms-orders/internal/apperr"
	"ms-orders/internal/models"
	"ms-orders/internal/order/db"

	"github.com/uptrace/bun"
)

// VerifyPayment settles a gateway payment callback. The signature is checked
// before any database work; a forged callback never reaches the order table.
// Replayed callbacks for an already paid order are acknowledged without
// repeating side effects.
func (s *Service) VerifyPayment(ctx context.Context, userID int64, req models.VerifyPaymentRequest) (int64, error) {
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return 0, apperr.New(apperr.Validation, "gateway order id, payment id and signature are required")
	}

	if !s.Gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		s.logger.LogSecurity("PAYMENT", fmt.Sprintf("invalid payment signature for gateway order %s (user %d)", req.GatewayOrderID, userID))
		return 0, apperr.New(apperr.Unauthorized, "invalid payment signature")
	}

	var (
		orderID     int64
		alreadyPaid bool
		totalPaise  int64
		items       []models.OrderItem
		userEmail   string
	)

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.DB.GetOrderForUpdateByGatewayID(ctx, tx, req.GatewayOrderID, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return apperr.New(apperr.NotFound, "no order found for this payment")
			}
			return err
		}
		orderID = order.ID

		if order.PaymentStatus == models.PaymentStatusPaid {
			alreadyPaid = true
			return nil
		}
		if order.PaymentStatus != models.PaymentStatusPending {
			return apperr.New(apperr.NotFound, "no pending order found for this payment")
		}

		rows, err := s.DB.MarkOrderPaid(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.New(apperr.NotFound, "no pending order found for this payment")
		}

		event := &models.OrderStatusEvent{
			OrderID:   order.ID,
			Status:    StatusOrdered,
			CreatedBy: userID,
		}
		if err := s.DB.AddStatusEvent(ctx, tx, event); err != nil {
			return err
		}

		totalPaise = toPaise(order.TotalAmount)
		items, err = s.DB.GetOrderItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		user, err := s.DB.GetUserByID(ctx, tx, order.UserID)
		if err != nil {
			if !db.IsNotFound(err) {
				return err
			}
		} else {
			userEmail = user.Email
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if alreadyPaid {
		s.logger.LogPayment("VERIFY", req.GatewayOrderID, fmt.Sprintf("replayed callback for paid order %d", orderID))
		return orderID, nil
	}

	s.logger.LogPayment("VERIFY", req.GatewayOrderID, fmt.Sprintf("order %d marked paid", orderID))
	s.afterPayment(ctx, orderID, userID, userEmail, items, totalPaise)

	return orderID, nil
}

// afterPayment runs the post-commit side effects of a settled payment. All of
// them are best effort; the order is already paid.
func (s *Service) afterPayment(ctx context.Context, orderID, buyerID int64, userEmail string, items []models.OrderItem, totalPaise int64) {
	n := models.Notification{
		Type:        "order_received",
		Title:       "New order received",
		Description: fmt.Sprintf("Order #%d has been paid and awaits fulfillment", orderID),
		Priority:    "normal",
		Deeplink:    fmt.Sprintf("/orders/%d", orderID),
		Target:      models.TargetRoleOf("admin"),
	}
	if err := s.Notifier.Notify(ctx, n); err != nil {
		s.logger.Error("NOTIFY", fmt.Sprintf("order received notification for order %d failed: %v", orderID, err))
	}

	receipt := models.Notification{
		Type:        "payment_confirmed",
		Title:       "Payment confirmed",
		Description: fmt.Sprintf("Your payment for order #%d was received", orderID),
		Priority:    "normal",
		Deeplink:    fmt.Sprintf("/orders/%d", orderID),
		Target:      models.TargetUsersOf(buyerID),
	}
	if err := s.Notifier.Notify(ctx, receipt); err != nil {
		s.logger.Error("NOTIFY", fmt.Sprintf("payment confirmation notification for order %d failed: %v", orderID, err))
	}

	if userEmail == "" {
		return
	}
	confirmation := models.OrderConfirmation{
		OrderID:    orderID,
		Items:      items,
		TotalPaise: totalPaise,
		Currency:   s.cfg.Currency,
	}
	if err := s.Emailer.SendOrderConfirmation(ctx, userEmail, confirmation); err != nil {
		s.logger.Error("EMAIL", fmt.Sprintf("confirmation email for order %d failed: %v", orderID, err))
	}
}
