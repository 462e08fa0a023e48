package order

import (
	"context"

	"ms-orders/internal/apperr"
	"ms-orders/internal/models"
	"ms-orders/internal/order/db"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// GetOrderDetails returns an order with its items and full status history.
// Non-staff callers only see their own orders.
func (s *Service) GetOrderDetails(ctx context.Context, orderID, userID int64, staff bool) (*models.OrderDetails, error) {
	if orderID <= 0 {
		return nil, apperr.New(apperr.Validation, "orderId is required")
	}

	order, err := s.DB.GetOrderByID(ctx, s.DB.Bun, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "order not found")
		}
		return nil, err
	}
	if !staff && order.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}

	items, err := s.DB.GetOrderItems(ctx, s.DB.Bun, orderID)
	if err != nil {
		return nil, err
	}
	history, err := s.DB.GetStatusHistory(ctx, s.DB.Bun, orderID)
	if err != nil {
		return nil, err
	}

	return &models.OrderDetails{Order: *order, Items: items, History: history}, nil
}

// ListOrders is the staff-facing listing, optionally filtered by current
// fulfillment status.
func (s *Service) ListOrders(ctx context.Context, status string, offset, limit int) ([]models.OrderSummary, error) {
	if status != "" && !isKnownStatus(status) {
		return nil, apperr.New(apperr.Validation, "unknown status filter")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.DB.ListOrders(ctx, status, offset, limit)
}
