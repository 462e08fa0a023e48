package order

import (
	"context"
	"fmt"

	"ms-orders/internal/apperr"
	"ms-orders/internal/models"
	"ms-orders/internal/order/db"

	"github.com/uptrace/bun"
)

// Fulfillment statuses. Orders walk OrderFlow strictly one step at a time;
// Canceled is a terminal exit available early in the flow.
const (
	StatusOrdered        = "Ordered"
	StatusShipping       = "Shipping"
	StatusOutForDelivery = "Out-for-delivery"
	StatusReturned       = "Returned"
	StatusReplace        = "Replace"
	StatusRefunded       = "Refunded"
	StatusCanceled       = "Canceled"
)

// OrderFlow is the linear fulfillment sequence.
var OrderFlow = []string{
	StatusOrdered,
	StatusShipping,
	StatusOutForDelivery,
	StatusReturned,
	StatusReplace,
	StatusRefunded,
}

// cancelableFrom lists the statuses an order may be canceled out of.
var cancelableFrom = map[string]bool{
	StatusOrdered:  true,
	StatusShipping: true,
}

func isKnownStatus(status string) bool {
	if status == StatusCanceled {
		return true
	}
	return flowIndex(status) >= 0
}

func flowIndex(status string) int {
	for i, s := range OrderFlow {
		if s == status {
			return i
		}
	}
	return -1
}

// nextStatuses returns the transitions legal from the current status. An order
// with no history may only enter the flow at Ordered.
func nextStatuses(current string) []string {
	if current == "" {
		return []string{StatusOrdered}
	}
	var next []string
	if idx := flowIndex(current); idx >= 0 && idx+1 < len(OrderFlow) {
		next = append(next, OrderFlow[idx+1])
	}
	if cancelableFrom[current] {
		next = append(next, StatusCanceled)
	}
	return next
}

// ApplyStatus advances an order's fulfillment state. A repeated Shipping update
// rewrites the latest shipping note in place instead of appending history.
func (s *Service) ApplyStatus(ctx context.Context, actorID int64, req models.StatusUpdateRequest) error {
	if req.OrderID <= 0 {
		return apperr.New(apperr.Validation, "orderId is required")
	}
	if !isKnownStatus(req.Status) {
		return apperr.New(apperr.Validation, fmt.Sprintf("unknown status %q", req.Status))
	}

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.DB.GetOrderForUpdate(ctx, tx, req.OrderID); err != nil {
			if db.IsNotFound(err) {
				return apperr.New(apperr.NotFound, "order not found")
			}
			return err
		}

		latest, err := s.DB.GetLatestStatusEvent(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}

		current := ""
		if latest != nil {
			current = latest.Status
		}

		// Shipping on top of Shipping updates the carrier note, not the history.
		if req.Status == StatusShipping && current == StatusShipping {
			if req.Note == "" {
				return apperr.New(apperr.Validation, "a note is required to update shipping details")
			}
			return s.DB.UpdateStatusEventNote(ctx, tx, latest.ID, req.Note)
		}

		if !contains(nextStatuses(current), req.Status) {
			from := current
			if from == "" {
				from = "unfulfilled"
			}
			return apperr.New(apperr.Conflict, fmt.Sprintf("cannot move order from %s to %s", from, req.Status))
		}

		if current == StatusOrdered && req.Status == StatusShipping && req.ShippingID == "" {
			return apperr.New(apperr.Validation, "shippingId is required to mark an order as shipping")
		}
		if req.ShippingID != "" {
			if err := s.DB.SetOrderShippingID(ctx, tx, req.OrderID, req.ShippingID); err != nil {
				return err
			}
		}

		return s.DB.AddStatusEvent(ctx, tx, &models.OrderStatusEvent{
			OrderID:   req.OrderID,
			Status:    req.Status,
			Note:      req.Note,
			CreatedBy: actorID,
		})
	})
	if err != nil {
		return err
	}

	s.logger.LogOrder("STATUS", req.OrderID, fmt.Sprintf("status set to %s by user %d", req.Status, actorID))
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
