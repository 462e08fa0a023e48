package db

import (
	"context"

	"ms-orders/internal/models"

	"github.com/uptrace/bun"
)

func (d *DB) AddStatusEvent(ctx context.Context, idb bun.IDB, event *models.OrderStatusEvent) error {
	_, err := idb.NewInsert().Model(event).Exec(ctx)
	return err
}

// GetLatestStatusEvent returns the most recent status event for an order, or
// nil when the order has no fulfillment history yet.
func (d *DB) GetLatestStatusEvent(ctx context.Context, idb bun.IDB, orderID int64) (*models.OrderStatusEvent, error) {
	var event models.OrderStatusEvent
	err := idb.NewSelect().
		Model(&event).
		Where("order_id = ?", orderID).
		OrderExpr("created_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// UpdateStatusEventNote rewrites the note of an existing event in place. Used
// only for shipping note updates, never to rewrite history.
func (d *DB) UpdateStatusEventNote(ctx context.Context, idb bun.IDB, eventID int64, note string) error {
	_, err := idb.NewUpdate().
		Model((*models.OrderStatusEvent)(nil)).
		Set("note = ?", note).
		Where("id = ?", eventID).
		Exec(ctx)
	return err
}

func (d *DB) GetStatusHistory(ctx context.Context, idb bun.IDB, orderID int64) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	err := idb.NewSelect().
		Model(&events).
		Where("order_id = ?", orderID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}
