package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-orders/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type DB struct {
	Bun *bun.DB

	// SQLite (used by the test fixtures) rejects FOR UPDATE; its single-writer
	// model makes the lock redundant there. Postgres gets real row locks.
	lockingReads bool
}

func New(bundb *bun.DB) *DB {
	return &DB{
		Bun:          bundb,
		lockingReads: bundb.Dialect().Name() == dialect.PG,
	}
}

func (d *DB) forUpdate(q *bun.SelectQuery) *bun.SelectQuery {
	if d.lockingReads {
		return q.For("UPDATE")
	}
	return q
}

// RunInTx runs fn inside one database transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// ---------------- ORDERS ----------------

func (d *DB) InsertOrder(ctx context.Context, idb bun.IDB, order *models.Order) error {
	_, err := idb.NewInsert().Model(order).Exec(ctx)
	return err
}

func (d *DB) GetOrderByID(ctx context.Context, idb bun.IDB, id int64) (*models.Order, error) {
	var order models.Order
	err := idb.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdate locks the order row for the duration of the transaction.
func (d *DB) GetOrderForUpdate(ctx context.Context, idb bun.IDB, id int64) (*models.Order, error) {
	var order models.Order
	err := d.forUpdate(idb.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdateByGatewayID fetches the order matching a gateway order id
// and owning user, regardless of payment status, under a row lock.
func (d *DB) GetOrderForUpdateByGatewayID(ctx context.Context, idb bun.IDB, gatewayOrderID string, userID int64) (*models.Order, error) {
	var order models.Order
	err := d.forUpdate(idb.NewSelect().
		Model(&order).
		Where("razorpay_order_id = ?", gatewayOrderID).
		Where("user_id = ?", userID).
		Limit(1)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkOrderPaid transitions payment_status pending→paid. Returns the number of
// rows affected; zero means the order was not pending.
func (d *DB) MarkOrderPaid(ctx context.Context, idb bun.IDB, orderID int64) (int64, error) {
	res, err := idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_status = ?", models.PaymentStatusPaid).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", orderID).
		Where("payment_status = ?", models.PaymentStatusPending).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) SetOrderShippingID(ctx context.Context, idb bun.IDB, orderID int64, shippingID string) error {
	_, err := idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("shipping_id = ?", shippingID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", orderID).
		Exec(ctx)
	return err
}

func (d *DB) InsertOrderItems(ctx context.Context, idb bun.IDB, items []models.OrderItem) error {
	_, err := idb.NewInsert().Model(&items).Exec(ctx)
	return err
}

func (d *DB) GetOrderItems(ctx context.Context, idb bun.IDB, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := idb.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetStalePendingOrders returns pending orders whose updated_at is older than
// the cutoff, locked for the reaping transaction.
func (d *DB) GetStalePendingOrders(ctx context.Context, idb bun.IDB, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := d.forUpdate(idb.NewSelect().
		Model(&orders).
		Where("payment_status = ?", models.PaymentStatusPending).
		Where("updated_at < ?", cutoff)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteOrders deletes orders by id. Order items cascade in the schema; the
// sqlite test fixture deletes them explicitly.
func (d *DB) DeleteOrders(ctx context.Context, idb bun.IDB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := idb.NewDelete().
		Model((*models.OrderItem)(nil)).
		Where("order_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return err
	}
	if _, err := idb.NewDelete().
		Model((*models.OrderStatusEvent)(nil)).
		Where("order_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return err
	}
	_, err := idb.NewDelete().
		Model((*models.Order)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

// ListOrders returns a page of orders with their current status resolved. An
// empty status lists everything.
func (d *DB) ListOrders(ctx context.Context, status string, offset, limit int) ([]models.OrderSummary, error) {
	var orders []models.Order
	q := d.Bun.NewSelect().
		Model(&orders).
		OrderExpr("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit)
	if status != "" {
		q = q.Where(`(SELECT os.status FROM order_status os WHERE os.order_id = "order".id ORDER BY os.created_at DESC, os.id DESC LIMIT 1) = ?`, status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []models.OrderSummary{}, nil
	}

	orderIDs := make([]int64, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	var events []models.OrderStatusEvent
	err := d.Bun.NewSelect().
		Model(&events).
		Where("order_id IN (?)", bun.In(orderIDs)).
		OrderExpr("order_id, created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	// Last event per order wins.
	latest := make(map[int64]string)
	for _, ev := range events {
		latest[ev.OrderID] = ev.Status
	}

	result := make([]models.OrderSummary, len(orders))
	for i, o := range orders {
		result[i] = models.OrderSummary{Order: o, CurrentStatus: latest[o.ID]}
	}
	return result, nil
}

// ---------------- COLLABORATOR LOOKUPS ----------------

func (d *DB) GetShippingAddress(ctx context.Context, idb bun.IDB, id, userID int64) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	err := idb.NewSelect().
		Model(&addr).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (d *DB) GetUserByID(ctx context.Context, idb bun.IDB, id int64) (*models.User, error) {
	var user models.User
	err := idb.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsNotFound reports whether err is the driver's empty-result error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
