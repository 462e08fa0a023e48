package order_test

import (
	"context"
	"testing"
	"time"

	"ms-orders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

func seedOrderWithItems(t *testing.T, bunDB *bun.DB, orderID int64, status string, age time.Duration, qty int) {
	ctx := context.Background()
	ts := time.Now().Add(-age)
	o := &models.Order{
		ID:              orderID,
		UserID:          1,
		RazorpayOrderID: "order_rzp_r",
		PaymentStatus:   status,
		TotalAmount:     100.00,
		ShipName:        "Alice",
		ShipPhone:       "9999999999",
		ShipLine1:       "1 Main St",
		ShipCity:        "Pune",
		ShipState:       "MH",
		ShipPincode:     "411001",
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if _, err := bunDB.NewInsert().Model(o).Exec(ctx); err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}

	item := &models.OrderItem{
		OrderID:     orderID,
		VariantID:   5,
		ProductName: "Plain Tee",
		Price:       100.00,
		Quantity:    qty,
	}
	if _, err := bunDB.NewInsert().Model(item).Exec(ctx); err != nil {
		t.Fatalf("Failed to seed order item: %v", err)
	}
}

func orderCount(t *testing.T, bunDB *bun.DB) int {
	count, err := bunDB.NewSelect().Model((*models.Order)(nil)).Count(context.Background())
	if err != nil {
		t.Fatalf("Failed to count orders: %v", err)
	}
	return count
}

func TestReapStalePending(t *testing.T) {
	env := newTestService(t)
	defer env.bunDB.Close()
	seedCatalog(t, env.bunDB)

	// Variant 5 starts at stock 10; pretend two units were reserved by the
	// stale order.
	_, err := env.bunDB.NewUpdate().
		Model((*models.Variant)(nil)).
		Set("stock = ?", 8).
		Where("id = ?", 5).
		Exec(context.Background())
	assert.NoError(t, err)

	seedOrderWithItems(t, env.bunDB, 100, models.PaymentStatusPending, 48*time.Hour, 2)
	seedOrderWithItems(t, env.bunDB, 101, models.PaymentStatusPending, time.Minute, 1)
	seedOrderWithItems(t, env.bunDB, 102, models.PaymentStatusPaid, 48*time.Hour, 3)

	reaped, err := env.svc.ReapStalePending(context.Background(), 24*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, 1, reaped)

	// Only the stale pending order is gone, and only its stock came back.
	assert.Equal(t, 2, orderCount(t, env.bunDB))
	assert.Equal(t, 10, variantStock(t, env.bunDB, 5))

	count, err := env.bunDB.NewSelect().
		Model((*models.OrderItem)(nil)).
		Where("order_id = ?", 100).
		Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReapNothingToDo(t *testing.T) {
	env := newTestService(t)
	defer env.bunDB.Close()
	seedCatalog(t, env.bunDB)

	seedOrderWithItems(t, env.bunDB, 100, models.PaymentStatusPending, time.Minute, 1)

	reaped, err := env.svc.ReapStalePending(context.Background(), 24*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, 0, reaped)
	assert.Equal(t, 1, orderCount(t, env.bunDB))
}

func TestReapUsesConfiguredWindow(t *testing.T) {
	env := newTestService(t)
	defer env.bunDB.Close()
	seedCatalog(t, env.bunDB)

	// PendingMaxAge in the test config is 24h.
	seedOrderWithItems(t, env.bunDB, 100, models.PaymentStatusPending, 25*time.Hour, 1)

	reaped, err := env.svc.ReapStalePending(context.Background(), 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, reaped)
}
