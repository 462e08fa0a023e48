package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-orders/internal/models"
	"ms-orders/internal/order/db"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	tables := []interface{}{
		(*models.User)(nil),
		(*models.Product)(nil),
		(*models.Variant)(nil),
		(*models.Coupon)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.OrderStatusEvent)(nil),
	}
	for _, model := range tables {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}

	return db.New(bunDB), bunDB
}

func insertOrder(t *testing.T, bunDB *bun.DB, o *models.Order) {
	if o.RazorpayOrderID == "" {
		o.RazorpayOrderID = "order_rzp_x"
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	if _, err := bunDB.NewInsert().Model(o).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert order: %v", err)
	}
}

func TestMarkOrderPaid(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertOrder(t, bunDB, &models.Order{ID: 1, UserID: 1, PaymentStatus: models.PaymentStatusPending, TotalAmount: 100})

	rows, err := orderDB.MarkOrderPaid(ctx, bunDB, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Already paid: the guarded update touches nothing.
	rows, err = orderDB.MarkOrderPaid(ctx, bunDB, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	order, err := orderDB.GetOrderByID(ctx, bunDB, 1)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
}

func TestGetOrderForUpdateByGatewayID(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertOrder(t, bunDB, &models.Order{ID: 1, UserID: 7, RazorpayOrderID: "order_rzp_abc", PaymentStatus: models.PaymentStatusPending})

	order, err := orderDB.GetOrderForUpdateByGatewayID(ctx, bunDB, "order_rzp_abc", 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)

	// Wrong owner behaves like a missing row.
	_, err = orderDB.GetOrderForUpdateByGatewayID(ctx, bunDB, "order_rzp_abc", 8)
	assert.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}

func TestLatestStatusEventOrdering(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertOrder(t, bunDB, &models.Order{ID: 1, UserID: 1, PaymentStatus: models.PaymentStatusPaid})

	latest, err := orderDB.GetLatestStatusEvent(ctx, bunDB, 1)
	assert.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Now().Add(-time.Hour)
	for i, status := range []string{"Ordered", "Shipping", "Out-for-delivery"} {
		err = orderDB.AddStatusEvent(ctx, bunDB, &models.OrderStatusEvent{
			OrderID:   1,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		assert.NoError(t, err)
	}

	latest, err = orderDB.GetLatestStatusEvent(ctx, bunDB, 1)
	assert.NoError(t, err)
	assert.NotNil(t, latest)
	assert.Equal(t, "Out-for-delivery", latest.Status)

	history, err := orderDB.GetStatusHistory(ctx, bunDB, 1)
	assert.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, "Ordered", history[0].Status)
}

func TestRestoreVariantStock(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	variant := &models.Variant{ID: 1, ProductID: 1, Price: 50, Stock: 3, UpdatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(variant).Exec(ctx)
	assert.NoError(t, err)

	err = orderDB.RestoreVariantStock(ctx, bunDB, 1, 4)
	assert.NoError(t, err)

	got, err := orderDB.GetVariantForUpdate(ctx, bunDB, 1)
	assert.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
}

func TestGetProductsByIDs(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	for id, name := range map[int64]string{1: "Plain Tee", 2: "Hoodie", 3: "Cap"} {
		_, err := bunDB.NewInsert().Model(&models.Product{ID: id, SubCategoryID: 1, Name: name}).Exec(ctx)
		assert.NoError(t, err)
	}

	products, err := orderDB.GetProductsByIDs(ctx, bunDB, []int64{1, 3, 99})
	assert.NoError(t, err)
	assert.Len(t, products, 2)

	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	assert.Equal(t, "Plain Tee", names[1])
	assert.Equal(t, "Cap", names[3])

	products, err = orderDB.GetProductsByIDs(ctx, bunDB, nil)
	assert.NoError(t, err)
	assert.Empty(t, products)
}

func TestGetStalePendingOrders(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	insertOrder(t, bunDB, &models.Order{ID: 1, UserID: 1, PaymentStatus: models.PaymentStatusPending, CreatedAt: old, UpdatedAt: old})
	insertOrder(t, bunDB, &models.Order{ID: 2, UserID: 1, PaymentStatus: models.PaymentStatusPending})
	insertOrder(t, bunDB, &models.Order{ID: 3, UserID: 1, PaymentStatus: models.PaymentStatusPaid, CreatedAt: old, UpdatedAt: old})

	stale, err := orderDB.GetStalePendingOrders(ctx, bunDB, time.Now().Add(-24*time.Hour))
	assert.NoError(t, err)
	assert.Len(t, stale, 1)
	assert.Equal(t, int64(1), stale[0].ID)
}

func TestDeleteOrdersCascades(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertOrder(t, bunDB, &models.Order{ID: 1, UserID: 1, PaymentStatus: models.PaymentStatusPending})
	_, err := bunDB.NewInsert().Model(&models.OrderItem{OrderID: 1, VariantID: 1, ProductName: "Tee", Price: 50, Quantity: 1}).Exec(ctx)
	assert.NoError(t, err)
	err = orderDB.AddStatusEvent(ctx, bunDB, &models.OrderStatusEvent{OrderID: 1, Status: "Ordered", CreatedAt: time.Now()})
	assert.NoError(t, err)

	err = orderDB.DeleteOrders(ctx, bunDB, []int64{1})
	assert.NoError(t, err)

	for _, model := range []interface{}{(*models.Order)(nil), (*models.OrderItem)(nil), (*models.OrderStatusEvent)(nil)} {
		count, err := bunDB.NewSelect().Model(model).Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, count)
	}
}

func TestCountOrdersWithCoupon(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertOrder(t, bunDB, &models.Order{ID: 1, UserID: 1, PaymentStatus: models.PaymentStatusPending, CouponCode: "SAVE10"})
	insertOrder(t, bunDB, &models.Order{ID: 2, UserID: 2, PaymentStatus: models.PaymentStatusPaid, CouponCode: "SAVE10"})

	count, err := orderDB.CountOrdersWithCoupon(ctx, bunDB, "SAVE10", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = orderDB.CountOrdersWithCoupon(ctx, bunDB, "SAVE10", 3)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIncrementCouponUsage(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	coupon := &models.Coupon{ID: 1, Code: "SAVE10", DiscountType: "fixed", DiscountValue: 10, IsActive: true, AppliesToType: "all"}
	_, err := bunDB.NewInsert().Model(coupon).Exec(ctx)
	assert.NoError(t, err)

	err = orderDB.IncrementCouponUsage(ctx, bunDB, 1)
	assert.NoError(t, err)
	err = orderDB.IncrementCouponUsage(ctx, bunDB, 1)
	assert.NoError(t, err)

	got, err := orderDB.GetCouponForUpdateByCode(ctx, bunDB, "SAVE10")
	assert.NoError(t, err)
	assert.Equal(t, 2, got.UsedCount)
}
