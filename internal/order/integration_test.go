package order_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ms-orders/internal/apperr"
	"ms-orders/internal/config"
	"ms-orders/internal/database/migrations"
	"ms-orders/internal/logger"
	"ms-orders/internal/models"
	"ms-orders/internal/order"
	"ms-orders/internal/order/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// countingGateway hands out distinct gateway order ids and is safe to call
// from concurrent checkouts.
type countingGateway struct {
	seq int64
}

func (g *countingGateway) CreateOrder(ctx context.Context, amountPaise int64, currency string, notes map[string]string) (string, error) {
	return fmt.Sprintf("order_rzp_cc_%d", atomic.AddInt64(&g.seq, 1)), nil
}

func (g *countingGateway) CancelOrder(ctx context.Context, gatewayOrderID string) error {
	return nil
}

func (g *countingGateway) KeyID() string {
	return "rzp_test_key"
}

func (g *countingGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return true
}

// TestConcurrentCheckouts races two checkouts against a real Postgres, where
// the row locks actually serialize. SQLite fixtures cannot exercise this.
func TestConcurrentCheckouts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shopuser",
				"POSTGRES_PASSWORD": "shoppass",
				"POSTGRES_DB":       "shopdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	defer pgContainer.Terminate(ctx)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://shopuser:shoppass@%s:%s/shopdb?sslmode=disable", host, port.Port())
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	defer sqldb.Close()
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: "../../migrations"})
	require.NoError(t, runner.MigrateUp())

	seed := []interface{}{
		&models.User{ID: 1, Email: "alice@example.com", Name: "Alice"},
		&models.User{ID: 2, Email: "bob@example.com", Name: "Bob"},
		&models.ShippingAddress{ID: 1, UserID: 1, Name: "Alice", Phone: "9999999999", Line1: "1 Main St", City: "Pune", State: "MH", Pincode: "411001"},
		&models.ShippingAddress{ID: 2, UserID: 2, Name: "Bob", Phone: "8888888888", Line1: "2 Main St", City: "Pune", State: "MH", Pincode: "411001"},
		&models.SubCategory{ID: 1, CategoryID: 1, Name: "Shirts"},
		&models.Product{ID: 1, SubCategoryID: 1, Name: "Plain Tee"},
		&models.Variant{ID: 5, ProductID: 1, Description: "Last unit", Price: 100.00, Stock: 1, UpdatedAt: time.Now()},
		&models.Variant{ID: 6, ProductID: 1, Description: "Plenty in stock", Price: 100.00, Stock: 10, UpdatedAt: time.Now()},
		&models.Coupon{ID: 1, Code: "LAST1", DiscountType: models.DiscountTypeFixed, DiscountValue: 10.00, IsActive: true, AppliesToType: models.AppliesToAll, UsageLimit: 1},
	}
	for _, row := range seed {
		_, err := bunDB.NewInsert().Model(row).Exec(ctx)
		require.NoError(t, err)
	}

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	cfg := config.CheckoutConfig{Currency: "INR", PendingMaxAge: 24 * time.Hour}
	svc := order.NewService(db.New(bunDB), &countingGateway{}, notifier, new(MockEmailer), cfg, logger.NewNop())

	// race runs one checkout per user at the same time and reports how many
	// succeeded and how many lost with a conflict.
	race := func(t *testing.T, reqs map[int64]models.CreateOrderRequest) (winners, conflicts int) {
		t.Helper()
		errs := make(map[int64]error, len(reqs))
		var mu sync.Mutex
		var wg sync.WaitGroup
		start := make(chan struct{})
		for userID, req := range reqs {
			wg.Add(1)
			go func(userID int64, req models.CreateOrderRequest) {
				defer wg.Done()
				<-start
				_, err := svc.Checkout(ctx, userID, req)
				mu.Lock()
				errs[userID] = err
				mu.Unlock()
			}(userID, req)
		}
		close(start)
		wg.Wait()

		for userID, err := range errs {
			switch {
			case err == nil:
				winners++
			case apperr.KindOf(err) == apperr.Conflict:
				conflicts++
			default:
				t.Fatalf("Unexpected checkout error for user %d: %v", userID, err)
			}
		}
		return winners, conflicts
	}

	t.Run("last unit sells exactly once", func(t *testing.T) {
		winners, conflicts := race(t, map[int64]models.CreateOrderRequest{
			1: {Items: []models.OrderItemRequest{{VariantID: 5, Quantity: 1}}, ShippingID: 1},
			2: {Items: []models.OrderItemRequest{{VariantID: 5, Quantity: 1}}, ShippingID: 2},
		})
		assert.Equal(t, 1, winners)
		assert.Equal(t, 1, conflicts)

		var variant models.Variant
		require.NoError(t, bunDB.NewSelect().Model(&variant).Where("id = ?", 5).Scan(ctx))
		assert.Equal(t, 0, variant.Stock)

		sold, err := bunDB.NewSelect().Model((*models.OrderItem)(nil)).Where("variant_id = ?", 5).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sold)
	})

	t.Run("single-use coupon redeems exactly once", func(t *testing.T) {
		winners, conflicts := race(t, map[int64]models.CreateOrderRequest{
			1: {Items: []models.OrderItemRequest{{VariantID: 6, Quantity: 1}}, ShippingID: 1, CouponCode: "LAST1"},
			2: {Items: []models.OrderItemRequest{{VariantID: 6, Quantity: 1}}, ShippingID: 2, CouponCode: "LAST1"},
		})
		assert.Equal(t, 1, winners)
		assert.Equal(t, 1, conflicts)

		var coupon models.Coupon
		require.NoError(t, bunDB.NewSelect().Model(&coupon).Where("code = ?", "LAST1").Scan(ctx))
		assert.Equal(t, 1, coupon.UsedCount)

		redeemed, err := bunDB.NewSelect().Model((*models.Order)(nil)).Where("coupon_code = ?", "LAST1").Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, redeemed)
	})
}
