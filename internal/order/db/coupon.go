package db

import (
	"context"

	"ms-orders/internal/models"

	"github.com/uptrace/bun"
)

// GetCouponForUpdateByCode locks the coupon row. Usage counting and the
// per-user prior-use check both happen under this lock, which serializes
// concurrent redemptions of the same code.
func (d *DB) GetCouponForUpdateByCode(ctx context.Context, idb bun.IDB, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.forUpdate(idb.NewSelect().
		Model(&coupon).
		Where("code = ?", code).
		Limit(1)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (d *DB) GetCouponSubcategoryIDs(ctx context.Context, idb bun.IDB, couponID int64) ([]int64, error) {
	var ids []int64
	err := idb.NewSelect().
		Column("sub_category_id").
		Table("coupon_subcategories").
		Where("coupon_id = ?", couponID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *DB) GetCouponProductIDs(ctx context.Context, idb bun.IDB, couponID int64) ([]int64, error) {
	var ids []int64
	err := idb.NewSelect().
		Column("product_id").
		Table("coupon_products").
		Where("coupon_id = ?", couponID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountOrdersWithCoupon counts prior orders by the user that redeemed the code.
func (d *DB) CountOrdersWithCoupon(ctx context.Context, idb bun.IDB, code string, userID int64) (int, error) {
	return idb.NewSelect().
		Model((*models.Order)(nil)).
		Where("coupon_code = ?", code).
		Where("user_id = ?", userID).
		Count(ctx)
}

func (d *DB) IncrementCouponUsage(ctx context.Context, idb bun.IDB, couponID int64) error {
	_, err := idb.NewUpdate().
		Model((*models.Coupon)(nil)).
		Set("used_count = used_count + 1").
		Where("id = ?", couponID).
		Exec(ctx)
	return err
}
