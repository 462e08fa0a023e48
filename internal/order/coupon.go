package order

import (
	"context"
	"math"
	"time"

	"ms-orders/internal/apperr"
	"ms-orders/internal/models"
	"ms-orders/internal/order/db"

	"github.com/uptrace/bun"
)

// validateCoupon checks a coupon against the locked cart. The coupon row is
// itself locked for the rest of the transaction, so the usage counters read
// here stay true until commit.
func (s *Service) validateCoupon(ctx context.Context, tx bun.Tx, code string, userID int64, lines map[int64]*checkoutLine, subtotal int64) (*models.Coupon, error) {
	coupon, err := s.DB.GetCouponForUpdateByCode(ctx, tx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "coupon not found")
		}
		return nil, err
	}

	now := time.Now()
	switch {
	case !coupon.IsActive:
		return nil, apperr.New(apperr.Conflict, "coupon is not active")
	case coupon.StartDate != nil && now.Before(*coupon.StartDate):
		return nil, apperr.New(apperr.Conflict, "coupon is not valid yet")
	case coupon.EndDate != nil && now.After(*coupon.EndDate):
		return nil, apperr.New(apperr.Conflict, "coupon has expired")
	case coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit:
		return nil, apperr.New(apperr.Conflict, "coupon usage limit reached")
	case subtotal < toPaise(coupon.MinPurchaseAmount):
		return nil, apperr.New(apperr.Conflict, "order subtotal is below the coupon minimum purchase")
	}

	applies, err := s.couponApplies(ctx, tx, coupon, lines)
	if err != nil {
		return nil, err
	}
	if !applies {
		return nil, apperr.New(apperr.Conflict, "coupon does not apply to any item in the order")
	}

	used, err := s.DB.CountOrdersWithCoupon(ctx, tx, coupon.Code, userID)
	if err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, apperr.New(apperr.Conflict, "coupon already redeemed by this user")
	}

	return coupon, nil
}

// couponApplies reports whether at least one cart line falls inside the
// coupon's product scope.
func (s *Service) couponApplies(ctx context.Context, tx bun.Tx, coupon *models.Coupon, lines map[int64]*checkoutLine) (bool, error) {
	switch coupon.AppliesToType {
	case models.AppliesToAll:
		return true, nil

	case models.AppliesToProducts:
		productIDs, err := s.DB.GetCouponProductIDs(ctx, tx, coupon.ID)
		if err != nil {
			return false, err
		}
		allowed := make(map[int64]bool, len(productIDs))
		for _, id := range productIDs {
			allowed[id] = true
		}
		for _, line := range lines {
			if allowed[line.product.ID] {
				return true, nil
			}
		}
		return false, nil

	case models.AppliesToSubcategories:
		subIDs, err := s.DB.GetCouponSubcategoryIDs(ctx, tx, coupon.ID)
		if err != nil {
			return false, err
		}
		allowed := make(map[int64]bool, len(subIDs))
		for _, id := range subIDs {
			allowed[id] = true
		}
		for _, line := range lines {
			if allowed[line.product.SubCategoryID] {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, apperr.New(apperr.Internal, "coupon has an unknown applicability type")
	}
}

// computeDiscount turns a validated coupon into a paise discount on the item
// subtotal, capped so it can never exceed the subtotal itself.
func computeDiscount(coupon *models.Coupon, subtotal int64) int64 {
	var discount int64
	switch coupon.DiscountType {
	case models.DiscountTypePercentage:
		discount = int64(math.Round(float64(subtotal) * coupon.DiscountValue / 100))
	case models.DiscountTypeFixed:
		discount = toPaise(coupon.DiscountValue)
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
