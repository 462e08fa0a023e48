package db

import (
	"context"
	"time"

	"ms-orders/internal/models"

	"github.com/uptrace/bun"
)

// GetVariantForUpdate locks the variant row; the lock is held until the
// enclosing transaction ends. This is the only mechanism that prevents
// overselling.
func (d *DB) GetVariantForUpdate(ctx context.Context, idb bun.IDB, id int64) (*models.Variant, error) {
	var variant models.Variant
	err := d.forUpdate(idb.NewSelect().
		Model(&variant).
		Where("id = ?", id).
		Limit(1)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// SetVariantStock writes an absolute stock value. Callers must hold the row
// lock from GetVariantForUpdate in the same transaction.
func (d *DB) SetVariantStock(ctx context.Context, idb bun.IDB, id int64, stock int) error {
	_, err := idb.NewUpdate().
		Model((*models.Variant)(nil)).
		Set("stock = ?", stock).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// RestoreVariantStock adds qty back to a variant's stock.
func (d *DB) RestoreVariantStock(ctx context.Context, idb bun.IDB, id int64, qty int) error {
	_, err := idb.NewUpdate().
		Model((*models.Variant)(nil)).
		Set("stock = stock + ?", qty).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// GetProductsByIDs loads the products for a set of ids in one query. A missing
// id simply yields no row; callers decide whether that is an error.
func (d *DB) GetProductsByIDs(ctx context.Context, idb bun.IDB, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	err := idb.NewSelect().
		Model(&products).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetFirstVariantImage returns the first image path for a variant, or "" when
// the variant has no images.
func (d *DB) GetFirstVariantImage(ctx context.Context, idb bun.IDB, variantID int64) (string, error) {
	var image models.VariantImage
	err := idb.NewSelect().
		Model(&image).
		Where("variant_id = ?", variantID).
		Order("id").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return image.Path, nil
}
