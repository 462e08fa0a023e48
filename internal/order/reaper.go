package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// ReapStalePending deletes pending orders older than olderThan and puts their
// reserved stock back. Runs as one transaction so a crash mid-reap never
// leaves an order deleted with its stock still held. Returns the number of
// orders reaped.
func (s *Service) ReapStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.PendingMaxAge
	}

	var reaped int
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		cutoff := time.Now().Add(-olderThan)
		orders, err := s.DB.GetStalePendingOrders(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return nil
		}

		orderIDs := make([]int64, len(orders))
		restore := make(map[int64]int)
		for i, o := range orders {
			orderIDs[i] = o.ID
			items, err := s.DB.GetOrderItems(ctx, tx, o.ID)
			if err != nil {
				return err
			}
			for _, item := range items {
				restore[item.VariantID] += item.Quantity
			}
		}

		// Restore in ascending variant id order, same as checkout locks them.
		variantIDs := make([]int64, 0, len(restore))
		for id := range restore {
			variantIDs = append(variantIDs, id)
		}
		sort.Slice(variantIDs, func(i, j int) bool { return variantIDs[i] < variantIDs[j] })
		for _, id := range variantIDs {
			if err := s.DB.RestoreVariantStock(ctx, tx, id, restore[id]); err != nil {
				return err
			}
		}

		if err := s.DB.DeleteOrders(ctx, tx, orderIDs); err != nil {
			return err
		}
		reaped = len(orders)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if reaped > 0 {
		s.logger.Info("REAPER", fmt.Sprintf("reaped %d stale pending orders older than %s", reaped, olderThan))
	}
	return reaped, nil
}

// RunReaper reaps on a fixed interval until the context is canceled. Meant to
// be started once from main as a goroutine.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReapStalePending(ctx, 0); err != nil {
				s.logger.Error("REAPER", fmt.Sprintf("reap cycle failed: %v", err))
			}
		}
	}
}
