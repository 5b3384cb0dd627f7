package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"wishtrack/internal/amqp"
	"wishtrack/internal/core"
)

// ItemRefresher is the slice of the item service the worker drives.
type ItemRefresher interface {
	List(ctx context.Context, limit, offset int64) ([]core.Item, error)
	RefreshFromSource(ctx context.Context, itemID int64) (core.Item, error)
}

// RefreshWorker consumes refresh jobs and periodically sweeps the whole
// catalog so items keep fresh prices even when no job was ever queued.
type RefreshWorker struct {
	items     ItemRefresher
	batchSize int
}

func NewRefreshWorker(items ItemRefresher, batchSize int) *RefreshWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &RefreshWorker{
		items:     items,
		batchSize: batchSize,
	}
}

// HandleRefreshMessage processes a single refresh job from AMQP.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.ItemRefreshMessage) error {
	slog.InfoContext(ctx, "Processing refresh message",
		"item_id", msg.ItemID,
		"queued_at", msg.Timestamp)

	item, err := w.items.RefreshFromSource(ctx, msg.ItemID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Item deleted between enqueue and delivery; nothing to retry.
			slog.WarnContext(ctx, "Refresh target no longer exists, dropping job",
				"item_id", msg.ItemID)
			return nil
		}
		return fmt.Errorf("refresh item %d: %w", msg.ItemID, err)
	}

	slog.InfoContext(ctx, "Item refreshed",
		"item_id", item.ID,
		"price", item.Price.String(),
		"fluctuation", item.History.Fluctuation)
	return nil
}

// SweepAll refreshes every item in the catalog, batchSize at a time. A failed
// item is logged and skipped so one broken listing cannot stall the sweep.
func (w *RefreshWorker) SweepAll(ctx context.Context) error {
	var offset int64
	var refreshed, failed atomic.Int64

	for {
		page, err := w.items.List(ctx, int64(w.batchSize), offset)
		if err != nil {
			return fmt.Errorf("list items at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.batchSize)
		for _, item := range page {
			g.Go(func() error {
				if _, err := w.items.RefreshFromSource(gctx, item.ID); err != nil {
					slog.ErrorContext(gctx, "Sweep refresh failed",
						"item_id", item.ID,
						"error", err)
					failed.Add(1)
					return nil
				}
				refreshed.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		offset += int64(len(page))
	}

	slog.InfoContext(ctx, "Catalog sweep finished",
		"refreshed", refreshed.Load(),
		"failed", failed.Load())
	return nil
}

// Run sweeps the catalog on the given interval until the context is
// cancelled. An immediate sweep runs at startup to catch up after downtime.
func (w *RefreshWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.SweepAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.SweepAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sweep failed", "error", err)
			}
		}
	}
}
