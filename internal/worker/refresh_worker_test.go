package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wishtrack/internal/amqp"
	"wishtrack/internal/core"
)

type fakeRefresher struct {
	mu        sync.Mutex
	items     []core.Item
	refreshed []int64
	failIDs   map[int64]error
}

func (f *fakeRefresher) List(_ context.Context, limit, offset int64) ([]core.Item, error) {
	if offset >= int64(len(f.items)) {
		return nil, nil
	}
	end := offset + limit
	if end > int64(len(f.items)) {
		end = int64(len(f.items))
	}
	return f.items[offset:end], nil
}

func (f *fakeRefresher) RefreshFromSource(_ context.Context, itemID int64) (core.Item, error) {
	if err, ok := f.failIDs[itemID]; ok {
		return core.Item{}, err
	}
	f.mu.Lock()
	f.refreshed = append(f.refreshed, itemID)
	f.mu.Unlock()
	item := core.Item{ID: itemID, Price: decimal.RequireFromString("10")}
	core.InitializeHistory(&item, time.Now())
	return item, nil
}

func catalog(n int) []core.Item {
	items := make([]core.Item, n)
	for i := range items {
		items[i] = core.Item{ID: int64(i + 1)}
	}
	return items
}

func TestHandleRefreshMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes existing item", func(t *testing.T) {
		ref := &fakeRefresher{items: catalog(1)}
		w := NewRefreshWorker(ref, 5)

		msg := amqp.NewItemRefreshMessage(1)
		if err := w.HandleRefreshMessage(ctx, msg); err != nil {
			t.Fatalf("HandleRefreshMessage() error = %v", err)
		}
		if len(ref.refreshed) != 1 || ref.refreshed[0] != 1 {
			t.Errorf("refreshed = %v, want [1]", ref.refreshed)
		}
	})

	t.Run("drops job for deleted item", func(t *testing.T) {
		ref := &fakeRefresher{failIDs: map[int64]error{42: core.ErrNotFound}}
		w := NewRefreshWorker(ref, 5)

		if err := w.HandleRefreshMessage(ctx, amqp.NewItemRefreshMessage(42)); err != nil {
			t.Fatalf("expected dropped job, got error %v", err)
		}
	})

	t.Run("propagates refresh failure for redelivery", func(t *testing.T) {
		ref := &fakeRefresher{failIDs: map[int64]error{7: core.ErrRefreshFailed}}
		w := NewRefreshWorker(ref, 5)

		err := w.HandleRefreshMessage(ctx, amqp.NewItemRefreshMessage(7))
		if !errors.Is(err, core.ErrRefreshFailed) {
			t.Fatalf("error = %v, want ErrRefreshFailed", err)
		}
	})
}

func TestSweepAll(t *testing.T) {
	ctx := context.Background()

	t.Run("covers the whole catalog across pages", func(t *testing.T) {
		ref := &fakeRefresher{items: catalog(7)}
		w := NewRefreshWorker(ref, 3)

		if err := w.SweepAll(ctx); err != nil {
			t.Fatalf("SweepAll() error = %v", err)
		}
		if len(ref.refreshed) != 7 {
			t.Errorf("refreshed %d items, want 7", len(ref.refreshed))
		}
	})

	t.Run("a failing item does not stall the sweep", func(t *testing.T) {
		ref := &fakeRefresher{
			items:   catalog(4),
			failIDs: map[int64]error{2: core.ErrRefreshFailed},
		}
		w := NewRefreshWorker(ref, 2)

		if err := w.SweepAll(ctx); err != nil {
			t.Fatalf("SweepAll() error = %v", err)
		}
		if len(ref.refreshed) != 3 {
			t.Errorf("refreshed %d items, want 3", len(ref.refreshed))
		}
	})

	t.Run("empty catalog is a no-op", func(t *testing.T) {
		w := NewRefreshWorker(&fakeRefresher{}, 2)
		if err := w.SweepAll(ctx); err != nil {
			t.Fatalf("SweepAll() error = %v", err)
		}
	})
}
