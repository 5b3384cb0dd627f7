package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
	"wishtrack/internal/scrape"
)

type fakeItemStore struct {
	wishlists map[int64]core.Wishlist
	items     map[int64]core.Item
	nextID    int64

	savedUpdates  int
	lastAppended  *core.PriceObservation
	deletedIDs    []int64
	reassignments map[int64]int64
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{
		wishlists:     map[int64]core.Wishlist{},
		items:         map[int64]core.Item{},
		nextID:        1,
		reassignments: map[int64]int64{},
	}
}

func (f *fakeItemStore) addWishlist(userID int64, title string) core.Wishlist {
	w := core.Wishlist{ID: f.nextID, UserID: userID, Title: title}
	f.nextID++
	f.wishlists[w.ID] = w
	return w
}

func (f *fakeItemStore) GetWishlist(_ context.Context, id int64) (core.Wishlist, error) {
	w, ok := f.wishlists[id]
	if !ok {
		return core.Wishlist{}, core.ErrNotFound
	}
	return w, nil
}

func (f *fakeItemStore) SaveNewItem(_ context.Context, item *core.Item) error {
	item.ID = f.nextID
	f.nextID++
	item.History.ItemID = item.ID
	f.items[item.ID] = *item
	return nil
}

func (f *fakeItemStore) GetItem(_ context.Context, id int64) (core.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return core.Item{}, core.ErrNotFound
	}
	return item, nil
}

func (f *fakeItemStore) ListItems(_ context.Context, limit, offset int64) ([]core.Item, error) {
	out := make([]core.Item, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeItemStore) SaveItemUpdate(_ context.Context, item *core.Item, appended *core.PriceObservation) error {
	f.items[item.ID] = *item
	f.savedUpdates++
	f.lastAppended = appended
	return nil
}

func (f *fakeItemStore) UpdateItemWishlist(_ context.Context, itemID, wishlistID int64) error {
	f.reassignments[itemID] = wishlistID
	return nil
}

func (f *fakeItemStore) DeleteItem(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.items, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeItemStore) DeleteItems(_ context.Context, ids []int64) error {
	for _, id := range ids {
		if err := f.DeleteItem(context.Background(), id); err != nil {
			return err
		}
	}
	return nil
}

type fakeGateway struct {
	scraped scrape.ScrapedItem
	err     error
	calls   int
}

func (f *fakeGateway) Refresh(_ context.Context, _ core.Item) (scrape.ScrapedItem, error) {
	f.calls++
	return f.scraped, f.err
}

type fakePublisher struct {
	published []int64
	err       error
}

func (f *fakePublisher) PublishItemRefresh(_ context.Context, itemID int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, itemID)
	return nil
}

func seedServiceItem(t *testing.T, store *fakeItemStore, svc *ItemService, price string) core.Item {
	t.Helper()
	w := store.addWishlist(1, "gadgets")
	item, err := svc.Create(context.Background(), w.ID, &ItemInput{
		Name:           "headphones",
		Link:           "https://shop.example/p/1",
		SourcePlatform: core.Amazon,
		Price:          decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return item
}

func TestItemServiceCreateSeedsHistory(t *testing.T) {
	store := newFakeItemStore()
	svc := NewItemService(store, &fakeGateway{}, nil)

	item := seedServiceItem(t, store, svc, "199.90")

	if item.History == nil {
		t.Fatal("expected seeded history")
	}
	if got := len(item.History.Observations); got != 1 {
		t.Fatalf("observations = %d, want 1", got)
	}
	if !item.History.Observations[0].Price.Equal(decimal.RequireFromString("199.90")) {
		t.Errorf("seed observation price = %s, want 199.90", item.History.Observations[0].Price)
	}
	if item.History.Fluctuation != 0 {
		t.Errorf("fluctuation = %v, want 0", item.History.Fluctuation)
	}
}

func TestItemServiceCreateValidation(t *testing.T) {
	store := newFakeItemStore()
	w := store.addWishlist(1, "gadgets")
	svc := NewItemService(store, &fakeGateway{}, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		wishlistID int64
		input      *ItemInput
		wantErr    error
	}{
		{
			name:       "nil input",
			wishlistID: w.ID,
			input:      nil,
			wantErr:    core.ErrMissingInput,
		},
		{
			name:       "negative price",
			wishlistID: w.ID,
			input: &ItemInput{
				Name:           "headphones",
				SourcePlatform: core.Amazon,
				Price:          decimal.RequireFromString("-1"),
			},
			wantErr: core.ErrInvalidPrice,
		},
		{
			name:       "missing wishlist",
			wishlistID: 999,
			input: &ItemInput{
				Name:           "headphones",
				SourcePlatform: core.Amazon,
				Price:          decimal.RequireFromString("10"),
			},
			wantErr: core.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.wishlistID, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestItemServiceUpdateAppendsOnlyOnPriceChange(t *testing.T) {
	store := newFakeItemStore()
	svc := NewItemService(store, &fakeGateway{}, nil)
	ctx := context.Background()

	item := seedServiceItem(t, store, svc, "100")

	// Same price: attributes change, history does not grow.
	updated, err := svc.Update(ctx, item.ID, &ItemInput{
		Name:           "wireless headphones",
		SourcePlatform: core.Amazon,
		Price:          decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := len(updated.History.Observations); got != 1 {
		t.Fatalf("observations after same-price update = %d, want 1", got)
	}
	if store.lastAppended != nil {
		t.Error("expected no appended observation for unchanged price")
	}
	if updated.Name != "wireless headphones" {
		t.Errorf("name = %q, want overwritten attribute", updated.Name)
	}

	// New price: one observation appended, fluctuation recomputed.
	updated, err = svc.Update(ctx, item.ID, &ItemInput{
		Name:           "wireless headphones",
		SourcePlatform: core.Amazon,
		Price:          decimal.RequireFromString("120"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := len(updated.History.Observations); got != 2 {
		t.Fatalf("observations after price change = %d, want 2", got)
	}
	if store.lastAppended == nil {
		t.Fatal("expected appended observation for changed price")
	}
	if updated.History.Fluctuation != 0.20 {
		t.Errorf("fluctuation = %v, want 0.20", updated.History.Fluctuation)
	}
	if !updated.Price.Equal(decimal.RequireFromString("120")) {
		t.Errorf("price = %s, want 120", updated.Price)
	}
}

func TestItemServiceRefreshFromSource(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway failure leaves item untouched", func(t *testing.T) {
		store := newFakeItemStore()
		gateway := &fakeGateway{err: errors.New("boom")}
		svc := NewItemService(store, gateway, nil)
		item := seedServiceItem(t, store, svc, "100")

		_, err := svc.RefreshFromSource(ctx, item.ID)
		if !errors.Is(err, core.ErrRefreshFailed) {
			t.Fatalf("RefreshFromSource() error = %v, want ErrRefreshFailed", err)
		}
		if store.savedUpdates != 0 {
			t.Errorf("savedUpdates = %d, want 0", store.savedUpdates)
		}
	})

	t.Run("empty scrape returns item unchanged", func(t *testing.T) {
		store := newFakeItemStore()
		gateway := &fakeGateway{}
		svc := NewItemService(store, gateway, nil)
		item := seedServiceItem(t, store, svc, "100")

		got, err := svc.RefreshFromSource(ctx, item.ID)
		if err != nil {
			t.Fatalf("RefreshFromSource() error = %v", err)
		}
		if !got.Price.Equal(item.Price) || len(got.History.Observations) != 1 {
			t.Error("expected item unchanged on empty scrape")
		}
	})

	t.Run("scraped data flows through update", func(t *testing.T) {
		store := newFakeItemStore()
		gateway := &fakeGateway{scraped: scrape.ScrapedItem{
			Name:           "headphones v2",
			Price:          decimal.RequireFromString("80"),
			SourcePlatform: core.Amazon,
		}}
		svc := NewItemService(store, gateway, nil)
		item := seedServiceItem(t, store, svc, "100")

		got, err := svc.RefreshFromSource(ctx, item.ID)
		if err != nil {
			t.Fatalf("RefreshFromSource() error = %v", err)
		}
		if got.Name != "headphones v2" {
			t.Errorf("name = %q, want scraped name", got.Name)
		}
		if got.Link != item.Link {
			t.Errorf("link = %q, want original kept when scrape is blank", got.Link)
		}
		if got := len(got.History.Observations); got != 2 {
			t.Errorf("observations = %d, want 2", got)
		}
	})
}

func TestItemServiceEnqueueRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes for existing item", func(t *testing.T) {
		store := newFakeItemStore()
		pub := &fakePublisher{}
		svc := NewItemService(store, &fakeGateway{}, pub)
		item := seedServiceItem(t, store, svc, "100")

		if err := svc.EnqueueRefresh(ctx, item.ID); err != nil {
			t.Fatalf("EnqueueRefresh() error = %v", err)
		}
		if len(pub.published) != 1 || pub.published[0] != item.ID {
			t.Errorf("published = %v, want [%d]", pub.published, item.ID)
		}
	})

	t.Run("missing item fails before publish", func(t *testing.T) {
		store := newFakeItemStore()
		pub := &fakePublisher{}
		svc := NewItemService(store, &fakeGateway{}, pub)

		if err := svc.EnqueueRefresh(ctx, 42); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("EnqueueRefresh() error = %v, want ErrNotFound", err)
		}
		if len(pub.published) != 0 {
			t.Error("expected no publish for missing item")
		}
	})

	t.Run("nil publisher is a no-op", func(t *testing.T) {
		store := newFakeItemStore()
		svc := NewItemService(store, &fakeGateway{}, nil)
		item := seedServiceItem(t, store, svc, "100")

		if err := svc.EnqueueRefresh(ctx, item.ID); err != nil {
			t.Fatalf("EnqueueRefresh() error = %v", err)
		}
	})
}

func TestItemServiceDeleteMany(t *testing.T) {
	store := newFakeItemStore()
	svc := NewItemService(store, &fakeGateway{}, nil)
	ctx := context.Background()

	if err := svc.DeleteMany(ctx, nil); !errors.Is(err, core.ErrMissingInput) {
		t.Fatalf("DeleteMany(nil) error = %v, want ErrMissingInput", err)
	}

	a := seedServiceItem(t, store, svc, "10")
	b := seedServiceItem(t, store, svc, "20")
	if err := svc.DeleteMany(ctx, []int64{a.ID, b.ID}); err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}
	if len(store.items) != 0 {
		t.Errorf("items left = %d, want 0", len(store.items))
	}
}
