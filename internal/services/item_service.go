package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
	"wishtrack/internal/scrape"
)

// ItemStore is the persistence port the item ledger drives.
type ItemStore interface {
	GetWishlist(ctx context.Context, id int64) (core.Wishlist, error)
	SaveNewItem(ctx context.Context, item *core.Item) error
	GetItem(ctx context.Context, id int64) (core.Item, error)
	ListItems(ctx context.Context, limit, offset int64) ([]core.Item, error)
	SaveItemUpdate(ctx context.Context, item *core.Item, appended *core.PriceObservation) error
	UpdateItemWishlist(ctx context.Context, itemID, wishlistID int64) error
	DeleteItem(ctx context.Context, id int64) error
	DeleteItems(ctx context.Context, ids []int64) error
}

// RefreshGateway produces refreshed attributes for an item from its source
// shop.
type RefreshGateway interface {
	Refresh(ctx context.Context, item core.Item) (scrape.ScrapedItem, error)
}

// RefreshPublisher hands a refresh job to the async pipeline.
type RefreshPublisher interface {
	PublishItemRefresh(ctx context.Context, itemID int64) error
}

// ItemInput is the plain attribute bundle the surrounding API layer feeds in.
type ItemInput struct {
	Name           string
	Image          string
	Link           string
	SourcePlatform core.SourcePlatform
	Price          decimal.Decimal
}

// ItemService owns an item's current attributes and keeps its price history
// consistent across updates and refreshes.
type ItemService struct {
	store     ItemStore
	gateway   RefreshGateway
	publisher RefreshPublisher
}

func NewItemService(store ItemStore, gateway RefreshGateway, publisher RefreshPublisher) *ItemService {
	return &ItemService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
	}
}

// Create registers a new item under a wishlist and seeds its history with one
// observation at the creation price.
func (s *ItemService) Create(ctx context.Context, wishlistID int64, in *ItemInput) (core.Item, error) {
	if in == nil {
		return core.Item{}, core.ErrMissingInput
	}

	item := core.Item{
		WishlistID:     wishlistID,
		Name:           in.Name,
		Image:          in.Image,
		Link:           in.Link,
		SourcePlatform: in.SourcePlatform,
		Price:          in.Price,
	}
	if err := item.Validate(); err != nil {
		return core.Item{}, err
	}

	if _, err := s.store.GetWishlist(ctx, wishlistID); err != nil {
		return core.Item{}, fmt.Errorf("wishlist %d: %w", wishlistID, err)
	}

	core.InitializeHistory(&item, time.Now())

	if err := s.store.SaveNewItem(ctx, &item); err != nil {
		return core.Item{}, fmt.Errorf("save item: %w", err)
	}

	slog.InfoContext(ctx, "Item created",
		"item_id", item.ID,
		"wishlist_id", wishlistID,
		"platform", item.SourcePlatform.String(),
		"price", item.Price.String())
	return item, nil
}

func (s *ItemService) Get(ctx context.Context, id int64) (core.Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *ItemService) List(ctx context.Context, limit, offset int64) ([]core.Item, error) {
	return s.store.ListItems(ctx, limit, offset)
}

// Update overwrites the item's attributes. A new observation is appended only
// when the price actually changed; the fluctuation is recomputed either way,
// so unchanged prices never bloat the history.
func (s *ItemService) Update(ctx context.Context, itemID int64, in *ItemInput) (core.Item, error) {
	if in == nil {
		return core.Item{}, core.ErrMissingInput
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return core.Item{}, fmt.Errorf("item %d: %w", itemID, err)
	}

	item.Name = in.Name
	item.Image = in.Image
	item.Link = in.Link
	item.SourcePlatform = in.SourcePlatform

	var appended *core.PriceObservation
	if !item.Price.Equal(in.Price) {
		obs := core.PriceObservation{Date: time.Now(), Price: in.Price}
		if err := item.History.Append(obs); err != nil {
			return core.Item{}, err
		}
		item.Price = in.Price
		appended = &item.History.Observations[len(item.History.Observations)-1]
	} else {
		item.History.RecomputeFluctuation()
	}

	if err := s.store.SaveItemUpdate(ctx, &item, appended); err != nil {
		return core.Item{}, fmt.Errorf("save item update: %w", err)
	}

	slog.InfoContext(ctx, "Item updated",
		"item_id", item.ID,
		"price", item.Price.String(),
		"observation_appended", appended != nil,
		"fluctuation", item.History.Fluctuation)
	return item, nil
}

// ReassignWishlist moves an item to another wishlist.
func (s *ItemService) ReassignWishlist(ctx context.Context, itemID, wishlistID int64) error {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return fmt.Errorf("item %d: %w", itemID, err)
	}
	if _, err := s.store.GetWishlist(ctx, wishlistID); err != nil {
		return fmt.Errorf("wishlist %d: %w", wishlistID, err)
	}
	return s.store.UpdateItemWishlist(ctx, itemID, wishlistID)
}

// RefreshFromSource pulls fresh attributes from the item's shop and feeds
// them through the regular update path. When the gateway fails nothing is
// touched; when the platform is unknown the item is returned unchanged.
func (s *ItemService) RefreshFromSource(ctx context.Context, itemID int64) (core.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return core.Item{}, fmt.Errorf("item %d: %w", itemID, err)
	}

	scraped, err := s.gateway.Refresh(ctx, item)
	if err != nil {
		return core.Item{}, fmt.Errorf("%w: item %d from %s: %v",
			core.ErrRefreshFailed, itemID, item.SourcePlatform, err)
	}
	if scraped.IsEmpty() {
		slog.WarnContext(ctx, "Refresh produced no data, item left untouched",
			"item_id", itemID,
			"platform", item.SourcePlatform.String())
		return item, nil
	}

	in := ItemInput{
		Name:           scraped.Name,
		Image:          scraped.Image,
		Link:           scraped.Link,
		SourcePlatform: scraped.SourcePlatform,
		Price:          scraped.Price,
	}
	if in.Link == "" {
		in.Link = item.Link
	}
	if in.Image == "" {
		in.Image = item.Image
	}
	return s.Update(ctx, itemID, &in)
}

// EnqueueRefresh publishes an async refresh job for the item.
func (s *ItemService) EnqueueRefresh(ctx context.Context, itemID int64) error {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return fmt.Errorf("item %d: %w", itemID, err)
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "No refresh publisher configured, skipping enqueue",
			"item_id", itemID)
		return nil
	}
	return s.publisher.PublishItemRefresh(ctx, itemID)
}

func (s *ItemService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Item deleted", "item_id", id)
	return nil
}

func (s *ItemService) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return core.ErrMissingInput
	}
	if err := s.store.DeleteItems(ctx, ids); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Items deleted", "count", len(ids))
	return nil
}
