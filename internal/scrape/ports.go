package scrape

import (
	"context"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
)

// ScrapedItem is the refreshed attribute bundle a platform adapter produces.
// A zero value means the source had nothing for the item.
type ScrapedItem struct {
	Name           string
	Image          string
	Link           string
	Price          decimal.Decimal
	SourcePlatform core.SourcePlatform
}

// IsEmpty reports whether the scrape produced no data.
func (s ScrapedItem) IsEmpty() bool {
	return s.Name == "" && s.Image == "" && s.Link == "" && s.Price.IsZero()
}

// Scraper refreshes an item's attributes from its source shop.
type Scraper interface {
	Refresh(ctx context.Context, item core.Item) (ScrapedItem, error)
}
