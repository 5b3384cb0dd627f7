package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"wishtrack/internal/core"
)

// Gateway routes a refresh request to the platform adapter matching the
// item's source tag. Adding a platform means registering one more scraper;
// the dispatch itself never changes.
type Gateway struct {
	scrapers map[core.SourcePlatform]Scraper
}

func NewGateway(client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Gateway{
		scrapers: map[core.SourcePlatform]Scraper{
			core.Amazon:       NewAmazonScraper(client),
			core.AliExpress:   NewAliExpressScraper(client),
			core.MercadoLivre: NewMercadoLivreScraper(client),
			core.Shein:        NewSheinScraper(client),
		},
	}
}

// Register installs or replaces the scraper for a platform tag.
func (g *Gateway) Register(tag core.SourcePlatform, s Scraper) {
	g.scrapers[tag] = s
}

// Refresh dispatches to the adapter for the item's platform. An unknown tag
// yields an empty result, not an error.
func (g *Gateway) Refresh(ctx context.Context, item core.Item) (ScrapedItem, error) {
	s, ok := g.scrapers[item.SourcePlatform]
	if !ok {
		slog.WarnContext(ctx, "No scraper for platform, returning empty result",
			"item_id", item.ID,
			"platform", item.SourcePlatform.String())
		return ScrapedItem{}, nil
	}
	return s.Refresh(ctx, item)
}
