package scrape

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"wishtrack/internal/core"
)

var (
	sheinTitle = regexp.MustCompile(`<meta[^>]*property="og:title"[^>]*content="([^"]+)"`)
	sheinImage = regexp.MustCompile(`<meta[^>]*property="og:image"[^>]*content="([^"]+)"`)
	sheinPrice = regexp.MustCompile(`"salePrice"\s*:\s*\{[^}]*"amount"\s*:\s*"([0-9.]+)"`)
)

// SheinScraper refreshes items registered from Shein product pages.
type SheinScraper struct {
	client *http.Client
}

func NewSheinScraper(client *http.Client) *SheinScraper {
	return &SheinScraper{client: client}
}

func (s *SheinScraper) Refresh(ctx context.Context, item core.Item) (ScrapedItem, error) {
	page, err := fetchPage(ctx, s.client, item.Link)
	if err != nil {
		return ScrapedItem{}, err
	}

	priceText := extractFirst(sheinPrice, page)
	if priceText == "" {
		return ScrapedItem{}, fmt.Errorf("shein page for item %d: price not found", item.ID)
	}
	price, err := ParsePriceText(priceText)
	if err != nil {
		return ScrapedItem{}, fmt.Errorf("shein page for item %d: %w", item.ID, err)
	}

	name := htmlUnescapeBasic(extractFirst(sheinTitle, page))
	if name == "" {
		name = item.Name
	}

	return ScrapedItem{
		Name:           name,
		Image:          extractFirst(sheinImage, page),
		Link:           item.Link,
		Price:          price,
		SourcePlatform: core.Shein,
	}, nil
}
