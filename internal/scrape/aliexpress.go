package scrape

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"wishtrack/internal/core"
)

var (
	aliTitle = regexp.MustCompile(`<meta[^>]*property="og:title"[^>]*content="([^"]+)"`)
	aliImage = regexp.MustCompile(`<meta[^>]*property="og:image"[^>]*content="([^"]+)"`)
	// AliExpress embeds the sale price in a JSON blob on the page.
	aliPrice = regexp.MustCompile(`"salePrice"\s*:\s*\{[^}]*"value"\s*:\s*([0-9.]+)`)
)

// AliExpressScraper refreshes items registered from AliExpress product pages.
type AliExpressScraper struct {
	client *http.Client
}

func NewAliExpressScraper(client *http.Client) *AliExpressScraper {
	return &AliExpressScraper{client: client}
}

func (s *AliExpressScraper) Refresh(ctx context.Context, item core.Item) (ScrapedItem, error) {
	page, err := fetchPage(ctx, s.client, item.Link)
	if err != nil {
		return ScrapedItem{}, err
	}

	priceText := extractFirst(aliPrice, page)
	if priceText == "" {
		return ScrapedItem{}, fmt.Errorf("aliexpress page for item %d: price not found", item.ID)
	}
	price, err := ParsePriceText(priceText)
	if err != nil {
		return ScrapedItem{}, fmt.Errorf("aliexpress page for item %d: %w", item.ID, err)
	}

	name := htmlUnescapeBasic(extractFirst(aliTitle, page))
	if name == "" {
		name = item.Name
	}

	return ScrapedItem{
		Name:           name,
		Image:          extractFirst(aliImage, page),
		Link:           item.Link,
		Price:          price,
		SourcePlatform: core.AliExpress,
	}, nil
}
