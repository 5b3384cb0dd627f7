package scrape

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"wishtrack/internal/core"
)

var (
	amazonTitle = regexp.MustCompile(`(?s)<span[^>]*id="productTitle"[^>]*>(.*?)</span>`)
	amazonPrice = regexp.MustCompile(`<span[^>]*class="[^"]*a-offscreen[^"]*"[^>]*>([^<]+)</span>`)
	amazonImage = regexp.MustCompile(`<img[^>]*id="landingImage"[^>]*src="([^"]+)"`)
)

// AmazonScraper refreshes items registered from Amazon product pages.
type AmazonScraper struct {
	client *http.Client
}

func NewAmazonScraper(client *http.Client) *AmazonScraper {
	return &AmazonScraper{client: client}
}

func (s *AmazonScraper) Refresh(ctx context.Context, item core.Item) (ScrapedItem, error) {
	page, err := fetchPage(ctx, s.client, item.Link)
	if err != nil {
		return ScrapedItem{}, err
	}

	priceText := extractFirst(amazonPrice, page)
	if priceText == "" {
		return ScrapedItem{}, fmt.Errorf("amazon page for item %d: price not found", item.ID)
	}
	price, err := ParsePriceText(priceText)
	if err != nil {
		return ScrapedItem{}, fmt.Errorf("amazon page for item %d: %w", item.ID, err)
	}

	name := htmlUnescapeBasic(extractFirst(amazonTitle, page))
	if name == "" {
		name = item.Name
	}

	return ScrapedItem{
		Name:           name,
		Image:          extractFirst(amazonImage, page),
		Link:           item.Link,
		Price:          price,
		SourcePlatform: core.Amazon,
	}, nil
}
