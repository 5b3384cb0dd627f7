package scrape

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"wishtrack/internal/core"
)

var (
	meliTitle = regexp.MustCompile(`<meta[^>]*property="og:title"[^>]*content="([^"]+)"`)
	meliImage = regexp.MustCompile(`<meta[^>]*property="og:image"[^>]*content="([^"]+)"`)
	meliPrice = regexp.MustCompile(`<meta[^>]*itemprop="price"[^>]*content="([0-9.]+)"`)
)

// MercadoLivreScraper refreshes items registered from Mercado Livre pages.
type MercadoLivreScraper struct {
	client *http.Client
}

func NewMercadoLivreScraper(client *http.Client) *MercadoLivreScraper {
	return &MercadoLivreScraper{client: client}
}

func (s *MercadoLivreScraper) Refresh(ctx context.Context, item core.Item) (ScrapedItem, error) {
	page, err := fetchPage(ctx, s.client, item.Link)
	if err != nil {
		return ScrapedItem{}, err
	}

	priceText := extractFirst(meliPrice, page)
	if priceText == "" {
		return ScrapedItem{}, fmt.Errorf("mercadolivre page for item %d: price not found", item.ID)
	}
	price, err := ParsePriceText(priceText)
	if err != nil {
		return ScrapedItem{}, fmt.Errorf("mercadolivre page for item %d: %w", item.ID, err)
	}

	name := htmlUnescapeBasic(extractFirst(meliTitle, page))
	if name == "" {
		name = item.Name
	}

	return ScrapedItem{
		Name:           name,
		Image:          extractFirst(meliImage, page),
		Link:           item.Link,
		Price:          price,
		SourcePlatform: core.MercadoLivre,
	}, nil
}
