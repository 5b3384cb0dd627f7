package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// maxPageBytes caps how much of a product page is read. Shop pages are big
// but everything we extract sits well within the first megabytes.
const maxPageBytes = 4 << 20

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func fetchPage(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(body), nil
}

// extractFirst returns the first capture group of the pattern, trimmed, or ""
// when the page does not match.
func extractFirst(re *regexp.Regexp, page string) string {
	m := re.FindStringSubmatch(page)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var priceCleaner = regexp.MustCompile(`[^\d.,]`)

// ParsePriceText turns shop price text ("R$ 1.234,56", "$1,234.56", "59.90")
// into a decimal. Both Brazilian and US digit grouping are handled: the last
// separator in the string is taken as the decimal mark.
func ParsePriceText(text string) (decimal.Decimal, error) {
	s := priceCleaner.ReplaceAllString(text, "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("no digits in price text %q", text)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		// comma is the decimal mark, dots are grouping
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		// dot (or nothing) is the decimal mark, commas are grouping
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price text %q: %w", text, err)
	}
	return d, nil
}

// htmlUnescapeBasic resolves the handful of entities that show up in product
// titles without pulling in a full HTML parser.
func htmlUnescapeBasic(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return r.Replace(s)
}
