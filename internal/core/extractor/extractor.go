package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/core"
	"github.com/shopgenie/shopgenie/internal/metrics"
)

// Extractor defaults.
const (
	DefaultBaseURL    = "https://www.aliexpress.com"
	DefaultSearchURL  = "https://www.aliexpress.com/wholesale"
	DefaultQueryParam = "SearchText"
	DefaultSortParam  = "SortType"
	DefaultSortValue  = "total_tranpro_desc"
	DefaultScanLimit  = 10
	DefaultMaxResults = 4

	maxTitleLength = 100
	maxRating      = 5.0
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	ratingPattern     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	currencyPattern   = regexp.MustCompile(`[$€£¥₹]|\bUS\s`)
)

// Extractor fetches a marketplace search page and turns it into products.
type Extractor struct {
	Fetcher    Fetcher
	Layout     Layout
	BaseURL    string
	SearchURL  string
	QueryParam string
	SortParam  string
	SortValue  string
	ScanLimit  int
	MaxResults int
	Source     string
	Fallback   FallbackProvider
	Logger     *logging.Logger
}

// Search fetches the results page for query. An empty result set with a nil
// error means the page was fetched but nothing could be extracted.
func (e *Extractor) Search(ctx context.Context, query string) (core.ResultSet, error) {
	if e == nil || e.Fetcher == nil {
		return nil, errors.New("extractor is not configured")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.ErrValidation
	}

	target, err := e.SearchURLFor(query)
	if err != nil {
		return nil, err
	}

	body, err := e.Fetcher.Fetch(ctx, target)
	if err != nil {
		if results := e.fallback(query, "network_error", err); len(results) > 0 {
			return results, nil
		}
		return nil, asNetworkError(target, err)
	}

	results := e.Parse(body)
	if len(results) == 0 {
		if fallback := e.fallback(query, "empty_result", nil); len(fallback) > 0 {
			return fallback, nil
		}
	}

	if e.Logger != nil {
		e.Logger.Debug("Extracted products",
			zap.String("query", query),
			zap.Int("results", len(results)),
			zap.String("fetcher", e.Fetcher.Name()))
	}
	return results, nil
}

// SearchURLFor builds the search target for query with a fixed sort order.
func (e *Extractor) SearchURLFor(query string) (string, error) {
	base := e.SearchURL
	if base == "" {
		base = DefaultSearchURL
	}

	target, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search url %q: %w", base, err)
	}

	values := target.Query()
	values.Set(valueOr(e.QueryParam, DefaultQueryParam), query)
	if sortParam := valueOr(e.SortParam, DefaultSortParam); sortParam != "" {
		values.Set(sortParam, valueOr(e.SortValue, DefaultSortValue))
	}
	target.RawQuery = values.Encode()
	return target.String(), nil
}

// Parse extracts valid products from an HTML document, capped at MaxResults.
// Malformed markup yields fewer records, never an error.
func (e *Extractor) Parse(body []byte) core.ResultSet {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		if e.Logger != nil {
			e.Logger.Warn("Failed to parse marketplace document", zap.Error(err))
		}
		return core.ResultSet{}
	}

	layout := e.layout()
	blocks, strategy := findBlocks(doc.Selection, layout.Blocks)
	if blocks == nil {
		metrics.RecordExtraction("none", 0, 0)
		return core.ResultSet{}
	}

	limit := e.scanLimit()
	results := make(core.ResultSet, 0, e.maxResults())
	scanned := 0
	blocks.EachWithBreak(func(i int, block *goquery.Selection) bool {
		if scanned >= limit || len(results) >= e.maxResults() {
			return false
		}
		scanned++

		product, ok := e.parseBlock(block, layout)
		if ok {
			results = append(results, product)
		}
		return true
	})

	metrics.RecordExtraction(strategy, scanned, len(results))
	if e.Logger != nil {
		e.Logger.Debug("Product blocks matched",
			zap.String("strategy", strategy),
			zap.Int("blocks", blocks.Length()),
			zap.Int("scanned", scanned),
			zap.Int("valid", len(results)))
	}
	return results.Cap(e.maxResults())
}

func (e *Extractor) parseBlock(block *goquery.Selection, layout Layout) (product core.Product, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordPanic("extractor")
			if e.Logger != nil {
				e.Logger.Debug("Skipped malformed product block", zap.Any("panic", rec))
			}
			product, ok = core.Product{}, false
		}
	}()

	product = core.Product{
		Title:      firstMatch(block, layout.Title, cleanTitle),
		Price:      firstMatch(block, layout.Price, cleanPrice),
		Rating:     firstMatch(block, layout.Rating, cleanRating),
		Orders:     firstMatch(block, layout.Orders, cleanOrders),
		ImageURL:   firstMatch(block, layout.Image, e.absoluteURL),
		ProductURL: firstMatch(block, layout.Link, e.absoluteURL),
		Source:     valueOr(e.Source, core.DefaultSource),
	}
	if product.Rating == "" {
		product.Rating = core.NoRating
	}
	return product, product.Valid()
}

func (e *Extractor) fallback(query, reason string, cause error) core.ResultSet {
	if e.Fallback == nil {
		return nil
	}

	results := e.Fallback.Results(query).Cap(e.maxResults())
	if len(results) == 0 {
		return nil
	}

	metrics.RecordFallback(reason)
	if e.Logger != nil {
		fields := []zap.Field{
			zap.String("query", query),
			zap.String("reason", reason),
			zap.Int("results", len(results)),
		}
		if cause != nil {
			fields = append(fields, zap.Error(cause))
		}
		e.Logger.Warn("Serving fallback results", fields...)
	}
	return results
}

// absoluteURL resolves raw against the marketplace base origin. Protocol
// relative references become https. Non-http schemes are dropped.
func (e *Extractor) absoluteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	base, err := url.Parse(valueOr(e.BaseURL, DefaultBaseURL))
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func (e *Extractor) layout() Layout {
	if len(e.Layout.Blocks) == 0 {
		return DefaultLayout()
	}
	return e.Layout
}

func (e *Extractor) scanLimit() int {
	if e.ScanLimit <= 0 {
		return DefaultScanLimit
	}
	return e.ScanLimit
}

func (e *Extractor) maxResults() int {
	if e.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return e.MaxResults
}

// cleanTitle collapses whitespace and truncates to maxTitleLength runes.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(whitespacePattern.ReplaceAllString(raw, " "))
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxTitleLength]))
}

// cleanPrice keeps only text that carries a currency marker.
func cleanPrice(raw string) string {
	price := strings.TrimSpace(whitespacePattern.ReplaceAllString(raw, " "))
	if !currencyPattern.MatchString(price) {
		return ""
	}
	return price
}

// cleanRating parses the first number, caps it at maxRating and drops zero.
func cleanRating(raw string) string {
	match := ratingPattern.FindString(raw)
	if match == "" {
		return ""
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil || value <= 0 || math.IsNaN(value) {
		return ""
	}
	value = math.Min(value, maxRating)
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func cleanOrders(raw string) string {
	orders := strings.TrimSpace(whitespacePattern.ReplaceAllString(raw, " "))
	if !strings.ContainsAny(orders, "0123456789") {
		return ""
	}
	return orders
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
