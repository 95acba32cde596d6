package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/core"
	"github.com/shopgenie/shopgenie/internal/metrics"
)

// CollyFetcher fetches pages through a gocolly collector. It makes a single
// attempt per call; pacing and retries are left to colly's own defaults.
type CollyFetcher struct {
	UserAgent string
	Timeout   time.Duration
	Logger    *logging.Logger
}

// Name identifies the fetcher in metrics and logs.
func (f *CollyFetcher) Name() string {
	return "colly"
}

// Fetch visits target and returns the raw response body.
func (f *CollyFetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	userAgent := f.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		status   int
		visitErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for key, value := range browserHeaders {
			r.Headers.Set(key, value)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		visitErr = err
	})

	if err := collector.Visit(target); err != nil && visitErr == nil {
		visitErr = err
	}
	collector.Wait()

	if visitErr == nil && (status < 200 || status > 299) {
		visitErr = fmt.Errorf("unexpected status %d", status)
	}

	metrics.RecordFetchAttempt(f.Name(), visitErr == nil)
	if visitErr != nil {
		if f.Logger != nil {
			f.Logger.Warn("Colly fetch failed",
				zap.String("url", target),
				zap.Int("status", status),
				zap.Error(visitErr))
		}
		if status >= 300 {
			return nil, &core.NetworkError{URL: target, StatusCode: status}
		}
		return nil, asNetworkError(target, visitErr)
	}

	return body, nil
}
