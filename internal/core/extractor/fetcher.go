package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shopgenie/shopgenie/internal/core"
	"github.com/shopgenie/shopgenie/internal/metrics"
)

// Fetcher defaults.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = time.Second
	DefaultMaxBodyBytes = 8 << 20
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Fetcher retrieves a marketplace document. Failures are *core.NetworkError.
type Fetcher interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
	Name() string
}

// HTTPFetcher fetches pages with net/http, pacing and retrying requests.
type HTTPFetcher struct {
	Client       *http.Client
	UserAgent    string
	Timeout      time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	MaxBodyBytes int64
	Pacer        *rate.Limiter
	Logger       *logging.Logger
	Clock        func() time.Time

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a token bucket allowing perSecond requests with burst.
// A non-positive perSecond disables pacing.
func NewPacer(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Name identifies the fetcher in metrics and logs.
func (f *HTTPFetcher) Name() string {
	return "http"
}

// Fetch GETs target, retrying transport failures, 429 and 5xx responses.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := f.maxAttempts()
	var lastErr *core.NetworkError

	for attempt := 1; attempt <= attempts; attempt++ {
		if f.Pacer != nil {
			if err := f.Pacer.Wait(ctx); err != nil {
				return nil, &core.NetworkError{URL: target, Err: err}
			}
		}

		body, wait, err := f.once(ctx, target)
		metrics.RecordFetchAttempt(f.Name(), err == nil)
		if err == nil {
			return body, nil
		}
		lastErr = err

		retryable := err.StatusCode == 0 || retryableStatus(err.StatusCode)
		if !retryable || attempt == attempts || ctx.Err() != nil {
			break
		}

		if wait <= 0 {
			wait = f.retryDelay() * time.Duration(attempt)
		}
		if f.Logger != nil {
			f.Logger.Warn("Marketplace fetch attempt failed",
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Int("status", err.StatusCode),
				zap.Duration("retry_in", wait),
				zap.Error(err))
		}
		if sleepErr := f.doSleep(ctx, wait); sleepErr != nil {
			return nil, &core.NetworkError{URL: target, Err: sleepErr}
		}
	}

	return nil, lastErr
}

func (f *HTTPFetcher) once(ctx context.Context, target string) ([]byte, time.Duration, *core.NetworkError) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, &core.NetworkError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent())
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, 0, &core.NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		wait := time.Duration(0)
		if resp.StatusCode == http.StatusTooManyRequests {
			wait = retryAfter(resp, f.now())
			if limit := f.timeout(); wait > limit {
				wait = limit
			}
		}
		return nil, wait, &core.NetworkError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes()))
	if err != nil {
		return nil, 0, &core.NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, 0, nil
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: f.timeout()}
}

func (f *HTTPFetcher) doSleep(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *HTTPFetcher) userAgent() string {
	if f.UserAgent == "" {
		return DefaultUserAgent
	}
	return f.UserAgent
}

func (f *HTTPFetcher) timeout() time.Duration {
	if f.Timeout <= 0 {
		return DefaultTimeout
	}
	return f.Timeout
}

func (f *HTTPFetcher) maxAttempts() int {
	if f.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return f.MaxAttempts
}

func (f *HTTPFetcher) retryDelay() time.Duration {
	if f.RetryDelay <= 0 {
		return DefaultRetryDelay
	}
	return f.RetryDelay
}

func (f *HTTPFetcher) maxBodyBytes() int64 {
	if f.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return f.MaxBodyBytes
}

func (f *HTTPFetcher) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now()
}

// asNetworkError wraps err as a *core.NetworkError unless it already is one.
func asNetworkError(target string, err error) error {
	if err == nil {
		return nil
	}
	var netErr *core.NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	return &core.NetworkError{URL: target, Err: err}
}
