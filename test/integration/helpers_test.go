package integration

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopgenie/shopgenie/internal/core/engine"
	"github.com/shopgenie/shopgenie/internal/core/extractor"
	"github.com/shopgenie/shopgenie/internal/observability"
	"github.com/shopgenie/shopgenie/internal/output"
	"github.com/shopgenie/shopgenie/internal/server"
	"github.com/shopgenie/shopgenie/internal/server/handlers"
)

const marketPage = `<!DOCTYPE html><html><body>
<div class="list-item"><h3 title="Noise Cancelling Headphones">Noise Cancelling Headphones</h3><div class="price-current">US $59.99</div><span class="rate-star" data-rating="4.8"></span><a href="//www.market.test/item/100.html"></a></div>
<div class="list-item"><h3>Headphones &amp; &lt;Mic&gt;</h3><div class="price-current">US $19.50</div><a href="/item/101.html"></a></div>
<div class="list-item"><h3>Broken block without price</h3></div>
<div class="list-item"><h3>Wired Earbuds</h3><div class="price-current">US $4.10</div><span class="rate-star">4.1</span><a href="/item/102.html"></a></div>
<div class="list-item"><h3>Studio Monitor Headphones</h3><div class="price-current">US $89.00</div><a href="/item/103.html"></a></div>
<div class="list-item"><h3>Kids Headphones</h3><div class="price-current">US $12.00</div><a href="/item/104.html"></a></div>
</body></html>`

// cleanupMetrics tears down global telemetry state so each test starts clean.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// isPermissionError normalizes OS-specific permission errors so tests can
// skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	cleanupMetrics(t)
}

// serveOrSkip binds handler to IPv4 loopback and skips when the sandbox
// refuses to open sockets.
func serveOrSkip(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

// stack is a fully wired search pipeline pointed at a fake marketplace.
type stack struct {
	market  *httptest.Server
	api     *httptest.Server
	limiter *engine.RateLimiter
}

func newStack(t *testing.T, maxRequests int, marketHandler http.HandlerFunc) *stack {
	t.Helper()
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")

	if marketHandler == nil {
		marketHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(marketPage))
		}
	}
	market := serveOrSkip(t, marketHandler)

	ext := &extractor.Extractor{
		Fetcher: &extractor.HTTPFetcher{
			Timeout:     2 * time.Second,
			MaxAttempts: 1,
		},
		BaseURL:   market.URL,
		SearchURL: market.URL + "/wholesale",
	}
	limiter := engine.NewRateLimiter(maxRequests, time.Minute)
	pipeline := &engine.Pipeline{
		Limiter:  limiter,
		Searcher: ext,
		Renderer: &output.HTMLFormatter{},
		Split:    output.Split,
	}

	srv := server.New("127.0.0.1", 0,
		server.WithSearch(&handlers.SearchHandler{Pipeline: pipeline, Budget: limiter}),
		server.WithHealth(handlers.NewHealthManager("test")))

	return &stack{
		market:  market,
		api:     serveOrSkip(t, srv.Handler()),
		limiter: limiter,
	}
}
