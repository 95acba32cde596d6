package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/observability"
)

// HTTP metric names.
const (
	HTTPRequestsTotal    = "http_requests_total"
	HTTPRequestDuration  = "http_request_duration_ms"
	HTTPRequestSizeBytes = "http_request_size_bytes"
	HTTPResponseBytes    = "http_response_size_bytes"
	HTTPErrorsTotal      = "http_errors_total"
)

// Error classes for http_errors_total. A rate-limited search is a client
// error; an unreachable marketplace surfaces as a 502 server error.
const (
	ErrorTypeClient = "client_error"
	ErrorTypeServer = "server_error"
)

// unmatchedRoute labels requests no route matched, keeping scanner paths out
// of the label set.
const unmatchedRoute = "/unknown"

// RequestObservation is one served request as seen by the metrics layer.
type RequestObservation struct {
	Method       string
	Endpoint     string
	Status       int
	ErrorType    string
	Duration     time.Duration
	RequestSize  int64
	ResponseSize int64
	RequestID    string
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// RequestMetrics records count, latency, sizes and error class per chi route
// pattern. It is a no-op while telemetry is not initialized.
func RequestMetrics(next http.Handler) http.Handler {
	return observeRequests(next, emitObservation)
}

func observeRequests(next http.Handler, record func(RequestObservation)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		record(RequestObservation{
			Method:       r.Method,
			Endpoint:     routePattern(r),
			Status:       recorder.status,
			ErrorType:    errorType(recorder.status),
			Duration:     time.Since(start),
			RequestSize:  max(r.ContentLength, 0),
			ResponseSize: recorder.written,
			RequestID:    GetRequestID(r.Context()),
		})
	})
}

// routePattern reads the matched chi pattern after routing, e.g.
// /v1/rate-limit/{user}.
func routePattern(r *http.Request) string {
	if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}

func errorType(status int) string {
	switch {
	case status >= 500:
		return ErrorTypeServer
	case status >= 400:
		return ErrorTypeClient
	default:
		return ""
	}
}

func emitObservation(obs RequestObservation) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}

	status := strconv.Itoa(obs.Status)
	labels := map[string]string{"method": obs.Method, "endpoint": obs.Endpoint, "status": status}
	sizeLabels := map[string]string{"method": obs.Method, "endpoint": obs.Endpoint}

	_ = sys.Counter(HTTPRequestsTotal, 1, labels)
	_ = sys.Histogram(HTTPRequestDuration, obs.Duration, labels)
	_ = sys.Gauge(HTTPRequestSizeBytes, float64(obs.RequestSize), sizeLabels)
	_ = sys.Gauge(HTTPResponseBytes, float64(obs.ResponseSize), sizeLabels)

	if obs.ErrorType != "" {
		_ = sys.Counter(HTTPErrorsTotal, 1, map[string]string{
			"method":     obs.Method,
			"endpoint":   obs.Endpoint,
			"status":     status,
			"error_type": obs.ErrorType,
		})
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Debug("HTTP request completed",
			zap.String("method", obs.Method),
			zap.String("endpoint", obs.Endpoint),
			zap.Int("status", obs.Status),
			zap.Duration("duration", obs.Duration),
			zap.Int64("request_size", obs.RequestSize),
			zap.Int64("response_size", obs.ResponseSize),
			zap.String("request_id", obs.RequestID))
	}
}
