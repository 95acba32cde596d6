package metrics

import (
	"strconv"

	"github.com/shopgenie/shopgenie/internal/observability"
)

// Error metric names
const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// RecordError records an error response with its code and HTTP status
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"error_code":  errorCode,
				"http_status": strconv.Itoa(httpStatus),
			},
		)
	}
}

// RecordPanic records a recovered panic. The optional component label names
// the recovering layer (http, pipeline, extractor).
func RecordPanic(component ...string) {
	if observability.TelemetrySystem == nil {
		return
	}

	var labels map[string]string
	if len(component) > 0 && component[0] != "" {
		labels = map[string]string{"component": component[0]}
	}
	_ = observability.TelemetrySystem.Counter(PanicsTotalName, 1, labels)
}

// RecordErrorByEndpoint records an error by endpoint
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsByEndpointName,
			1,
			map[string]string{
				"endpoint":   endpoint,
				"error_code": errorCode,
			},
		)
	}
}
