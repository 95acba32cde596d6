package metrics

import (
	"time"

	"github.com/shopgenie/shopgenie/internal/observability"
)

// Application-level metric names
const (
	SearchesTotal          = "searches_total"
	SearchDuration         = "search_duration_ms"
	RateLimitDecisions     = "rate_limit_decisions_total"
	RateLimitTrackedKeys   = "rate_limit_tracked_keys"
	ExtractionBlocksTotal  = "extraction_blocks_total"
	ExtractionRecordsTotal = "extraction_records_total"
	FetchAttemptsTotal     = "fetch_attempts_total"
	FallbackResultsTotal   = "fallback_results_total"
	MessageChunksTotal     = "message_chunks_total"

	ServerStartTime = "app_server_start_time_seconds"
)

// Search outcomes
const (
	OutcomeResults     = "results"
	OutcomeEmpty       = "empty"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
	OutcomeNetwork     = "network_error"
	OutcomeInternal    = "internal_error"
)

// RecordSearch records a completed query and its latency
func RecordSearch(outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{"outcome": outcome}
	_ = observability.TelemetrySystem.Counter(SearchesTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(SearchDuration, duration, labels)
}

// RecordAdmission records a rate limiter decision
func RecordAdmission(allowed bool) {
	decision := "admitted"
	if !allowed {
		decision = "rejected"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisions,
			1,
			map[string]string{"decision": decision},
		)
	}
}

// SetTrackedKeys records how many users currently hold rate limit state
func SetTrackedKeys(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(RateLimitTrackedKeys, float64(count), nil)
	}
}

// RecordExtraction records the winning block strategy and the number of valid records
func RecordExtraction(strategy string, blocks int, records int) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		ExtractionBlocksTotal,
		float64(blocks),
		map[string]string{"strategy": strategy},
	)
	_ = observability.TelemetrySystem.Counter(ExtractionRecordsTotal, float64(records), nil)
}

// RecordFetchAttempt records one outbound marketplace request
func RecordFetchAttempt(fetcher string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			FetchAttemptsTotal,
			1,
			map[string]string{
				"fetcher": fetcher,
				"status":  status,
			},
		)
	}
}

// RecordFallback records that placeholder results were served
func RecordFallback(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			FallbackResultsTotal,
			1,
			map[string]string{"reason": reason},
		)
	}
}

// RecordChunks records how many outbound chunks a rendered message produced
func RecordChunks(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(MessageChunksTotal, float64(count), nil)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
