package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopgenie/shopgenie/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: collector,
	})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() {
		observability.TelemetrySystem = original
	})

	return collector
}

func TestSearchMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	RecordSearch(OutcomeResults, 25*time.Millisecond)
	RecordAdmission(false)
	RecordExtraction("div.list-item", 3, 2)
	RecordChunks(2)

	assert.Greater(t, collector.CountMetricsByName(SearchesTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(SearchDuration), 0)
	assert.Greater(t, collector.CountMetricsByName(RateLimitDecisions), 0)
	assert.Greater(t, collector.CountMetricsByName(ExtractionBlocksTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(MessageChunksTotal), 0)
}

func TestMetricsWithTelemetryDisabled(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	defer func() {
		observability.TelemetrySystem = original
	}()

	RecordSearch(OutcomeEmpty, time.Millisecond)
	RecordFallback("empty")
	RecordPanic()
}
