package oteladapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func Test_MetricsCollector_CreatesInstrumentsOnDemand(t *testing.T) {
	collector := NewMetricsCollector(otel.Meter("test"))
	require.NotNil(t, collector)

	labels := map[string]string{"operation": "place_order", "status": "ok"}

	collector.RecordDuration("workload_operation_duration", 25*time.Millisecond, labels)
	collector.IncrementCounter("workload_operations_total", labels)
	collector.RecordValue("workload_in_flight", 3, labels)

	assert.Len(t, collector.histograms, 1)
	assert.Len(t, collector.counters, 1)
	assert.Len(t, collector.gauges, 1)
}

func Test_MetricsCollector_ReusesInstrumentsAcrossCalls(t *testing.T) {
	collector := NewMetricsCollector(otel.Meter("test"))

	for i := 0; i < 10; i++ {
		collector.IncrementCounter("workload_operations_total", map[string]string{"status": "ok"})
		collector.IncrementCounter("workload_operations_total", map[string]string{"status": "failed"})
	}

	assert.Len(t, collector.counters, 1)
}

func Test_MetricsCollector_HandlesNilLabels(t *testing.T) {
	collector := NewMetricsCollector(otel.Meter("test"))

	assert.NotPanics(t, func() {
		collector.RecordDuration("workload_operation_duration", time.Second, nil)
		collector.IncrementCounter("workload_operations_total", nil)
		collector.RecordValue("workload_in_flight", 0, nil)
	})
}
