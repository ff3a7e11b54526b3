package flush

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestd/statsd-node/internal/aggregation"
	"github.com/ingestd/statsd-node/internal/dispatch"
	"github.com/ingestd/statsd-node/internal/receiver"
)

func apply(t *testing.T, reg *aggregation.Registry, line string) {
	t.Helper()
	u, err := aggregation.ParseLine(line)
	require.NoError(t, err)
	u.ApplyTo(reg)
}

func TestRunCounterEmitsDeriveAndGauge(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "requests:1|c")
	apply(t, reg, "requests:2|c")

	sink := &dispatch.RecordingSink{}
	cfg := receiver.Config{}.WithDefaults()
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "derive", records[0].Type)
	assert.Equal(t, int64(3), records[0].Derive)
	assert.Equal(t, "gauge", records[1].Type)
	assert.Equal(t, float64(3), records[1].Gauge)
	assert.Equal(t, records[0].Time, records[1].Time)
}

func TestRunCounterReemitsWhenIdleAndNotDeleted(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "requests:5|c")

	sink := &dispatch.RecordingSink{}
	cfg := receiver.Config{}.WithDefaults()
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))

	records := sink.Records()
	// Without delete_counters, an idle counter keeps reporting its last
	// accumulated value every interval rather than going silent.
	require.Len(t, records, 4)
	assert.Equal(t, int64(5), records[2].Derive)
	assert.Equal(t, float64(5), records[3].Gauge)
	assert.Equal(t, 1, reg.Len())
}

func TestRunGaugePersistsAcrossIntervalsWhenNotDeleted(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "queue.depth:42|g")

	sink := &dispatch.RecordingSink{}
	cfg := receiver.Config{}.WithDefaults()
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))
	assert.Equal(t, 1, reg.Len())
}

func TestRunDeleteOnIdleOnlyAfterAnIdleInterval(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "queue.depth:42|g")

	cfg := receiver.Config{DeleteGauges: true}.WithDefaults()
	sink := &dispatch.RecordingSink{}

	// First flush: the entry was updated this interval, so it is emitted
	// and survives even though delete_gauges is set.
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))
	require.Len(t, sink.Records(), 1)
	require.Equal(t, 1, reg.Len())

	// Second flush: no update arrived in between, so the idle entry is
	// now skipped and removed rather than re-emitted.
	sink.Reset()
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))
	assert.Empty(t, sink.Records())
	assert.Equal(t, 0, reg.Len())
}

func TestRunSetEmitsCardinality(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "uniques:alice|s")
	apply(t, reg, "uniques:bob|s")
	apply(t, reg, "uniques:alice|s")

	sink := &dispatch.RecordingSink{}
	cfg := receiver.Config{}.WithDefaults()
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "objects", records[0].Type)
	assert.Equal(t, float64(2), records[0].Gauge)
}

func TestRunTimerFixedOrderAndNaming(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "req.latency:10|ms")
	apply(t, reg, "req.latency:20|ms")
	apply(t, reg, "req.latency:30|ms")

	cfg := receiver.Config{
		TimerLower:       true,
		TimerUpper:       true,
		TimerSum:         true,
		TimerCount:       true,
		TimerPercentiles: []float64{95},
	}.WithDefaults()

	sink := &dispatch.RecordingSink{}
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))

	records := sink.Records()
	require.Len(t, records, 6)
	assert.Equal(t, "req.latency-average", records[0].PluginInstance)
	assert.Equal(t, "req.latency-lower", records[1].PluginInstance)
	assert.Equal(t, "req.latency-upper", records[2].PluginInstance)
	assert.Equal(t, "req.latency-sum", records[3].PluginInstance)
	assert.Equal(t, "req.latency-percentile-95", records[4].PluginInstance)
	assert.Equal(t, "req.latency-count", records[5].PluginInstance)
	assert.Equal(t, float64(3), records[5].Gauge)

	// The whole timer family dispatches as "latency" except the
	// trailing count series, which is a plain "gauge".
	for _, r := range records[:5] {
		assert.Equal(t, "latency", r.Type, r.PluginInstance)
	}
	assert.Equal(t, "gauge", records[5].Type)
}

func TestRunTimerNonIntegerPercentileSuffix(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "req.latency:10|ms")

	cfg := receiver.Config{TimerPercentiles: []float64{99.5}}.WithDefaults()
	sink := &dispatch.RecordingSink{}
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "req.latency-percentile-100", records[1].PluginInstance)
}

func TestRunIdleTimerReportsNaNAndZeroCount(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "req.latency:10|ms")

	cfg := receiver.Config{
		TimerLower:       true,
		TimerUpper:       true,
		TimerSum:         true,
		TimerCount:       true,
		TimerPercentiles: []float64{95},
	}.WithDefaults()

	sink := &dispatch.RecordingSink{}
	// First flush consumes the one sample and resets the histogram.
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))
	sink.Reset()

	// Second flush: no sample arrived, but the entry is not configured
	// to delete on idle, so it still reports — NaN for every
	// latency-valued series, 0 for -count.
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))
	records := sink.Records()
	require.Len(t, records, 6)
	for _, r := range records[:5] {
		assert.True(t, math.IsNaN(r.Gauge), "%s: got %v", r.PluginInstance, r.Gauge)
	}
	assert.Equal(t, float64(0), records[5].Gauge)
}

func TestRunPrefixesAndPostfix(t *testing.T) {
	reg := aggregation.NewRegistry()
	apply(t, reg, "depth:1|g")

	cfg := receiver.Config{
		GlobalPrefix:  "app.",
		GaugePrefix:   "g.",
		GlobalPostfix: ".v1",
	}.WithDefaults()

	sink := &dispatch.RecordingSink{}
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "app.g.depth.v1", records[0].PluginInstance)
}

func TestRunEmptyRegistryEmitsNothing(t *testing.T) {
	reg := aggregation.NewRegistry()
	sink := &dispatch.RecordingSink{}
	cfg := receiver.Config{}.WithDefaults()
	require.NoError(t, Run(time.Now(), reg, cfg, "host1", sink))
	assert.Empty(t, sink.Records())
}
