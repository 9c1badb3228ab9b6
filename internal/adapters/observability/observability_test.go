package observability

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozym/slscale/internal/ports"
)

func TestCounters(t *testing.T) {
	obs := New("slscale", 0, bytes.NewBuffer(nil))

	obs.IncCounter(MetricRecordsForwarded, 1)
	obs.IncCounter(MetricRecordsForwarded, 2)
	obs.IncCounter("unknown_metric_total", 1)

	families, err := obs.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "slscale_"+MetricRecordsForwarded {
			found = true
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)

	assert.Equal(t, 0.0, testutil.ToFloat64(obs.counters[MetricRecordsDropped]))
}

func TestVerbosityLevels(t *testing.T) {
	var quiet bytes.Buffer
	obs := New("slscale", 0, &quiet)
	obs.LogInfo("progress")
	obs.LogDebug("detail")
	assert.Zero(t, quiet.Len())

	var info bytes.Buffer
	obs = New("slscale", 1, &info)
	obs.LogInfo("progress", ports.Field{Key: "count", Value: 3})
	obs.LogDebug("detail")
	out := info.String()
	assert.Contains(t, out, "progress")
	assert.Contains(t, out, "count=3")
	assert.NotContains(t, out, "detail")

	var debug bytes.Buffer
	obs = New("slscale", 2, &debug)
	obs.LogDebug("detail")
	assert.Contains(t, debug.String(), "detail")
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	obs := New("slscale", 0, &buf)
	obs.LogError("it broke", assert.AnError)

	out := buf.String()
	assert.Contains(t, out, "it broke")
	assert.Contains(t, out, assert.AnError.Error())
	assert.Contains(t, out, "program=slscale")
}

func TestObserveLatency(t *testing.T) {
	obs := New("slscale", 0, bytes.NewBuffer(nil))
	obs.ObserveLatency(MetricForwardLatency, 0.25)
	obs.ObserveLatency("unknown_latency", 1.0)

	families, err := obs.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "slscale_"+MetricForwardLatency {
			found = true
			assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}
