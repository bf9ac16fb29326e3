package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/hdrgram"
	"github.com/ethpandaops/hdrgram/histlog"
)

func buildHistogram(t *testing.T) *hdrgram.Histogram {
	t.Helper()

	h, err := hdrgram.New(1, 3600*1000*1000, 3)
	require.NoError(t, err)

	for v := int64(1); v <= 1000; v++ {
		require.True(t, h.RecordValue(v*1000))
	}

	return h
}

func TestNewSnapshot(t *testing.T) {
	h := buildHistogram(t)

	snap, err := NewSnapshot("request_latency", h)
	require.NoError(t, err)

	assert.Equal(t, "request_latency", snap.Name)
	assert.False(t, snap.UpdatedTime.IsZero())
	assert.Equal(t, int64(1000), snap.Count)
	assert.Equal(t, int64(1000), snap.Min)
	assert.Equal(t, int64(1000000), snap.Max)
	assert.InDelta(t, 500500, snap.Mean, 500500*0.001)

	assert.True(t, h.ValuesAreEquivalent(snap.P50, 500000))
	assert.True(t, h.ValuesAreEquivalent(snap.P99, 990000))
	assert.LessOrEqual(t, snap.P50, snap.P90)
	assert.LessOrEqual(t, snap.P90, snap.P99)
	assert.LessOrEqual(t, snap.P99, snap.P999)
	assert.LessOrEqual(t, snap.P999, snap.P9999)
}

func TestNewSnapshot_PayloadDecodes(t *testing.T) {
	h := buildHistogram(t)

	snap, err := NewSnapshot("request_latency", h)
	require.NoError(t, err)

	decoded, err := histlog.Decode(snap.Histogram)
	require.NoError(t, err)

	assert.Equal(t, h.TotalCount(), decoded.TotalCount())
	assert.Equal(t, h.ValueAtPercentile(99.9), decoded.ValueAtPercentile(99.9))
}
