package hdrgram

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_Basic(t *testing.T) {
	h := mustNew(t, 1, 3600*1000*1000, 3)

	for _, v := range []int64{1, 100, 10000, 1000000000} {
		require.True(t, h.RecordValue(v))
	}

	assert.Equal(t, int64(1), h.Min())
	assert.Equal(t, int64(1000000000), h.Max())
	assert.Equal(t, int64(4), h.TotalCount())

	assert.True(t, h.ValuesAreEquivalent(h.ValueAtPercentile(50), 100))
	assert.True(t, h.ValuesAreEquivalent(h.ValueAtPercentile(99.999), 1000000000))
}

func TestQueries_Empty(t *testing.T) {
	h := mustNew(t, 1, 100000, 3)

	assert.Equal(t, int64(0), h.Min())
	assert.Equal(t, int64(0), h.Max())
	assert.Equal(t, float64(0), h.Mean())
	assert.Equal(t, float64(0), h.StdDev())
	assert.Equal(t, int64(0), h.ValueAtPercentile(50))
	assert.Equal(t, int64(0), h.CountAtValue(42))
}

func TestValueAtPercentile_TailHeavy(t *testing.T) {
	h := mustNew(t, 1, 3600*1000*1000, 3)

	require.True(t, h.RecordValues(1000, 10000))
	require.True(t, h.RecordValue(100000))

	assert.True(t, h.ValuesAreEquivalent(h.ValueAtPercentile(99.99), 1000))
	assert.True(t, h.ValuesAreEquivalent(h.ValueAtPercentile(100), 100000))
}

func TestValueAtPercentile_Clamping(t *testing.T) {
	h := mustNew(t, 1, 100000, 3)

	require.True(t, h.RecordValue(10))
	require.True(t, h.RecordValue(20))

	// Out-of-range percentiles clamp rather than fail.
	assert.True(t, h.ValuesAreEquivalent(h.ValueAtPercentile(-5), 10))
	assert.True(t, h.ValuesAreEquivalent(h.ValueAtPercentile(250), 20))
}

func TestMeanAndStdDev(t *testing.T) {
	h := mustNew(t, 1, 100000, 3)

	for v := int64(1); v <= 10; v++ {
		require.True(t, h.RecordValue(v))
	}

	// Unit-width cells below 2*10^3 make these exact.
	assert.InDelta(t, 5.5, h.Mean(), 1e-9)
	assert.InDelta(t, math.Sqrt(8.25), h.StdDev(), 1e-9)
}

func TestQueryPrecisionBound(t *testing.T) {
	for sigfigs := 1; sigfigs <= 5; sigfigs++ {
		h := mustNew(t, 1, 3600*1000*1000, sigfigs)

		for _, v := range []int64{1, 999, 12345, 7777777, 3000000000} {
			require.True(t, h.RecordValue(v))

			got := h.ValueAtPercentile(100)
			relErr := math.Abs(float64(got-v)) / float64(v)

			assert.LessOrEqual(t, relErr, math.Pow10(-sigfigs),
				"sigfigs=%d value=%d got=%d", sigfigs, v, got)

			h.Reset()
		}
	}
}

func TestMaxAtLeastMin(t *testing.T) {
	h := mustNew(t, 1, 100000, 2)

	for _, v := range []int64{77, 77, 12, 90000} {
		require.True(t, h.RecordValue(v))
		assert.GreaterOrEqual(t, h.Max(), h.Min())
	}
}

func TestCountAtIndex_Bounds(t *testing.T) {
	h := mustNew(t, 1, 1000, 3)

	assert.Equal(t, int64(0), h.CountAtIndex(-1))
	assert.Equal(t, int64(0), h.CountAtIndex(int32(h.CountsLen())))
}

func TestMemorySize(t *testing.T) {
	h := mustNew(t, 1, 100000, 3)

	assert.Greater(t, h.MemorySize(), h.CountsLen()*8)
}
