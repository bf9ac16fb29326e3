package hdrgram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	src := mustNew(t, 1, 100000, 3)
	dst := mustNew(t, 1, 100000, 3)

	require.True(t, src.RecordValues(100, 5))
	require.True(t, src.RecordValue(50000))

	dropped := dst.Add(src)

	assert.Equal(t, int64(0), dropped)
	assert.Equal(t, int64(6), dst.TotalCount())
	assert.Equal(t, int64(5), dst.CountAtValue(100))
	assert.Equal(t, int64(1), dst.CountAtValue(50000))
}

func TestAdd_RoundTrip(t *testing.T) {
	src := mustNew(t, 1, 3600*1000*1000, 3)

	for _, v := range []int64{1, 999, 123456, 2000000000} {
		require.True(t, src.RecordValues(v, 3))
	}

	mid := mustNew(t, 1, 3600*1000*1000, 3)
	back := mustNew(t, 1, 3600*1000*1000, 3)

	assert.Equal(t, int64(0), mid.Add(src))
	assert.Equal(t, int64(0), back.Add(mid))

	for i := 0; i < src.CountsLen(); i++ {
		assert.Equal(t, src.CountAtIndex(int32(i)), back.CountAtIndex(int32(i)),
			"cell %d", i)
	}

	assert.Equal(t, src.TotalCount(), back.TotalCount())
}

func TestAdd_DropsOutOfRange(t *testing.T) {
	src := mustNew(t, 1, 3600*1000*1000, 3)
	dst := mustNew(t, 1, 1000, 3)

	require.True(t, src.RecordValue(500))
	require.True(t, src.RecordValues(2000000, 4))

	dropped := dst.Add(src)

	assert.Equal(t, int64(4), dropped)
	assert.Equal(t, int64(1), dst.TotalCount())
	assert.Equal(t, int64(1), dst.CountAtValue(500))
}

func TestAddWhileCorrectingForCoordinatedOmission(t *testing.T) {
	src := mustNew(t, 1, 1000, 3)
	dst := mustNew(t, 1, 1000, 3)

	require.True(t, src.RecordValue(100))

	dropped := dst.AddWhileCorrectingForCoordinatedOmission(src, 10)

	assert.Equal(t, int64(0), dropped)
	assert.Equal(t, int64(10), dst.TotalCount())

	for v := int64(10); v <= 100; v += 10 {
		assert.Equal(t, int64(1), dst.CountAtValue(v), "value %d", v)
	}
}
