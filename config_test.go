package hdrgram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBucketConfig(t *testing.T) {
	cfg, err := CalculateBucketConfig(1, 3600*1000*1000, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.LowestTrackableValue)
	assert.Equal(t, int64(3600*1000*1000), cfg.HighestTrackableValue)
	assert.Equal(t, int32(3), cfg.SignificantFigures)
	assert.Equal(t, int32(0), cfg.unitMagnitude)
	assert.Equal(t, int32(2048), cfg.subBucketCount)
	assert.Equal(t, int32(1024), cfg.subBucketHalfCount)
	assert.Equal(t, int32(10), cfg.subBucketHalfCountMagnitude)
	assert.Equal(t, int64(2047), cfg.subBucketMask)
	assert.Equal(t, int32(22), cfg.bucketCount)
	assert.Equal(t, 23*1024, cfg.CountsLen())
}

func TestCalculateBucketConfig_UnitMagnitude(t *testing.T) {
	cfg, err := CalculateBucketConfig(1000, 100000000, 3)
	require.NoError(t, err)

	// floor(log2(1000)) == 9.
	assert.Equal(t, int32(9), cfg.unitMagnitude)
	assert.Equal(t, int64(2047)<<9, cfg.subBucketMask)
}

func TestCalculateBucketConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		lowest  int64
		highest int64
		sigfigs int
		wantErr error
	}{
		{"lowest zero", 0, 1000, 3, ErrLowestTrackableValue},
		{"lowest negative", -1, 1000, 3, ErrLowestTrackableValue},
		{"sigfigs too low", 1, 1000, 0, ErrSignificantFigures},
		{"sigfigs too high", 1, 1000, 6, ErrSignificantFigures},
		{"highest below twice lowest", 100, 150, 3, ErrHighestTrackableValue},
		{"magnitude overflow", 1 << 60, 1 << 62, 5, ErrIndexMagnitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateBucketConfig(tt.lowest, tt.highest, tt.sigfigs)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCalculateBucketConfig_SubBucketPrecision(t *testing.T) {
	// The sub-bucket count must always reach 2*10^sigfigs.
	for sigfigs := 1; sigfigs <= 5; sigfigs++ {
		cfg, err := CalculateBucketConfig(1, 1000000, sigfigs)
		require.NoError(t, err)

		want := int64(2)
		for i := 0; i < sigfigs; i++ {
			want *= 10
		}

		assert.GreaterOrEqual(t, int64(cfg.subBucketCount), want,
			"sigfigs=%d", sigfigs)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := CalculateBucketConfig(1, 100000, 3)
	require.NoError(t, err)

	h, err := NewFromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.CountsLen(), h.CountsLen())
	assert.True(t, h.RecordValue(42))
	assert.Equal(t, int64(1), h.TotalCount())
}
