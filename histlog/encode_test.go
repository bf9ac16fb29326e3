package histlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/hdrgram"
)

func buildHistogram(t *testing.T) *hdrgram.Histogram {
	t.Helper()

	h, err := hdrgram.New(1, 3600*1000*1000, 3)
	require.NoError(t, err)

	for _, v := range []int64{1, 500, 500, 123456, 1000000000} {
		require.True(t, h.RecordValue(v))
	}

	return h
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	algorithms := []string{
		CompressionNone,
		CompressionZlib,
		CompressionSnappy,
		CompressionZstd,
	}

	for _, algo := range algorithms {
		t.Run(algo, func(t *testing.T) {
			h := buildHistogram(t)

			encoded, err := Encode(h, algo)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(encoded, "hdrgram:v1:"+algo+":"))

			decoded, err := Decode(encoded)
			require.NoError(t, err)

			assert.Equal(t, h.LowestTrackableValue(), decoded.LowestTrackableValue())
			assert.Equal(t, h.HighestTrackableValue(), decoded.HighestTrackableValue())
			assert.Equal(t, h.SignificantFigures(), decoded.SignificantFigures())
			assert.Equal(t, h.TotalCount(), decoded.TotalCount())

			for i := 0; i < h.CountsLen(); i++ {
				require.Equal(t, h.CountAtIndex(int32(i)), decoded.CountAtIndex(int32(i)),
					"cell %d", i)
			}

			// The rebuilt bookkeeping is cell-resolution accurate.
			assert.Equal(t, h.ValueAtPercentile(50), decoded.ValueAtPercentile(50))
			assert.Equal(t, h.ValueAtPercentile(99.9), decoded.ValueAtPercentile(99.9))
			assert.True(t, decoded.ValuesAreEquivalent(decoded.Max(), h.Max()))
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing fields", "hdrgram:v1:zlib"},
		{"wrong prefix", "histo:v1:zlib:AAAA"},
		{"wrong version", "hdrgram:v9:zlib:AAAA"},
		{"bad base64", "hdrgram:v1:none:!!!"},
		{"truncated payload", "hdrgram:v1:none:AA=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestEncode_EmptyHistogram(t *testing.T) {
	h, err := hdrgram.New(1, 1000, 2)
	require.NoError(t, err)

	encoded, err := Encode(h, CompressionZlib)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, int64(0), decoded.TotalCount())
	assert.Equal(t, int64(0), decoded.Min())
	assert.Equal(t, int64(0), decoded.Max())
}
