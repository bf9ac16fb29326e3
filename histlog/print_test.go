package histlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentilesPrint_Classic(t *testing.T) {
	h := buildHistogram(t)

	var buf bytes.Buffer

	require.NoError(t, PercentilesPrint(&buf, h, 5, 1.0, FormatClassic))

	out := buf.String()

	assert.Contains(t, out, "Value   Percentile   TotalCount 1/(1-Percentile)")
	assert.Contains(t, out, "#[Mean    =")
	assert.Contains(t, out, "#[Max     =")
	assert.Contains(t, out, "#[Buckets =")

	// The final row reports the 100th percentile with an infinite
	// 1/(1-p) column.
	assert.Contains(t, out, "inf")
}

func TestPercentilesPrint_CSV(t *testing.T) {
	h := buildHistogram(t)

	var buf bytes.Buffer

	require.NoError(t, PercentilesPrint(&buf, h, 1, 1.0, FormatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Equal(t, "Value,Percentile,TotalCount,1/(1-Percentile)", lines[0])
	assert.Greater(t, len(lines), 2)

	// No footer in CSV output.
	assert.NotContains(t, buf.String(), "#[Mean")

	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, ","), 4, "line %q", line)
	}
}

func TestPercentilesPrint_ValueScale(t *testing.T) {
	h := buildHistogram(t)

	var scaled, unscaled bytes.Buffer

	require.NoError(t, PercentilesPrint(&unscaled, h, 1, 1.0, FormatCSV))
	require.NoError(t, PercentilesPrint(&scaled, h, 1, 1000.0, FormatCSV))

	// Scaling by 1000 turns the first recorded value (1) into 0.001.
	assert.Contains(t, scaled.String(), "0.001,")
	assert.Contains(t, unscaled.String(), "1.000,")
}
