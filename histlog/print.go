package histlog

import (
	"fmt"
	"io"
	"math"

	"github.com/ethpandaops/hdrgram"
)

// Format selects the percentile distribution output layout.
type Format int

const (
	// FormatClassic is the aligned-columns layout with a summary footer.
	FormatClassic Format = iota
	// FormatCSV is a comma-separated layout without a footer.
	FormatCSV
)

const (
	classicHeader = "       Value   Percentile   TotalCount 1/(1-Percentile)\n\n"
	classicRow    = "%12.3f %12f %12d %s\n"
	csvHeader     = "Value,Percentile,TotalCount,1/(1-Percentile)\n"
	csvRow        = "%.3f,%f,%d,%.2f\n"
)

// PercentilesPrint writes the histogram's percentile distribution to w,
// consuming the percentile iterator with the given tick density. Values are
// divided by valueScale on output.
func PercentilesPrint(
	w io.Writer,
	h *hdrgram.Histogram,
	ticksPerHalfDistance int32,
	valueScale float64,
	format Format,
) error {
	header := classicHeader
	if format == FormatCSV {
		header = csvHeader
	}

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	it := h.PercentileIterator(ticksPerHalfDistance)
	for it.Next() {
		value := float64(it.ValueIteratedTo()) / valueScale
		percentile := it.Percentile() / 100.0
		inverted := 1.0 / (1.0 - percentile)

		var err error

		if format == FormatCSV {
			_, err = fmt.Fprintf(w, csvRow, value, percentile, it.CumulativeCount(), inverted)
		} else {
			invertedStr := fmt.Sprintf("%12.2f", inverted)
			if math.IsInf(inverted, 1) {
				invertedStr = fmt.Sprintf("%12s", "inf")
			}

			_, err = fmt.Fprintf(w, classicRow, value, percentile, it.CumulativeCount(), invertedStr)
		}

		if err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	if format == FormatCSV {
		return nil
	}

	footer := fmt.Sprintf(
		"#[Mean    = %12.3f, StdDeviation   = %12.3f]\n"+
			"#[Max     = %12.3f, Total count    = %12d]\n"+
			"#[Buckets = %12d, SubBuckets     = %12d]\n",
		h.Mean()/valueScale,
		h.StdDev()/valueScale,
		float64(h.Max())/valueScale,
		h.TotalCount(),
		h.BucketCount(),
		h.SubBucketCount(),
	)

	if _, err := io.WriteString(w, footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}

	return nil
}
