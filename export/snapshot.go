// Package export ships histogram snapshots to downstream sinks: ClickHouse
// over the native protocol, arbitrary HTTP endpoints as compressed NDJSON,
// and Prometheus via a live collector.
package export

import (
	"fmt"
	"time"

	"github.com/ethpandaops/hdrgram"
	"github.com/ethpandaops/hdrgram/histlog"
)

// Quantiles reported in snapshots and by the Prometheus collector.
var snapshotQuantiles = []float64{50, 90, 99, 99.9, 99.99}

// Snapshot is the exporter-agnostic view of a histogram at a point in time.
type Snapshot struct {
	Name        string    `json:"name"`
	UpdatedTime time.Time `json:"updated_time"`

	Count  int64   `json:"count"`
	Min    int64   `json:"min"`
	Max    int64   `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`

	P50   int64 `json:"p50"`
	P90   int64 `json:"p90"`
	P99   int64 `json:"p99"`
	P999  int64 `json:"p999"`
	P9999 int64 `json:"p9999"`

	// Histogram is the full distribution in histlog textual form.
	Histogram string `json:"histogram"`
}

// NewSnapshot captures the histogram's current state under the given series
// name. The full distribution is embedded in histlog form so consumers can
// recompute arbitrary quantiles.
func NewSnapshot(name string, h *hdrgram.Histogram) (*Snapshot, error) {
	encoded, err := histlog.Encode(h, histlog.CompressionZlib)
	if err != nil {
		return nil, fmt.Errorf("encoding histogram: %w", err)
	}

	return &Snapshot{
		Name:        name,
		UpdatedTime: time.Now(),

		Count:  h.TotalCount(),
		Min:    h.Min(),
		Max:    h.Max(),
		Mean:   h.Mean(),
		StdDev: h.StdDev(),

		P50:   h.ValueAtPercentile(50),
		P90:   h.ValueAtPercentile(90),
		P99:   h.ValueAtPercentile(99),
		P999:  h.ValueAtPercentile(99.9),
		P9999: h.ValueAtPercentile(99.99),

		Histogram: encoded,
	}, nil
}
