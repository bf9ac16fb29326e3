package export

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ethpandaops/hdrgram"
)

// Collector exposes a live histogram to Prometheus. Every scrape reads the
// histogram's weakly-consistent snapshot; no locking is performed.
type Collector struct {
	h    *hdrgram.Histogram
	name string

	countDesc    *prometheus.Desc
	minDesc      *prometheus.Desc
	maxDesc      *prometheus.Desc
	meanDesc     *prometheus.Desc
	quantileDesc *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Prometheus collector for the given histogram. The
// name is used as the metric name prefix, e.g. "request_latency".
func NewCollector(name string, h *hdrgram.Histogram) *Collector {
	return &Collector{
		h:    h,
		name: name,

		countDesc: prometheus.NewDesc(
			name+"_count", "Total number of recorded samples.", nil, nil),
		minDesc: prometheus.NewDesc(
			name+"_min", "Minimum recorded value.", nil, nil),
		maxDesc: prometheus.NewDesc(
			name+"_max", "Maximum recorded value.", nil, nil),
		meanDesc: prometheus.NewDesc(
			name+"_mean", "Mean of the recorded values.", nil, nil),
		quantileDesc: prometheus.NewDesc(
			name+"_quantile", "Value at percentile.", []string{"percentile"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.countDesc
	ch <- c.minDesc
	ch <- c.maxDesc
	ch <- c.meanDesc
	ch <- c.quantileDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.countDesc, prometheus.CounterValue, float64(c.h.TotalCount()))
	ch <- prometheus.MustNewConstMetric(
		c.minDesc, prometheus.GaugeValue, float64(c.h.Min()))
	ch <- prometheus.MustNewConstMetric(
		c.maxDesc, prometheus.GaugeValue, float64(c.h.Max()))
	ch <- prometheus.MustNewConstMetric(
		c.meanDesc, prometheus.GaugeValue, c.h.Mean())

	for _, q := range snapshotQuantiles {
		ch <- prometheus.MustNewConstMetric(
			c.quantileDesc, prometheus.GaugeValue,
			float64(c.h.ValueAtPercentile(q)),
			strconv.FormatFloat(q, 'f', -1, 64))
	}
}
