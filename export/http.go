package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	processor "github.com/ethpandaops/go-batch-processor"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/hdrgram/histlog"
)

// HTTPConfig configures the HTTP snapshot exporter.
type HTTPConfig struct {
	// Enabled enables the HTTP exporter.
	Enabled bool `yaml:"enabled"`

	// Address is the HTTP endpoint to send snapshots to.
	Address string `yaml:"address"`

	// Headers are additional HTTP headers to include in requests.
	Headers map[string]string `yaml:"headers"`

	// Compression specifies the payload compression algorithm.
	// Valid values: none, gzip, zstd, zlib, snappy. Defaults to gzip.
	Compression string `yaml:"compression"`

	// BatchSize is the maximum number of snapshots per batch.
	// Defaults to 512.
	BatchSize int `yaml:"batch_size"`

	// BatchTimeout is the maximum duration to wait before sending a batch.
	// Defaults to 5s.
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	// ExportTimeout is the maximum duration for an export operation.
	// Defaults to 30s.
	ExportTimeout time.Duration `yaml:"export_timeout"`

	// MaxQueueSize is the maximum number of snapshots to queue.
	// Defaults to 51200.
	MaxQueueSize int `yaml:"max_queue_size"`

	// Workers is the number of concurrent workers. Defaults to 1.
	Workers int `yaml:"workers"`
}

// DefaultHTTPConfig returns an HTTPConfig with sensible defaults.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Compression:   histlog.CompressionGzip,
		BatchSize:     512,
		BatchTimeout:  5 * time.Second,
		ExportTimeout: 30 * time.Second,
		MaxQueueSize:  51200,
		Workers:       1,
	}
}

// ApplyDefaults applies default values to unset fields.
func (c *HTTPConfig) ApplyDefaults() {
	defaults := DefaultHTTPConfig()

	if c.Compression == "" {
		c.Compression = defaults.Compression
	}

	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}

	if c.BatchTimeout <= 0 {
		c.BatchTimeout = defaults.BatchTimeout
	}

	if c.ExportTimeout <= 0 {
		c.ExportTimeout = defaults.ExportTimeout
	}

	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = defaults.MaxQueueSize
	}

	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
}

// Validate validates the configuration.
func (c *HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Address == "" {
		return errors.New("http address is required when enabled")
	}

	if c.BatchSize > c.MaxQueueSize && c.MaxQueueSize > 0 {
		return errors.New("batch_size cannot be greater than max_queue_size")
	}

	return nil
}

// HTTPExporter posts snapshot batches to an HTTP endpoint as NDJSON.
type HTTPExporter struct {
	cfg        HTTPConfig
	client     *http.Client
	compressor *histlog.Compressor
	log        logrus.FieldLogger
}

// compile-time check that HTTPExporter implements ItemExporter.
var _ processor.ItemExporter[Snapshot] = (*HTTPExporter)(nil)

// NewHTTPExporter creates a new HTTP snapshot exporter.
func NewHTTPExporter(log logrus.FieldLogger, cfg HTTPConfig) (*HTTPExporter, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	compressor, err := histlog.NewCompressor(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Workers * 2,
		MaxIdleConnsPerHost: cfg.Workers * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPExporter{
		cfg:        cfg,
		client:     &http.Client{Transport: transport, Timeout: cfg.ExportTimeout},
		compressor: compressor,
		log:        log.WithField("component", "http_exporter"),
	}, nil
}

// ExportItems exports a batch of snapshots to the HTTP endpoint as NDJSON.
func (e *HTTPExporter) ExportItems(ctx context.Context, items []*Snapshot) error {
	if len(items) == 0 {
		return nil
	}

	var buf bytes.Buffer

	buf.Grow(len(items) * 512)

	encoder := json.NewEncoder(&buf)

	for _, item := range items {
		if item == nil {
			continue
		}

		if err := encoder.Encode(item); err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
	}

	data := buf.Bytes()

	compressed, err := e.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("compressing data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Address, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-ndjson")

	if encoding := e.compressor.ContentEncoding(); encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	for k, v := range e.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	defer resp.Body.Close()

	// Drain response body to enable connection reuse.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	e.log.WithFields(logrus.Fields{
		"snapshots":  len(items),
		"bytes":      len(data),
		"compressed": len(compressed),
	}).Debug("Exported batch via HTTP")

	return nil
}

// Shutdown shuts down the exporter.
func (e *HTTPExporter) Shutdown(_ context.Context) error {
	if e.compressor != nil {
		return e.compressor.Close()
	}

	return nil
}

// NewProcessor creates a BatchItemProcessor around the given snapshot
// exporter.
func NewProcessor(
	log logrus.FieldLogger,
	cfg HTTPConfig,
	name string,
	exporter processor.ItemExporter[Snapshot],
) (*processor.BatchItemProcessor[Snapshot], error) {
	proc, err := processor.NewBatchItemProcessor[Snapshot](
		exporter,
		name,
		log,
		processor.WithMaxQueueSize(cfg.MaxQueueSize),
		processor.WithBatchTimeout(cfg.BatchTimeout),
		processor.WithExportTimeout(cfg.ExportTimeout),
		processor.WithMaxExportBatchSize(cfg.BatchSize),
		processor.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processor: %w", err)
	}

	return proc, nil
}
