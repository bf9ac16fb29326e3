package export

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ClickHouse/clickhouse-go/v2"
	processor "github.com/ethpandaops/go-batch-processor"
	"github.com/sirupsen/logrus"
)

// ClickHouseConfig configures the ClickHouse snapshot sink.
type ClickHouseConfig struct {
	// Enabled enables the ClickHouse exporter.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the ClickHouse native protocol address.
	Endpoint string `yaml:"endpoint"`

	// Database is the target database name.
	Database string `yaml:"database"`

	// Table is the target snapshot table name. Defaults to
	// "histogram_snapshots". The embedded schema migrations create only the
	// table of that default name.
	Table string `yaml:"table"`

	// Username for ClickHouse authentication.
	Username string `yaml:"username"`

	// Password for ClickHouse authentication.
	Password string `yaml:"password"`
}

// ApplyDefaults applies default values to unset fields.
func (c *ClickHouseConfig) ApplyDefaults() {
	if c.Table == "" {
		c.Table = "histogram_snapshots"
	}
}

// Validate validates the configuration.
func (c *ClickHouseConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("clickhouse endpoint is required when enabled")
	}

	if c.Database == "" {
		return fmt.Errorf("clickhouse database is required when enabled")
	}

	return nil
}

// DSN returns the connection string form of the configuration, as consumed
// by the schema migrator.
func (c ClickHouseConfig) DSN() string {
	u := url.URL{
		Scheme: "clickhouse",
		Host:   c.Endpoint,
		Path:   "/" + c.Database,
	}

	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}

	return u.String()
}

// ClickHouseExporter owns a ClickHouse connection and writes snapshot
// batches to the configured snapshot table.
type ClickHouseExporter struct {
	log         logrus.FieldLogger
	cfg         ClickHouseConfig
	conn        clickhouse.Conn
	insertQuery string
}

// Batches of snapshots can also be driven through a BatchItemProcessor.
var _ processor.ItemExporter[Snapshot] = (*ClickHouseExporter)(nil)

// NewClickHouseExporter creates a new ClickHouse snapshot exporter. Start
// must be called before the first export.
func NewClickHouseExporter(log logrus.FieldLogger, cfg ClickHouseConfig) *ClickHouseExporter {
	cfg.ApplyDefaults()

	return &ClickHouseExporter{
		log: log.WithField("exporter", "clickhouse"),
		cfg: cfg,
		insertQuery: fmt.Sprintf(`INSERT INTO %s.%s (
			updated_date_time, name,
			count, min, max, mean, stddev,
			p50, p90, p99, p999, p9999,
			histogram
		)`, cfg.Database, cfg.Table),
	}
}

// Start opens and verifies the ClickHouse connection.
func (e *ClickHouseExporter) Start(ctx context.Context) error {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{e.cfg.Endpoint},
		Auth: clickhouse.Auth{
			Database: e.cfg.Database,
			Username: e.cfg.Username,
			Password: e.cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		return fmt.Errorf("opening ClickHouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("pinging ClickHouse: %w", err)
	}

	e.conn = conn

	e.log.WithFields(logrus.Fields{
		"endpoint": e.cfg.Endpoint,
		"table":    e.cfg.Table,
	}).Info("ClickHouse exporter connected")

	return nil
}

// Stop closes the ClickHouse connection.
func (e *ClickHouseExporter) Stop() error {
	if e.conn == nil {
		return nil
	}

	conn := e.conn
	e.conn = nil

	return conn.Close()
}

// ExportItems writes a batch of snapshots to the snapshot table.
func (e *ClickHouseExporter) ExportItems(ctx context.Context, items []*Snapshot) error {
	if len(items) == 0 {
		return nil
	}

	if e.conn == nil {
		return fmt.Errorf("clickhouse exporter not started")
	}

	batch, err := e.conn.PrepareBatch(ctx, e.insertQuery)
	if err != nil {
		return fmt.Errorf("preparing snapshot batch: %w", err)
	}

	rows := 0

	for _, s := range items {
		if s == nil {
			continue
		}

		if err := batch.Append(
			s.UpdatedTime, s.Name,
			s.Count, s.Min, s.Max, s.Mean, s.StdDev,
			s.P50, s.P90, s.P99, s.P999, s.P9999,
			s.Histogram,
		); err != nil {
			return fmt.Errorf("appending snapshot row: %w", err)
		}

		rows++
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("sending snapshot batch: %w", err)
	}

	e.log.WithField("rows", rows).Debug("Flushed histogram snapshots")

	return nil
}

// ExportSnapshot writes a single snapshot outside of any batch pipeline.
func (e *ClickHouseExporter) ExportSnapshot(ctx context.Context, s *Snapshot) error {
	return e.ExportItems(ctx, []*Snapshot{s})
}

// Shutdown implements the batch processor's exporter contract by closing
// the connection.
func (e *ClickHouseExporter) Shutdown(_ context.Context) error {
	return e.Stop()
}
