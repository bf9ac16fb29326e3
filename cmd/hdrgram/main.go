package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/hdrgram"
	"github.com/ethpandaops/hdrgram/export"
	"github.com/ethpandaops/hdrgram/histlog"
	"github.com/ethpandaops/hdrgram/internal/version"
)

var (
	inputPath  string
	rawValues  bool
	lowest     int64
	highest    int64
	sigfigs    int
	ticks      int32
	valueScale float64
	csvFormat  bool

	cfgFile      string
	snapshotName string
	logLevel     string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hdrgram",
		Short: "HDR histogram snapshot tooling",
		Long: `hdrgram records latency-style integer samples into High Dynamic
Range histograms, prints their percentile distributions and ships
snapshots to ClickHouse or HTTP sinks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(printCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.FullWithPlatform())
		},
	}
}

func printCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print a histogram's percentile distribution",
		Long: `print reads either an encoded histogram snapshot or (with --values)
raw integer samples, one per line, and writes the percentile
distribution to stdout.`,
		RunE: runPrint,
	}

	addInputFlags(cmd)

	cmd.Flags().Int32Var(&ticks, "ticks", 5,
		"percentile ticks per half distance")
	cmd.Flags().Float64Var(&valueScale, "scale", 1.0,
		"divide output values by this factor")
	cmd.Flags().BoolVar(&csvFormat, "csv", false,
		"emit CSV instead of the classic layout")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Ship a histogram snapshot to the configured sinks",
		RunE:  runExport,
	}

	addInputFlags(cmd)

	cmd.Flags().StringVar(&cfgFile, "config", "",
		"path to config file (required)")
	cmd.Flags().StringVar(&snapshotName, "name", "histogram",
		"series name attached to the snapshot")
	cmd.Flags().StringVar(&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)")

	if err := cmd.MarkFlagRequired("config"); err != nil {
		fmt.Fprintf(os.Stderr, "error marking flag required: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&inputPath, "input", "-",
		"input file, or - for stdin")
	cmd.Flags().BoolVar(&rawValues, "values", false,
		"treat the input as raw integer samples, one per line")
	cmd.Flags().Int64Var(&lowest, "lowest", 1,
		"lowest trackable value (with --values)")
	cmd.Flags().Int64Var(&highest, "highest", 3600*1000*1000,
		"highest trackable value (with --values)")
	cmd.Flags().IntVar(&sigfigs, "sigfigs", 3,
		"significant figures (with --values)")
}

func runPrint(cmd *cobra.Command, args []string) error {
	h, err := loadHistogram()
	if err != nil {
		return err
	}

	format := histlog.FormatClassic
	if csvFormat {
		format = histlog.FormatCSV
	}

	return histlog.PercentilesPrint(os.Stdout, h, ticks, valueScale, format)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := export.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flag overrides config file.
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	log.SetLevel(level)

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	h, err := loadHistogram()
	if err != nil {
		return err
	}

	snap, err := export.NewSnapshot(snapshotName, h)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}

	if cfg.ClickHouse.Enabled {
		if err := exportClickHouse(ctx, log, cfg, snap); err != nil {
			return err
		}
	}

	if cfg.HTTP.Enabled {
		if err := exportHTTP(ctx, log, cfg, snap); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"name":  snap.Name,
		"count": snap.Count,
	}).Info("Snapshot exported")

	return nil
}

func exportClickHouse(
	ctx context.Context,
	log logrus.FieldLogger,
	cfg *export.Config,
	snap *export.Snapshot,
) error {
	if _, err := export.NewMigrator(log, cfg.ClickHouse).Ensure(); err != nil {
		return fmt.Errorf("ensuring snapshot schema: %w", err)
	}

	exporter := export.NewClickHouseExporter(log, cfg.ClickHouse)
	if err := exporter.Start(ctx); err != nil {
		return fmt.Errorf("starting ClickHouse exporter: %w", err)
	}

	defer func() {
		if err := exporter.Stop(); err != nil {
			log.WithError(err).Error("ClickHouse exporter shutdown failed")
		}
	}()

	if err := exporter.ExportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("exporting to ClickHouse: %w", err)
	}

	return nil
}

func exportHTTP(
	ctx context.Context,
	log logrus.FieldLogger,
	cfg *export.Config,
	snap *export.Snapshot,
) error {
	exporter, err := export.NewHTTPExporter(log, cfg.HTTP)
	if err != nil {
		return fmt.Errorf("creating HTTP exporter: %w", err)
	}

	proc, err := export.NewProcessor(log, cfg.HTTP, "snapshot_http", exporter)
	if err != nil {
		return fmt.Errorf("creating HTTP processor: %w", err)
	}

	proc.Start(ctx)

	if err := proc.Write(ctx, []*export.Snapshot{snap}); err != nil {
		return fmt.Errorf("queueing snapshot: %w", err)
	}

	if err := proc.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("flushing HTTP processor: %w", err)
	}

	return nil
}

// loadHistogram builds a histogram from the configured input: an encoded
// snapshot by default, or raw samples with --values.
func loadHistogram() (*hdrgram.Histogram, error) {
	r, closer, err := openInput()
	if err != nil {
		return nil, err
	}
	defer closer()

	if rawValues {
		return recordValues(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	h, err := histlog.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	return h, nil
}

func openInput() (io.Reader, func(), error) {
	if inputPath == "" || inputPath == "-" {
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input %s: %w", inputPath, err)
	}

	return f, func() { f.Close() }, nil
}

func recordValues(r io.Reader) (*hdrgram.Histogram, error) {
	h, err := hdrgram.New(lowest, highest, sigfigs)
	if err != nil {
		return nil, fmt.Errorf("creating histogram: %w", err)
	}

	scanner := bufio.NewScanner(r)

	line := 0
	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing value on line %d: %w", line, err)
		}

		if !h.RecordValue(value) {
			return nil, fmt.Errorf("value %d on line %d is outside the trackable range [0, %d]",
				value, line, h.HighestTrackableValue())
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return h, nil
}
