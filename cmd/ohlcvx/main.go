// OHLCV Analytics CLI
// This application runs the incremental OHLCV analytics pipeline: it loads
// daily market data from CSV files, normalizes it, computes derived metrics,
// calibrates per-asset anomaly thresholds, and flags anomalous day-over-day
// moves in the most recent window.
//
// Usage:
//
//	ohlcvx bootstrap --data ./csv
//	ohlcvx run --data ./csv
//	ohlcvx calibrate --percentile 99
//	ohlcvx detect --asof 2021-07-06 --window 2
//	ohlcvx stats
//
// For detailed help on any command, use: ohlcvx <command> --help
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/config"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/detect"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/errs"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/logger"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/normalize"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/pipeline"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/source"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/storage"
)

// CLI version information
const (
	Version    = "1.0.0"
	AppName    = "ohlcvx"
	ConfigFile = "ohlcvx.json"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0
	ExitUsageError  = 1
	ExitConfigError = 2
	ExitDataError   = 4
	ExitInterrupt   = 130
)

// CLI represents the main CLI application
type CLI struct {
	config     *config.AppConfig
	loggerMgr  *logger.LoggerManager
	logger     *slog.Logger
	datasets   storage.FullStorage
	thresholds storage.ThresholdStore
}

// main is the entry point for the CLI application
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(ExitUsageError)
	}

	command := os.Args[1]
	args := os.Args[2:]

	// Commands that never touch storage or configuration
	switch command {
	case "--version", "-v":
		fmt.Printf("%s version %s\n", AppName, Version)
		return
	case "--help", "-h", "help":
		if len(args) > 0 {
			printCommandHelp(args[0])
		} else {
			printUsage()
		}
		return
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := &CLI{}
	if err := cli.initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to initialize CLI: %v\n", err)
		os.Exit(ExitConfigError)
	}
	defer cli.shutdown()

	var err error
	switch command {
	case "bootstrap":
		err = cli.handleBootstrap(ctx, args)
	case "run":
		err = cli.handleRun(ctx, args)
	case "calibrate":
		err = cli.handleCalibrate(ctx, args)
	case "detect":
		err = cli.handleDetect(ctx, args)
	case "stats":
		err = cli.handleStats(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(ExitUsageError)
	}

	if err != nil {
		logger.LogError(cli.logger, err, "command failed", "command", command)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(ctx.Err(), context.Canceled) {
			os.Exit(ExitInterrupt)
		}
		os.Exit(ExitDataError)
	}
}

// initialize sets up configuration, logging and the storage backends.
func (cli *CLI) initialize(ctx context.Context) error {
	configPath := os.Getenv("OHLCVX_CONFIG_PATH")
	if configPath == "" {
		configPath = ConfigFile
	}

	mgr := config.NewConfigManager(configPath, slog.Default())
	cfg, err := mgr.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cli.config = cfg

	loggerMgr, err := logger.NewLoggerManager(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	cli.loggerMgr = loggerMgr
	cli.logger = loggerMgr.GetLogger()

	datasets, err := createStorage(cfg, loggerMgr.GetComponentLogger("storage"))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	cli.datasets = datasets

	if err := datasets.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage schema: %w", err)
	}

	cli.thresholds = storage.NewFileThresholdStore(cfg.Thresholds.FilePath, loggerMgr.GetComponentLogger("thresholds"))
	return nil
}

// shutdown releases the storage and logging resources.
func (cli *CLI) shutdown() {
	if cli.datasets != nil {
		if err := cli.datasets.Close(); err != nil {
			cli.logger.Warn("Failed to close storage", "error", err)
		}
	}
	if cli.loggerMgr != nil {
		_ = cli.loggerMgr.Close()
	}
}

// newPipeline builds a pipeline from the loaded configuration with optional
// per-command overrides already applied to opts.
func (cli *CLI) newPipeline(opts pipeline.Options) *pipeline.Pipeline {
	if opts.Table == "" {
		opts.Table = cli.config.Storage.Table
	}
	if opts.Percentile.Sign() <= 0 {
		opts.Percentile = decimal.NewFromFloat(cli.config.Analytics.Percentile)
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = cli.config.Analytics.WindowDays
	}
	opts.RecalibrateOnMissing = cli.config.Analytics.RecalibrateOnMissing
	opts.Workers = cli.config.Analytics.Workers
	opts.Retry = cli.retryPolicy()

	normalizer := normalize.New(cli.loggerMgr.GetComponentLogger("normalizer"), cli.config.Source.DateLayouts)
	return pipeline.New(cli.loggerMgr.GetComponentLogger("pipeline"), cli.datasets, cli.thresholds, normalizer, opts)
}

// retryPolicy parses the configured retry delays, falling back to defaults
// on malformed values.
func (cli *CLI) retryPolicy() errs.RetryPolicy {
	policy := errs.DefaultRetryPolicy()
	if cli.config.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cli.config.Retry.MaxAttempts
	}
	if d, err := time.ParseDuration(cli.config.Retry.InitialDelay); err == nil && d > 0 {
		policy.InitialDelay = d
	}
	if d, err := time.ParseDuration(cli.config.Retry.MaxDelay); err == nil && d > 0 {
		policy.MaxDelay = d
	}
	return policy
}

// fetchRows reads raw rows from the CSV directory, preferring the
// command-line override over the configured source directory.
func (cli *CLI) fetchRows(ctx context.Context, dir string) ([]models.RawRow, error) {
	if dir == "" {
		dir = cli.config.Source.Dir
	}
	if dir == "" {
		return nil, fmt.Errorf("no data directory: use --data or set source.dir")
	}
	src := source.NewCSVDirSource(dir, cli.loggerMgr.GetComponentLogger("source"))
	return src.Fetch(ctx)
}

// handleBootstrap handles the 'bootstrap' command: build the dataset and
// calibration artifact from scratch.
func (cli *CLI) handleBootstrap(ctx context.Context, args []string) error {
	flags, err := parseBootstrapFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printCommandHelp("bootstrap")
		return nil
	}

	rows, err := cli.fetchRows(ctx, flags.Data)
	if err != nil {
		return err
	}

	opts := pipeline.Options{}
	if flags.Percentile > 0 {
		opts.Percentile = decimal.NewFromFloat(flags.Percentile)
	}
	p := cli.newPipeline(opts)

	report, err := p.Bootstrap(ctx, rows)
	if err != nil {
		return err
	}

	printReport(report, flags.Format)
	return nil
}

// handleRun handles the 'run' command: one incremental batch over the
// stored history plus the new rows.
func (cli *CLI) handleRun(ctx context.Context, args []string) error {
	flags, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printCommandHelp("run")
		return nil
	}

	rows, err := cli.fetchRows(ctx, flags.Data)
	if err != nil {
		return err
	}

	opts := pipeline.Options{WindowDays: flags.Window}
	if flags.AsOf != "" {
		ref, err := time.Parse("2006-01-02", flags.AsOf)
		if err != nil {
			return fmt.Errorf("invalid asof date format, use YYYY-MM-DD: %w", err)
		}
		opts.ReferenceTime = ref.UTC()
	}
	p := cli.newPipeline(opts)

	report, err := p.Run(ctx, rows)
	if err != nil {
		return err
	}

	printReport(report, flags.Format)
	return nil
}

// handleCalibrate handles the 'calibrate' command: rebuild the threshold
// table from the stored dataset.
func (cli *CLI) handleCalibrate(ctx context.Context, args []string) error {
	flags, err := parseCalibrateFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printCommandHelp("calibrate")
		return nil
	}

	opts := pipeline.Options{}
	if flags.Percentile > 0 {
		opts.Percentile = decimal.NewFromFloat(flags.Percentile)
	}
	p := cli.newPipeline(opts)

	table, err := p.Calibrate(ctx)
	if err != nil {
		if errs.IsNoData(err) {
			fmt.Println("No stored data to calibrate from; saved an empty threshold table.")
			return nil
		}
		return err
	}

	entries := 0
	for _, byAsset := range table.Entries {
		entries += len(byAsset)
	}
	fmt.Printf("✅ Calibrated %d threshold entries at the %s percentile (run %s)\n",
		entries, table.Percentile.String(), table.RunID)
	return nil
}

// handleDetect handles the 'detect' command: flag anomalies in the stored
// dataset's recent window without modifying any persisted state.
func (cli *CLI) handleDetect(ctx context.Context, args []string) error {
	flags, err := parseDetectFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printCommandHelp("detect")
		return nil
	}

	opts := pipeline.Options{WindowDays: flags.Window}
	if flags.AsOf != "" {
		ref, err := time.Parse("2006-01-02", flags.AsOf)
		if err != nil {
			return fmt.Errorf("invalid asof date format, use YYYY-MM-DD: %w", err)
		}
		opts.ReferenceTime = ref.UTC()
	}
	p := cli.newPipeline(opts)

	anomalies, err := p.Detect(ctx)
	if err != nil {
		if errs.IsNoData(err) {
			fmt.Println("No stored data to detect over.")
			return nil
		}
		if errors.Is(err, storage.ErrThresholdsNotFound) {
			return fmt.Errorf("no calibration artifact found; run '%s calibrate' first", AppName)
		}
		return err
	}

	if len(anomalies) == 0 {
		fmt.Println("✅ No anomalies in the detection window")
		return nil
	}
	return outputAnomalies(anomalies, flags.Format)
}

// handleStats handles the 'stats' command for storage introspection.
func (cli *CLI) handleStats(ctx context.Context, args []string) error {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			printCommandHelp("stats")
			return nil
		}
	}

	stats, err := cli.datasets.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read storage stats: %w", err)
	}

	fmt.Printf("📊 Storage statistics\n")
	fmt.Printf("Records: %d\n", stats.TotalRecords)
	fmt.Printf("Assets:  %d\n", stats.TotalAssets)
	if !stats.EarliestData.IsZero() {
		fmt.Printf("Range:   %s to %s\n",
			stats.EarliestData.Format("2006-01-02"),
			stats.LatestData.Format("2006-01-02"))
	}
	for op, d := range stats.QueryPerformance {
		fmt.Printf("Avg %s: %v\n", op, d)
	}
	return nil
}

// Output formatting functions

// printReport summarizes a pipeline run on stdout.
func printReport(report *pipeline.Report, format string) {
	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(report)
		return
	}

	switch report.Outcome {
	case pipeline.OutcomeNoData:
		fmt.Println("Nothing to process: no historical or new rows.")
		return
	case pipeline.OutcomeAnomalies:
		fmt.Printf("🔍 Run %s flagged %d anomalous rows\n", report.RunID, len(report.Anomalies))
	default:
		fmt.Printf("✅ Run %s completed with no anomalies\n", report.RunID)
	}

	fmt.Printf("Rows: %d total (%d historical, %d new)\n",
		report.TotalRows, report.HistoryRows, report.NewRows)
	norm := report.Normalization
	fmt.Printf("Normalization: %d in, %d out, %d dropped, %d duplicates removed, %d values nulled, %d volumes filled\n",
		norm.RowsIn, norm.RowsOut, norm.RowsDropped, norm.DuplicatesRemoved, norm.ValuesNulled, norm.VolumesForwardFilled)
	if report.Calibrated {
		fmt.Println("Thresholds: calibrated during this run")
	}
	fmt.Printf("Duration: %v\n", report.Duration)

	if len(report.Anomalies) > 0 {
		fmt.Println()
		_ = outputAnomalies(report.Anomalies, "table")
	}
}

// outputAnomalies renders flagged rows as a table or JSON.
func outputAnomalies(anomalies []detect.Anomaly, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(anomalies)
	}

	fmt.Printf("%-12s %-12s %-12s %s\n", "Date", "Asset", "Close", "Tripped Metrics")
	fmt.Println(strings.Repeat("-", 60))
	for _, a := range anomalies {
		names := make([]string, 0, len(a.Metrics))
		for _, m := range a.Metrics {
			names = append(names, m.String())
		}
		closePrice := "null"
		if a.Record.Close.Valid {
			closePrice = a.Record.Close.Decimal.String()
		}
		fmt.Printf("%-12s %-12s %-12s %s\n",
			a.Record.Date.Format("2006-01-02"),
			a.Record.AssetID,
			closePrice,
			strings.Join(names, ","))
	}
	return nil
}

// Flag structures for parsing command line arguments

// BootstrapFlags represents flags for the bootstrap command
type BootstrapFlags struct {
	Data       string
	Percentile float64
	Format     string
	Help       bool
}

// RunFlags represents flags for the run command
type RunFlags struct {
	Data   string
	AsOf   string
	Window int
	Format string
	Help   bool
}

// CalibrateFlags represents flags for the calibrate command
type CalibrateFlags struct {
	Percentile float64
	Help       bool
}

// DetectFlags represents flags for the detect command
type DetectFlags struct {
	AsOf   string
	Window int
	Format string
	Help   bool
}

// Flag parsing functions

// parseBootstrapFlags parses command line arguments for the bootstrap command
func parseBootstrapFlags(args []string) (*BootstrapFlags, error) {
	flags := &BootstrapFlags{
		Format: "table", // Default format
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--data", "-d":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--data requires a value")
			}
			flags.Data = args[i+1]
			i++
		case "--percentile", "-p":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--percentile requires a value")
			}
			percentile, err := strconv.ParseFloat(args[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid percentile value: %w", err)
			}
			flags.Percentile = percentile
			i++
		case "--format", "-f":
			format, err := parseFormat(args, i)
			if err != nil {
				return nil, err
			}
			flags.Format = format
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	return flags, nil
}

// parseRunFlags parses command line arguments for the run command
func parseRunFlags(args []string) (*RunFlags, error) {
	flags := &RunFlags{
		Format: "table", // Default format
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--data", "-d":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--data requires a value")
			}
			flags.Data = args[i+1]
			i++
		case "--asof", "-a":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--asof requires a value")
			}
			flags.AsOf = args[i+1]
			i++
		case "--window", "-w":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--window requires a value")
			}
			window, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid window value: %w", err)
			}
			flags.Window = window
			i++
		case "--format", "-f":
			format, err := parseFormat(args, i)
			if err != nil {
				return nil, err
			}
			flags.Format = format
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	return flags, nil
}

// parseCalibrateFlags parses command line arguments for the calibrate command
func parseCalibrateFlags(args []string) (*CalibrateFlags, error) {
	flags := &CalibrateFlags{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--percentile", "-p":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--percentile requires a value")
			}
			percentile, err := strconv.ParseFloat(args[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid percentile value: %w", err)
			}
			flags.Percentile = percentile
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	return flags, nil
}

// parseDetectFlags parses command line arguments for the detect command
func parseDetectFlags(args []string) (*DetectFlags, error) {
	flags := &DetectFlags{
		Format: "table", // Default format
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--asof", "-a":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--asof requires a value")
			}
			flags.AsOf = args[i+1]
			i++
		case "--window", "-w":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--window requires a value")
			}
			window, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("invalid window value: %w", err)
			}
			flags.Window = window
			i++
		case "--format", "-f":
			format, err := parseFormat(args, i)
			if err != nil {
				return nil, err
			}
			flags.Format = format
			i++
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	return flags, nil
}

// parseFormat validates the shared --format flag value.
func parseFormat(args []string, i int) (string, error) {
	if i+1 >= len(args) {
		return "", fmt.Errorf("--format requires a value")
	}
	format := args[i+1]
	if format != "json" && format != "table" {
		return "", fmt.Errorf("invalid format, must be: json or table")
	}
	return format, nil
}

// createStorage creates the appropriate storage backend
func createStorage(cfg *config.AppConfig, log *slog.Logger) (storage.FullStorage, error) {
	switch cfg.Storage.Type {
	case "duckdb":
		return storage.NewDuckDBStorage(cfg.Storage.DatabaseURL, cfg.Storage.Table, log)
	case "memory":
		return storage.NewMemoryStorage(log), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// Help and usage functions

// printUsage prints the main usage information
func printUsage() {
	fmt.Printf(`%s - OHLCV Analytics CLI v%s

USAGE:
    %s <command> [options]

COMMANDS:
    bootstrap   Build the dataset and calibration artifact from CSV files
    run         Merge new CSV rows into history, recompute metrics, detect anomalies
    calibrate   Rebuild the anomaly threshold table from stored data
    detect      Flag anomalies in the stored dataset's recent window
    stats       Show storage statistics

GLOBAL OPTIONS:
    --help, -h     Show help information
    --version, -v  Show version information

EXAMPLES:
    # First load: normalize everything, compute metrics, calibrate thresholds
    %s bootstrap --data ./csv

    # Incremental batch with anomaly detection over the last 2 days
    %s run --data ./csv

    # Recalibrate at a different percentile
    %s calibrate --percentile 99

    # Re-run detection anchored at a past date
    %s detect --asof 2021-07-06 --window 2

CONFIGURATION:
    Configuration can be provided via:
    - Config file: %s (JSON format, or set OHLCVX_CONFIG_PATH)
    - Environment variables: OHLCVX_* (e.g., OHLCVX_DATABASE_URL)

    Example config file:
    {
        "storage": {"type": "duckdb", "database_url": "./data/analytics.db"},
        "source": {"dir": "./csv"},
        "analytics": {"percentile": 98, "window_days": 2}
    }

For detailed help on any command, use: %s <command> --help
`, AppName, Version, AppName, AppName, AppName, AppName, AppName, ConfigFile, AppName)
}

// printCommandHelp prints detailed help for a specific command
func printCommandHelp(command string) {
	switch command {
	case "bootstrap":
		fmt.Printf(`%s bootstrap - Build the dataset from scratch

USAGE:
    %s bootstrap [options]

OPTIONS:
    --data, -d <dir>          Directory of CSV files, one per asset
                              (default: source.dir from configuration)
    --percentile, -p <pct>    Calibration percentile (default: 98)
    --format, -f <format>     Output format: table, json (default: table)
    --help, -h                Show this help message

EXAMPLES:
    # Load every CSV under ./csv, compute metrics, calibrate thresholds
    %s bootstrap --data ./csv

    # Bootstrap with a stricter 99.5th percentile calibration
    %s bootstrap --data ./csv --percentile 99.5

NOTES:
    - Replaces any previously stored dataset and threshold table
    - No anomaly detection is performed on the first load
`, AppName, AppName, AppName, AppName)

	case "run":
		fmt.Printf(`%s run - Run one incremental analytics batch

USAGE:
    %s run [options]

OPTIONS:
    --data, -d <dir>          Directory of CSV files with new rows
                              (default: source.dir from configuration)
    --asof, -a <date>         Detection window anchor date (YYYY-MM-DD,
                              default: today)
    --window, -w <days>       Detection window size in days (default: 2)
    --format, -f <format>     Output format: table, json (default: table)
    --help, -h                Show this help message

EXAMPLES:
    # Merge new rows and flag anomalies in the last 2 days
    %s run --data ./csv

    # Re-run a historical batch with a 7-day window
    %s run --data ./csv --asof 2021-07-06 --window 7

NOTES:
    - Derived metrics are recomputed over the full merged history
    - Missing thresholds are recalibrated when recalibrate_on_missing is set
    - The stored dataset is replaced wholesale on success
`, AppName, AppName, AppName, AppName)

	case "calibrate":
		fmt.Printf(`%s calibrate - Rebuild the anomaly threshold table

USAGE:
    %s calibrate [options]

OPTIONS:
    --percentile, -p <pct>    Calibration percentile (default: 98)
    --help, -h                Show this help message

EXAMPLES:
    # Recalibrate from stored data at the default percentile
    %s calibrate

    # Calibrate looser thresholds
    %s calibrate --percentile 95

NOTES:
    - Thresholds are per asset and per metric
    - Assets without enough history get explicit undefined entries
`, AppName, AppName, AppName, AppName)

	case "detect":
		fmt.Printf(`%s detect - Flag anomalies in the recent window

USAGE:
    %s detect [options]

OPTIONS:
    --asof, -a <date>         Detection window anchor date (YYYY-MM-DD,
                              default: today)
    --window, -w <days>       Detection window size in days (default: 2)
    --format, -f <format>     Output format: table, json (default: table)
    --help, -h                Show this help message

EXAMPLES:
    # Detect over the last 2 days using stored thresholds
    %s detect

    # Detect over a past week
    %s detect --asof 2021-07-06 --window 7

NOTES:
    - Detection is read-only: stored data and thresholds are not modified
    - A row is flagged when any metric's absolute percentage change
      exceeds its calibrated threshold
`, AppName, AppName, AppName, AppName)

	case "stats":
		fmt.Printf(`%s stats - Show storage statistics

USAGE:
    %s stats

NOTES:
    - Reports record and asset counts, the stored date range, and
      average query times
`, AppName, AppName)

	default:
		fmt.Fprintf(os.Stderr, "No help available for command: %s\n", command)
		printUsage()
	}
}
