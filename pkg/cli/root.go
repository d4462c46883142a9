// Package cli implements the datacompare command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource/mssql"    // Register mssql adapter
	_ "github.com/ekaya-inc/ekaya-datacompare/pkg/adapters/datasource/postgres" // Register postgres adapter
	"github.com/ekaya-inc/ekaya-datacompare/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/config"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/logging"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/models"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/report"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/services"
)

// Exit codes.
const (
	ExitIdentical   = 0
	ExitDifferences = 1
	ExitError       = 2
)

// DefaultTimeout bounds ingestion plus comparison.
const DefaultTimeout = 30 * time.Minute

type flags struct {
	configPath      string
	mappingPath     string
	idColumns       string
	compareColumns  string
	excludeColumns  string
	caseInsensitive bool
	trim            bool
	threshold       float64
	outputFormat    string
	outputFile      string
	sourceQuery     string
	targetQuery     string
	delimiter       string
	nullToken       string
	shards          int
	timeout         time.Duration
}

// outcome is set by a successful run.
type outcome struct {
	differences bool
}

// NewRootCommand builds the datacompare command. Output goes to stdout, logs and errors
// to stderr.
func NewRootCommand(version string, stdout, stderr io.Writer, out *outcome) *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "datacompare [SOURCE TARGET]",
		Short: "Compare two tabular data sources and report their differences",
		Long: `Compare two tabular data sources (CSV, JSON Lines, PostgreSQL, SQL Server).

Columns are matched by name and content, rows are joined on a detected or
supplied identifier key, and every matched row is compared cell by cell.
Sources may also be named in a --mapping file as source1 and source2.

Exit status is 0 when the sources are identical, 1 when differences were
found, and 2 on error.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			differences, err := run(cmd, f, args, version, stdout, stderr)
			if err != nil {
				return err
			}
			out.differences = differences
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to a YAML config file (default: "+config.DefaultConfigFile+" when present)")
	fl.StringVar(&f.mappingPath, "mapping", "", "Path to a JSON or YAML mapping file")
	fl.StringVar(&f.idColumns, "id-columns", "", "Comma-separated source columns forming the row key")
	fl.StringVar(&f.compareColumns, "compare-columns", "", "Comma-separated source columns to compare (default: all mapped)")
	fl.StringVar(&f.excludeColumns, "exclude-columns", "", "Comma-separated source columns to skip")
	fl.BoolVar(&f.caseInsensitive, "case-insensitive", false, "Ignore case when comparing text")
	fl.BoolVar(&f.trim, "trim", false, "Ignore leading and trailing whitespace")
	fl.Float64Var(&f.threshold, "threshold", services.DefaultMappingThreshold, "Minimum similarity for automatic column mapping")
	fl.StringVar(&f.outputFormat, "output-format", string(report.FormatConsole), "Output format: console, json, csv")
	fl.StringVar(&f.outputFile, "output-file", "", "Write the report to this file (default: stdout)")
	fl.StringVar(&f.sourceQuery, "source-query", "", "SQL query or table name for a database SOURCE")
	fl.StringVar(&f.targetQuery, "target-query", "", "SQL query or table name for a database TARGET")
	fl.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter (default from config, usually ',')")
	fl.StringVar(&f.nullToken, "null-token", "", "CSV cell value read as null, e.g. NULL")
	fl.IntVar(&f.shards, "shards", 1, "Partition row comparison across this many workers")
	fl.DurationVar(&f.timeout, "timeout", DefaultTimeout, "Overall time budget for loading and comparing")

	return cmd
}

// Execute runs the command and returns the process exit code.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	out := &outcome{}
	cmd := NewRootCommand(version, stdout, stderr, out)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	if out.differences {
		return ExitDifferences
	}
	return ExitIdentical
}

func run(cmd *cobra.Command, f *flags, args []string, version string, stdout, stderr io.Writer) (bool, error) {
	cfg, err := config.Load(f.configPath, version)
	if err != nil {
		return false, err
	}

	logger, err := buildLogger(cfg.Log, stderr)
	if err != nil {
		return false, err
	}
	defer func() { _ = logger.Sync() }()

	var mf *config.MappingFile
	if f.mappingPath != "" {
		if mf, err = config.LoadMappingFile(f.mappingPath); err != nil {
			return false, err
		}
	}

	sourceLoc, targetLoc, err := resolveLocations(args, mf)
	if err != nil {
		return false, err
	}

	opts := engineOptions(cfg)
	applyMappingFile(&opts, mf)
	applyFlags(cmd, f, &opts)
	if err := opts.Validate(); err != nil {
		return false, err
	}

	format, err := report.ParseFormat(f.outputFormat)
	if err != nil {
		return false, err
	}

	delimiter := cfg.Ingestion.Delimiter
	if cmd.Flags().Changed("delimiter") {
		delimiter = f.delimiter
	}
	nullToken := cfg.Ingestion.NullToken
	if cmd.Flags().Changed("null-token") {
		nullToken = f.nullToken
	}

	ctx := cmd.Context()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	loadOpts := datasource.Options{
		ConnectTimeout: cfg.Datasource.ConnectTimeout(),
		MaxConns:       cfg.Datasource.PoolMaxConns,
		Retry:          retryConfig(cfg),
		Logger:         logger.Named("datasource"),
	}
	specs := [2]datasource.SourceSpec{
		{Location: sourceLoc, Query: f.sourceQuery, Delimiter: delimiter, NullToken: nullToken},
		{Location: targetLoc, Query: f.targetQuery, Delimiter: delimiter, NullToken: nullToken},
	}
	if specs[0].Location == specs[1].Location {
		specs[0].Name = "source"
		specs[1].Name = "target"
	}

	var tables [2]*models.Table
	g, gctx := errgroup.WithContext(ctx)
	for i := range specs {
		g.Go(func() error {
			table, err := datasource.Open(gctx, specs[i], loadOpts)
			if err != nil {
				return fmt.Errorf("load %s: %w", logging.SanitizeConnectionString(specs[i].Location), err)
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, timeoutError(ctx, f.timeout, err)
	}

	result, err := services.NewComparisonService(logger).Compare(ctx, tables[0], tables[1], opts)
	if err != nil {
		return false, timeoutError(ctx, f.timeout, err)
	}

	env := report.NewEnvelope(
		logging.SanitizeConnectionString(sourceLoc),
		logging.SanitizeConnectionString(targetLoc),
		version, result)
	if err := writeReport(format, env, f.outputFile, stdout); err != nil {
		return false, err
	}
	return result.Summary.HasDifferences(), nil
}

// resolveLocations takes sources from the arguments, falling back to the mapping file.
func resolveLocations(args []string, mf *config.MappingFile) (string, string, error) {
	switch {
	case len(args) == 2:
		return args[0], args[1], nil
	case len(args) == 0 && mf != nil:
		return mf.Source1, mf.Source2, nil
	}
	return "", "", fmt.Errorf("%w: SOURCE and TARGET are required (as arguments or in a mapping file)", apperrors.ErrInvalidConfig)
}

func writeReport(format report.Format, env *report.Envelope, path string, stdout io.Writer) (err error) {
	if path == "" {
		return report.Write(stdout, format, env)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()
	return report.Write(file, format, env)
}

// timeoutError names the budget when the overall deadline was the cause.
func timeoutError(ctx context.Context, budget time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("comparison exceeded the %s time budget: %w", budget, err)
	}
	return err
}

// buildLogger creates the zap logger from configuration, writing to stderr.
func buildLogger(cfg config.LogConfig, stderr io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}

	var encCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(stderr), zap.NewAtomicLevelAt(level))
	return zap.New(core), nil
}
