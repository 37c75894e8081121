package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/analyzers/modkind"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/config"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/dataset"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/observability"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/version"
)

const (
	flagConfig          = "config"
	flagFormat          = "format"
	flagWorkers         = "workers"
	flagLegacyPackage   = "legacy-package"
	flagLenient         = "lenient"
	flagValidateSchema  = "validate-schema"
	flagMetricsTextfile = "metrics-textfile"
)

// analyzeRunner holds flag values for one analyze invocation.
type analyzeRunner struct {
	configPath      string
	format          string
	workers         int
	legacyPackage   bool
	lenient         bool
	validateSchema  bool
	metricsTextfile string
}

func newAnalyzeRunner() *analyzeRunner {
	return &analyzeRunner{}
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	runner := newAnalyzeRunner()

	cmd := &cobra.Command{
		Use:   "analyze [dataset]",
		Short: "Count ESM and CommonJS imports in a dataset",
		Long: `Count ESM and CommonJS imports in a precomputed import classification dataset.

The dataset maps each importing file to its import sources. JSON and YAML are
accepted, optionally LZ4 compressed (results.json.lz4). Without an argument the
configured input, results.json by default, is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runner.run,
	}

	runner.bindFlags(cmd)

	return cmd
}

func (ar *analyzeRunner) bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVar(&ar.configPath, flagConfig, "", "Config file path (default: .esmstat.yaml)")
	flags.StringVar(&ar.format, flagFormat, config.DefaultFormat, "Output format: text, table, json, yaml, plot")
	flags.IntVar(&ar.workers, flagWorkers, config.DefaultWorkers, "Number of parallel aggregation workers")
	flags.BoolVar(&ar.legacyPackage, flagLegacyPackage, config.DefaultLegacyPackageAlias,
		`Count the legacy "package" type as a package entry point`)
	flags.BoolVar(&ar.lenient, flagLenient, config.DefaultLenient, "Drop malformed records instead of failing")
	flags.BoolVar(&ar.validateSchema, flagValidateSchema, config.DefaultValidateSchema,
		"Validate the dataset against the embedded JSON schema before decoding")
	flags.StringVar(&ar.metricsTextfile, flagMetricsTextfile, "",
		"Write run metrics in Prometheus text format to this file")
}

func (ar *analyzeRunner) run(cmd *cobra.Command, args []string) error {
	cfg, err := ar.resolveConfig(cmd.Flags(), args)
	if err != nil {
		return err
	}

	err = modkind.ValidateFormat(cfg.Format)
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, observability.ModeCLI, cfg.MetricsTextfile != "")
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	importMetrics, err := observability.NewImportMetrics(providers.Meter)
	if err != nil {
		return err
	}

	analyzer := &modkind.Analyzer{
		Options: modkind.Options{
			Policy:  modkind.Policy{LegacyPackageAlias: cfg.LegacyPackageAlias},
			Workers: cfg.Workers,
		},
		Load: dataset.Options{
			Lenient:        cfg.Lenient,
			ValidateSchema: cfg.ValidateSchema,
			Logger:         providers.Logger,
		},
		Tracer:  providers.Tracer,
		Metrics: importMetrics,
		Logger:  providers.Logger,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, err := analyzer.Run(ctx, cfg.Input)
	if err != nil {
		return err
	}

	err = renderReport(ctx, cmd, providers, cfg, summary)
	if err != nil {
		return err
	}

	if cfg.MetricsTextfile != "" {
		err = providers.WriteMetricsTextfile(cfg.MetricsTextfile)
		if err != nil {
			return err
		}
	}

	return nil
}

// resolveConfig loads the config file and applies explicitly set flags on top.
func (ar *analyzeRunner) resolveConfig(flags *pflag.FlagSet, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(ar.configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Input = args[0]
	}

	if flags.Changed(flagFormat) {
		cfg.Format = ar.format
	}

	if flags.Changed(flagWorkers) {
		cfg.Workers = ar.workers
	}

	if flags.Changed(flagLegacyPackage) {
		cfg.LegacyPackageAlias = ar.legacyPackage
	}

	if flags.Changed(flagLenient) {
		cfg.Lenient = ar.lenient
	}

	if flags.Changed(flagValidateSchema) {
		cfg.ValidateSchema = ar.validateSchema
	}

	if flags.Changed(flagMetricsTextfile) {
		cfg.MetricsTextfile = ar.metricsTextfile
	}

	err = config.Validate(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func renderReport(
	ctx context.Context,
	cmd *cobra.Command,
	providers observability.Providers,
	cfg *config.Config,
	summary modkind.Summary,
) error {
	_, span := providers.Tracer.Start(ctx, modkind.SpanRender)
	defer span.End()

	span.SetAttributes(attribute.String("report.format", cfg.Format))

	err := modkind.Render(cmd.OutOrStdout(), cfg.Format, cfg.Input, summary)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")

		return err
	}

	return nil
}

// initObservability builds providers from config, with -v/-q and the standard
// OTEL_EXPORTER_OTLP_* variables layered on top.
func initObservability(
	cmd *cobra.Command,
	cfg *config.Config,
	mode observability.AppMode,
	prometheus bool,
) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.Prometheus = prometheus
	obsCfg.LogLevel = cfg.Logging.SlogLevel()
	obsCfg.LogJSON = cfg.Logging.JSON()
	obsCfg.LogWriter = cmd.ErrOrStderr()

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		obsCfg.OTLPInsecure = obsCfg.OTLPInsecure || os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	}

	if level, ok := verbosityOverride(cmd); ok {
		obsCfg.LogLevel = level
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}
