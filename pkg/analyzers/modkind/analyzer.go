package modkind

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/dataset"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/importmodel"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/observability"
)

// Span names.
const (
	SpanLoad      = "esmstat.load"
	SpanAggregate = "esmstat.aggregate"
	SpanRender    = "esmstat.render"
)

// Analyzer loads a dataset and aggregates it. Zero-value dependencies fall
// back to no-op implementations.
type Analyzer struct {
	Options Options
	Load    dataset.Options

	Tracer  trace.Tracer
	Metrics *observability.ImportMetrics
	Logger  *slog.Logger
}

// Name returns the name of the analyzer.
func (a *Analyzer) Name() string {
	return "modkind"
}

// Description returns a human-readable description of the analyzer.
func (a *Analyzer) Description() string {
	return "Counts ESM and CJS imports in a precomputed import classification dataset"
}

// Run loads the dataset at path and aggregates it.
func (a *Analyzer) Run(ctx context.Context, path string) (Summary, error) {
	start := time.Now()
	tracer := a.tracer()

	loadCtx, span := tracer.Start(ctx, SpanLoad, trace.WithAttributes(attribute.String("dataset.path", path)))

	loadOpts := a.Load
	if loadOpts.Logger == nil {
		loadOpts.Logger = a.logger()
	}

	ds, stats, err := dataset.Load(loadCtx, path, loadOpts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		span.End()

		return Summary{}, err
	}

	span.SetAttributes(
		attribute.Int("dataset.bytes", stats.Bytes),
		attribute.Bool("dataset.compressed", stats.Compressed),
		attribute.Int("dataset.files", stats.RecordsReturned),
		attribute.Int("dataset.unknown_esm_imports", stats.UnknownEsmImports),
	)
	span.End()

	a.logger().DebugContext(ctx, "dataset loaded",
		"path", path,
		"bytes", stats.Bytes,
		"encoding", string(stats.Encoding),
		"compressed", stats.Compressed,
		"files", stats.RecordsReturned,
		"dropped_records", stats.DroppedRecords,
		"dropped_imports", stats.DroppedImports,
		"unknown_esm_imports", stats.UnknownEsmImports,
	)

	summary, err := a.Aggregate(ctx, ds)
	if err != nil {
		return Summary{}, err
	}

	if a.Metrics != nil {
		a.Metrics.RecordRun(ctx, summary.RunStats(time.Since(start)))
	}

	return summary, nil
}

// Aggregate runs the aggregation pass inside a span.
func (a *Analyzer) Aggregate(ctx context.Context, ds importmodel.Dataset) (Summary, error) {
	ctx, span := a.tracer().Start(ctx, SpanAggregate, trace.WithAttributes(attribute.Int("workers", a.Options.Workers)))
	defer span.End()

	summary, err := Aggregate(ctx, ds, a.Options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")

		return Summary{}, err
	}

	span.SetAttributes(
		attribute.Int64("imports.total", summary.TotalImports),
		attribute.Int64("imports.counted", summary.Counters.Total()),
		attribute.Int64("imports.excluded", summary.Excluded.Total()),
	)

	a.logger().DebugContext(ctx, "dataset aggregated",
		"files", summary.Files,
		"imports", summary.TotalImports,
		"counted", summary.Counters.Total(),
		"excluded", summary.Excluded.Total(),
	)

	return summary, nil
}

func (a *Analyzer) tracer() trace.Tracer {
	if a.Tracer == nil {
		return nooptrace.NewTracerProvider().Tracer("")
	}

	return a.Tracer
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}

	return a.Logger
}

// RunStats converts the summary to the metrics view.
func (s Summary) RunStats(duration time.Duration) observability.RunStats {
	c := s.Counters

	return observability.RunStats{
		Classified: []observability.ClassifiedCount{
			{Category: string(importmodel.TypePackageEntryPoint), Kind: "esm", Count: c.ESMPackageEntryPoints},
			{Category: string(importmodel.TypePackageEntryPoint), Kind: "cjs", Count: c.CJSPackageEntryPoints},
			{Category: string(importmodel.TypePackageDeepImport), Kind: "esm", Count: c.ESMPackageDeepImports},
			{Category: string(importmodel.TypePackageDeepImport), Kind: "cjs", Count: c.CJSPackageDeepImports},
			{Category: string(importmodel.TypeFile), Kind: "esm", Count: c.ESMFiles},
			{Category: string(importmodel.TypeFile), Kind: "cjs", Count: c.CJSFiles},
		},
		Excluded: map[string]int64{
			ExcludedUnresolved.String():       s.Excluded.Unresolved,
			ExcludedUnrecognizedType.String(): s.Excluded.UnrecognizedType,
			ExcludedIndeterminate.String():    s.Excluded.Indeterminate,
		},
		Files:    s.Files,
		Duration: duration,
	}
}
