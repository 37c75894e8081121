package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricClassifiedTotal = "esmstat.imports.classified.total"
	metricExcludedTotal   = "esmstat.imports.excluded.total"
	metricFilesTotal      = "esmstat.files.total"
	metricRunDuration     = "esmstat.run.duration.seconds"

	attrCategory = "category"
	attrKind     = "kind"
	attrReason   = "reason"
)

// ClassifiedCount is one counter of the report: how many imports of a category
// resolved to a module kind.
type ClassifiedCount struct {
	Category string
	Kind     string
	Count    int64
}

// RunStats holds the totals of a single aggregation pass, decoupled from the
// aggregator's types.
type RunStats struct {
	Classified []ClassifiedCount
	Excluded   map[string]int64
	Files      int64
	Duration   time.Duration
}

// ImportMetrics holds OTel instruments for classification results.
type ImportMetrics struct {
	classified  metric.Int64Counter
	excluded    metric.Int64Counter
	files       metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewImportMetrics creates classification instruments from the given meter.
func NewImportMetrics(mt metric.Meter) (*ImportMetrics, error) {
	classified, err := mt.Int64Counter(metricClassifiedTotal,
		metric.WithDescription("Imports counted by category and module kind"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricClassifiedTotal, err)
	}

	excluded, err := mt.Int64Counter(metricExcludedTotal,
		metric.WithDescription("Imports excluded from counting by reason"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExcludedTotal, err)
	}

	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("File records aggregated"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	runDuration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Load plus aggregation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	return &ImportMetrics{
		classified:  classified,
		excluded:    excluded,
		files:       files,
		runDuration: runDuration,
	}, nil
}

// RecordRun records the totals of one aggregation pass.
func (im *ImportMetrics) RecordRun(ctx context.Context, stats RunStats) {
	for _, c := range stats.Classified {
		im.classified.Add(ctx, c.Count, metric.WithAttributes(
			attribute.String(attrCategory, c.Category),
			attribute.String(attrKind, c.Kind),
		))
	}

	for reason, count := range stats.Excluded {
		im.excluded.Add(ctx, count, metric.WithAttributes(attribute.String(attrReason, reason)))
	}

	im.files.Add(ctx, stats.Files)
	im.runDuration.Record(ctx, stats.Duration.Seconds())
}
