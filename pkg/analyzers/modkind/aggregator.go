package modkind

import (
	"context"
	"fmt"
	"path"
	"slices"

	"github.com/src-d/enry/v2"
	"golang.org/x/sync/errgroup"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/importmodel"
)

// OtherLanguage groups files whose language could not be detected from the name.
const OtherLanguage = "Other"

// Counters holds the six corpus-wide counts.
type Counters struct {
	ESMPackageEntryPoints int64 `json:"esm_package_entry_points_imported" yaml:"esm_package_entry_points_imported"`
	CJSPackageEntryPoints int64 `json:"cjs_package_entry_points_imported" yaml:"cjs_package_entry_points_imported"`
	ESMPackageDeepImports int64 `json:"esm_package_deep_imports"          yaml:"esm_package_deep_imports"`
	CJSPackageDeepImports int64 `json:"cjs_package_deep_imports"          yaml:"cjs_package_deep_imports"`
	ESMFiles              int64 `json:"esm_files_imported"                yaml:"esm_files_imported"`
	CJSFiles              int64 `json:"cjs_files_imported"                yaml:"cjs_files_imported"`
}

// Add increments the counter for bucket. BucketNone is a no-op.
func (c *Counters) Add(bucket Bucket) {
	if field := c.field(bucket); field != nil {
		*field++
	}
}

// Get returns the value of the counter for bucket.
func (c Counters) Get(bucket Bucket) int64 {
	if field := c.field(bucket); field != nil {
		return *field
	}

	return 0
}

// Merge adds other into c.
func (c *Counters) Merge(other Counters) {
	for _, bucket := range Buckets {
		*c.field(bucket) += other.Get(bucket)
	}
}

// Total is the number of counted imports.
func (c Counters) Total() int64 {
	var total int64

	for _, bucket := range Buckets {
		total += c.Get(bucket)
	}

	return total
}

func (c *Counters) field(bucket Bucket) *int64 {
	switch bucket {
	case BucketESMEntryPoint:
		return &c.ESMPackageEntryPoints
	case BucketCJSEntryPoint:
		return &c.CJSPackageEntryPoints
	case BucketESMDeepImport:
		return &c.ESMPackageDeepImports
	case BucketCJSDeepImport:
		return &c.CJSPackageDeepImports
	case BucketESMFile:
		return &c.ESMFiles
	case BucketCJSFile:
		return &c.CJSFiles
	case BucketNone:
		return nil
	default:
		return nil
	}
}

// Exclusions tallies imports that contributed to no counter.
type Exclusions struct {
	Unresolved       int64 `json:"unresolved"        yaml:"unresolved"`
	UnrecognizedType int64 `json:"unrecognized_type" yaml:"unrecognized_type"`
	Indeterminate    int64 `json:"indeterminate"     yaml:"indeterminate"`
}

// Add records one exclusion.
func (e *Exclusions) Add(reason Exclusion) {
	switch reason {
	case ExcludedUnresolved:
		e.Unresolved++
	case ExcludedUnrecognizedType:
		e.UnrecognizedType++
	case ExcludedIndeterminate:
		e.Indeterminate++
	case NotExcluded:
	}
}

// Total is the number of excluded imports.
func (e Exclusions) Total() int64 {
	return e.Unresolved + e.UnrecognizedType + e.Indeterminate
}

// Summary is the complete result of one aggregation pass.
// Counters.Total() + Excluded.Total() always equals TotalImports.
type Summary struct {
	Counters     Counters            `json:"counters"     yaml:"counters"`
	Excluded     Exclusions          `json:"excluded"     yaml:"excluded"`
	Languages    map[string]Counters `json:"languages"    yaml:"languages"`
	Files        int64               `json:"files"        yaml:"files"`
	TotalImports int64               `json:"total_imports" yaml:"total_imports"`
}

// Aggregator accumulates classification outcomes. It is not safe for
// concurrent use; parallel passes give each worker its own Aggregator.
type Aggregator struct {
	policy  Policy
	summary Summary
}

// NewAggregator creates an Aggregator applying policy.
func NewAggregator(policy Policy) *Aggregator {
	return &Aggregator{
		policy:  policy,
		summary: Summary{Languages: make(map[string]Counters)},
	}
}

// AddFile classifies every import of one file record.
func (a *Aggregator) AddFile(fileID string, record importmodel.FileRecord) {
	a.summary.Files++

	lang := languageOf(fileID)
	langCounters := a.summary.Languages[lang]

	for _, info := range record.ImportSources {
		a.summary.TotalImports++

		outcome := Classify(info, a.policy)
		if !outcome.Counted() {
			a.summary.Excluded.Add(outcome.Excluded)

			continue
		}

		a.summary.Counters.Add(outcome.Bucket)
		langCounters.Add(outcome.Bucket)
	}

	a.summary.Languages[lang] = langCounters
}

// Merge folds another partial summary into this aggregator by summation.
func (a *Aggregator) Merge(other Summary) {
	a.summary.Counters.Merge(other.Counters)
	a.summary.Excluded.Unresolved += other.Excluded.Unresolved
	a.summary.Excluded.UnrecognizedType += other.Excluded.UnrecognizedType
	a.summary.Excluded.Indeterminate += other.Excluded.Indeterminate
	a.summary.Files += other.Files
	a.summary.TotalImports += other.TotalImports

	for lang, counters := range other.Languages {
		merged := a.summary.Languages[lang]
		merged.Merge(counters)
		a.summary.Languages[lang] = merged
	}
}

// Result returns the accumulated summary. The aggregator must not be used afterwards.
func (a *Aggregator) Result() Summary {
	return a.summary
}

// Options controls an aggregation pass.
type Options struct {
	Policy Policy

	// Workers above one splits the dataset into that many partitions.
	Workers int
}

// Aggregate classifies every import in ds and returns the summary. The dataset
// is only read.
func Aggregate(ctx context.Context, ds importmodel.Dataset, opts Options) (Summary, error) {
	if opts.Workers <= 1 || len(ds) < 2 {
		return aggregateKeys(ctx, ds, nil, opts.Policy)
	}

	keys := make([]string, 0, len(ds))
	for key := range ds {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	parts := partition(keys, opts.Workers)
	partials := make([]Summary, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for idx, part := range parts {
		g.Go(func() error {
			partial, err := aggregateKeys(gctx, ds, part, opts.Policy)
			if err != nil {
				return err
			}

			partials[idx] = partial

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return Summary{}, err
	}

	total := NewAggregator(opts.Policy)
	for _, partial := range partials {
		total.Merge(partial)
	}

	return total.Result(), nil
}

// aggregateKeys walks the given keys, or the whole dataset when keys is nil.
func aggregateKeys(ctx context.Context, ds importmodel.Dataset, keys []string, policy Policy) (Summary, error) {
	agg := NewAggregator(policy)

	visit := func(fileID string, record importmodel.FileRecord) error {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}

		agg.AddFile(fileID, record)

		return nil
	}

	if keys == nil {
		for fileID, record := range ds {
			err := visit(fileID, record)
			if err != nil {
				return Summary{}, err
			}
		}

		return agg.Result(), nil
	}

	for _, fileID := range keys {
		err := visit(fileID, ds[fileID])
		if err != nil {
			return Summary{}, err
		}
	}

	return agg.Result(), nil
}

// partition splits keys into at most n contiguous, near-equal chunks.
func partition(keys []string, n int) [][]string {
	if n > len(keys) {
		n = len(keys)
	}

	parts := make([][]string, 0, n)
	size := len(keys) / n
	extra := len(keys) % n
	start := 0

	for i := range n {
		end := start + size
		if i < extra {
			end++
		}

		parts = append(parts, keys[start:end])
		start = end
	}

	return parts
}

func languageOf(fileID string) string {
	lang, _ := enry.GetLanguageByExtension(path.Base(fileID))
	if lang == "" {
		return OtherLanguage
	}

	return lang
}
