package modkind_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/analyzers/modkind"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/importmodel"
)

func scenarioDataset() importmodel.Dataset {
	return importmodel.Dataset{
		"a.js": {ImportSources: map[string]importmodel.ImportInfo{
			"lodash":     {Type: importmodel.TypePackageEntryPoint, IsEsm: importmodel.EsmTrue},
			"./b.js":     {Type: importmodel.TypeFile, IsEsm: importmodel.EsmFalse, IsCjs: true},
			"pkg/sub":    {Type: importmodel.TypePackageDeepImport, IsEsm: importmodel.EsmFalse, IsCjs: true},
			"unknownpkg": {Type: importmodel.TypePackageEntryPoint, IsEsm: importmodel.EsmFalse},
			"ghost":      {Type: importmodel.TypeFile, Unresolved: true},
		}},
	}
}

var importTypes = []importmodel.ImportType{
	importmodel.TypePackageEntryPoint,
	importmodel.TypePackageDeepImport,
	importmodel.TypeFile,
	importmodel.TypeLegacyPackage,
	"builtin",
}

var esmFlags = []importmodel.EsmFlag{importmodel.EsmUnknown, importmodel.EsmTrue, importmodel.EsmFalse}

func generatedDataset(files, importsPerFile int) importmodel.Dataset {
	rng := rand.New(rand.NewPCG(7, 11)) //nolint:gosec // deterministic fixture.
	exts := []string{".js", ".mjs", ".cjs", ".ts"}
	ds := make(importmodel.Dataset, files)

	for i := range files {
		sources := make(map[string]importmodel.ImportInfo, importsPerFile)
		for j := range importsPerFile {
			sources[fmt.Sprintf("dep-%d", j)] = importmodel.ImportInfo{
				Type:       importTypes[rng.IntN(len(importTypes))],
				IsEsm:      esmFlags[rng.IntN(len(esmFlags))],
				IsCjs:      rng.IntN(2) == 0,
				Unresolved: rng.IntN(10) == 0,
			}
		}

		ds[fmt.Sprintf("src/file-%03d%s", i, exts[i%len(exts)])] = importmodel.FileRecord{ImportSources: sources}
	}

	return ds
}

func TestAggregate_Scenario(t *testing.T) {
	t.Parallel()

	summary, err := modkind.Aggregate(context.Background(), scenarioDataset(), modkind.Options{})
	require.NoError(t, err)

	assert.Equal(t, modkind.Counters{
		ESMPackageEntryPoints: 1,
		CJSPackageEntryPoints: 1,
		ESMPackageDeepImports: 0,
		CJSPackageDeepImports: 1,
		ESMFiles:              0,
		CJSFiles:              1,
	}, summary.Counters)
	assert.Equal(t, int64(4), summary.Counters.Total())
	assert.Equal(t, int64(5), summary.TotalImports)
	assert.Equal(t, int64(1), summary.Excluded.Unresolved)
	assert.Equal(t, int64(1), summary.Files)
	assert.Equal(t, summary.Counters, summary.Languages["JavaScript"])
}

func TestAggregate_SumInvariant(t *testing.T) {
	t.Parallel()

	ds := generatedDataset(120, 15)

	summary, err := modkind.Aggregate(context.Background(), ds, modkind.Options{})
	require.NoError(t, err)

	assert.Equal(t, int64(ds.ImportCount()), summary.TotalImports)
	assert.LessOrEqual(t, summary.Counters.Total(), summary.TotalImports)
	assert.Equal(t, summary.TotalImports-summary.Counters.Total(), summary.Excluded.Total())

	var langTotal modkind.Counters
	for _, counters := range summary.Languages {
		langTotal.Merge(counters)
	}

	assert.Equal(t, summary.Counters, langTotal)
}

func TestAggregate_EntryPointTotalityAndConservatism(t *testing.T) {
	t.Parallel()

	ds := generatedDataset(60, 20)

	var entryPoints, indeterminate int64

	for _, record := range ds {
		for _, info := range record.ImportSources {
			if info.Unresolved {
				continue
			}

			switch info.Type {
			case importmodel.TypePackageEntryPoint:
				entryPoints++
			case importmodel.TypePackageDeepImport, importmodel.TypeFile:
				if info.IsEsm != importmodel.EsmTrue && !(info.IsEsm == importmodel.EsmFalse && info.IsCjs) {
					indeterminate++
				}
			}
		}
	}

	summary, err := modkind.Aggregate(context.Background(), ds, modkind.Options{})
	require.NoError(t, err)

	c := summary.Counters
	assert.Equal(t, entryPoints, c.ESMPackageEntryPoints+c.CJSPackageEntryPoints)
	assert.Equal(t, indeterminate, summary.Excluded.Indeterminate)
}

func TestAggregate_ExclusivityPerImport(t *testing.T) {
	t.Parallel()

	for _, typ := range importTypes {
		for _, flag := range esmFlags {
			for _, isCjs := range []bool{false, true} {
				for _, unresolved := range []bool{false, true} {
					ds := importmodel.Dataset{"x.js": {ImportSources: map[string]importmodel.ImportInfo{
						"dep": {Type: typ, IsEsm: flag, IsCjs: isCjs, Unresolved: unresolved},
					}}}

					summary, err := modkind.Aggregate(context.Background(), ds, modkind.Options{})
					require.NoError(t, err)
					assert.Equal(t, int64(1), summary.Counters.Total()+summary.Excluded.Total(),
						"type=%s isEsm=%s isCjs=%v unresolved=%v", typ, flag, isCjs, unresolved)
				}
			}
		}
	}
}

func TestAggregate_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	ds := generatedDataset(257, 9)
	policy := modkind.Policy{LegacyPackageAlias: true}

	sequential, err := modkind.Aggregate(context.Background(), ds, modkind.Options{Policy: policy})
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8, 1000} {
		parallel, parErr := modkind.Aggregate(context.Background(), ds, modkind.Options{Policy: policy, Workers: workers})
		require.NoError(t, parErr)
		assert.Equal(t, sequential, parallel, "workers=%d", workers)
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	t.Parallel()

	ds := generatedDataset(40, 10)

	first, err := modkind.Aggregate(context.Background(), ds, modkind.Options{})
	require.NoError(t, err)

	second, err := modkind.Aggregate(context.Background(), ds, modkind.Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_DoesNotMutateDataset(t *testing.T) {
	t.Parallel()

	ds := scenarioDataset()
	before := ds["a.js"].ImportSources["lodash"]

	_, err := modkind.Aggregate(context.Background(), ds, modkind.Options{Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, before, ds["a.js"].ImportSources["lodash"])
	assert.Len(t, ds["a.js"].ImportSources, 5)
}

func TestAggregate_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := modkind.Aggregate(ctx, generatedDataset(10, 2), modkind.Options{})
	require.ErrorIs(t, err, context.Canceled)

	_, err = modkind.Aggregate(ctx, generatedDataset(10, 2), modkind.Options{Workers: 3})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	summary, err := modkind.Aggregate(context.Background(), importmodel.Dataset{}, modkind.Options{Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, modkind.Counters{}, summary.Counters)
	assert.Zero(t, summary.TotalImports)
	assert.Empty(t, summary.Languages)
}

func TestCounters_AddGetMerge(t *testing.T) {
	t.Parallel()

	var a, b modkind.Counters

	for _, bucket := range modkind.Buckets {
		a.Add(bucket)
		b.Add(bucket)
		b.Add(bucket)
	}

	a.Add(modkind.BucketNone)
	a.Merge(b)

	for _, bucket := range modkind.Buckets {
		assert.Equal(t, int64(3), a.Get(bucket), bucket.String())
	}

	assert.Equal(t, int64(18), a.Total())
	assert.Zero(t, a.Get(modkind.BucketNone))
}
