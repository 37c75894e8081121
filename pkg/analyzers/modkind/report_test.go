package modkind_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/analyzers/modkind"
)

func TestFormatReport_Scenario(t *testing.T) {
	t.Parallel()

	summary, err := modkind.Aggregate(context.Background(), scenarioDataset(), modkind.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, modkind.Render(&buf, modkind.FormatText, "results.json", summary))

	want := "Analyzing results.json...\n" +
		"ESM package entry points imported:       1\n" +
		"CJS package entry points imported:       1\n" +
		"ESM package deep imports:       0\n" +
		"CJS package deep imports:       1\n" +
		"ESM files imported:       0\n" +
		"CJS files imported:       1\n"

	assert.Equal(t, want, buf.String())
}

func TestFormatReport_GroupsThousands(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	counters := modkind.Counters{
		ESMPackageEntryPoints: 1234,
		CJSPackageEntryPoints: 1234567,
		ESMFiles:              12345678,
	}

	require.NoError(t, modkind.FormatReport(&buf, "data.json", counters))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "ESM package entry points imported:   1,234", lines[1])
	assert.Equal(t, "CJS package entry points imported: 1,234,567", lines[2])
	assert.Equal(t, "ESM files imported: 12,345,678", lines[5])
}

func TestRender_JSONAndYAML(t *testing.T) {
	t.Parallel()

	summary, err := modkind.Aggregate(context.Background(), scenarioDataset(), modkind.Options{})
	require.NoError(t, err)

	var jsonBuf bytes.Buffer

	require.NoError(t, modkind.Render(&jsonBuf, modkind.FormatJSON, "results.json", summary))

	var decoded modkind.Summary

	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, summary, decoded)
	assert.Contains(t, jsonBuf.String(), `"esm_package_entry_points_imported": 1`)

	var yamlBuf bytes.Buffer

	require.NoError(t, modkind.Render(&yamlBuf, modkind.FormatYAML, "results.json", summary))

	var fromYAML modkind.Summary

	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))
	assert.Equal(t, summary.Counters, fromYAML.Counters)
	assert.Equal(t, summary.Excluded, fromYAML.Excluded)
}

func TestRender_Table(t *testing.T) {
	t.Parallel()

	summary, err := modkind.Aggregate(context.Background(), scenarioDataset(), modkind.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, modkind.Render(&buf, modkind.FormatTable, "results.json", summary))

	out := buf.String()
	assert.Contains(t, out, "Package entry points")
	assert.Contains(t, out, "Package deep imports")
	assert.Contains(t, out, "Excluded: unresolved")
	assert.Contains(t, out, "1 files")
	assert.Contains(t, out, "5 imports")
	assert.NotContains(t, out, "IMPORTS")
}

//nolint:paralleltest // mutates COLUMNS.
func TestRender_TableHonoursColumns(t *testing.T) {
	summary, err := modkind.Aggregate(context.Background(), scenarioDataset(), modkind.Options{})
	require.NoError(t, err)

	var wide, narrow bytes.Buffer

	t.Setenv("COLUMNS", "not-a-number")
	require.NoError(t, modkind.Render(&wide, modkind.FormatTable, "results.json", summary))

	t.Setenv("COLUMNS", "30")
	require.NoError(t, modkind.Render(&narrow, modkind.FormatTable, "results.json", summary))

	assert.Less(t, narrow.Len(), wide.Len())
}

func TestRender_Plot(t *testing.T) {
	t.Parallel()

	summary, err := modkind.Aggregate(context.Background(), scenarioDataset(), modkind.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, modkind.Render(&buf, modkind.FormatPlot, "results.json", summary))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "ESM vs CJS imports")
	assert.Contains(t, out, "Classified vs excluded")
}

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) { return 0, errors.New("disk full") }

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := modkind.Render(&buf, "xml", "results.json", modkind.Summary{})
	require.ErrorIs(t, err, modkind.ErrUnsupportedFormat)
	assert.Empty(t, buf.String())

	err = modkind.Render(failingWriter{}, modkind.FormatText, "results.json", modkind.Summary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	require.NoError(t, modkind.ValidateFormat(modkind.FormatPlot))
}
