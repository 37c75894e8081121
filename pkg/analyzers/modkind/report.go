package modkind

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatPlot  = "plot"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatTable, FormatJSON, FormatYAML, FormatPlot}

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// valueWidth is the minimum width the grouped counter values are padded to.
const valueWidth = 7

// minTableWidth is the narrowest COLUMNS value the table is clipped to.
const minTableWidth = 20

var reportLabels = []struct {
	label  string
	bucket Bucket
}{
	{"ESM package entry points imported:", BucketESMEntryPoint},
	{"CJS package entry points imported:", BucketCJSEntryPoint},
	{"ESM package deep imports:", BucketESMDeepImport},
	{"CJS package deep imports:", BucketCJSDeepImport},
	{"ESM files imported:", BucketESMFile},
	{"CJS files imported:", BucketCJSFile},
}

// ValidateFormat checks that format is one of Formats.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedFormat, format, Formats)
	}

	return nil
}

// Render writes the summary in the given format. Output is buffered and written
// in one piece so a failure never leaves a partial report behind.
func Render(w io.Writer, format, input string, summary Summary) error {
	var buf bytes.Buffer

	var err error

	switch format {
	case FormatText:
		err = FormatReport(&buf, input, summary.Counters)
	case FormatTable:
		err = FormatReportTable(&buf, input, summary)
	case FormatJSON:
		err = FormatReportJSON(&buf, summary)
	case FormatYAML:
		err = FormatReportYAML(&buf, summary)
	case FormatPlot:
		err = FormatReportPlot(&buf, input, summary)
	default:
		err = ValidateFormat(format)
	}

	if err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// FormatReport writes the fixed six-line report preceded by the "Analyzing" line.
func FormatReport(w io.Writer, input string, counters Counters) error {
	_, err := fmt.Fprintf(w, "Analyzing %s...\n", input)
	if err != nil {
		return fmt.Errorf("formatreport: %w", err)
	}

	for _, line := range reportLabels {
		_, err = fmt.Fprintf(w, "%s %*s\n", line.label, valueWidth, humanize.Comma(counters.Get(line.bucket)))
		if err != nil {
			return fmt.Errorf("formatreport: %w", err)
		}
	}

	return nil
}

// FormatReportTable writes the counters as a table with ESM and CJS columns.
func FormatReportTable(w io.Writer, input string, summary Summary) error {
	c := summary.Counters

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetTitle(input)

	if width := terminalWidth(); width > 0 {
		tbl.SetAllowedRowLength(width)
	}

	tbl.AppendHeader(table.Row{"Category", "ESM", "CJS", "Total"})

	rows := []struct {
		name     string
		esm, cjs int64
	}{
		{"Package entry points", c.ESMPackageEntryPoints, c.CJSPackageEntryPoints},
		{"Package deep imports", c.ESMPackageDeepImports, c.CJSPackageDeepImports},
		{"Files", c.ESMFiles, c.CJSFiles},
	}

	for _, row := range rows {
		tbl.AppendRow(table.Row{row.name, humanize.Comma(row.esm), humanize.Comma(row.cjs), humanize.Comma(row.esm + row.cjs)})
	}

	tbl.AppendSeparator()
	tbl.AppendRow(table.Row{"Excluded: unresolved", "", "", humanize.Comma(summary.Excluded.Unresolved)})
	tbl.AppendRow(table.Row{"Excluded: unrecognized type", "", "", humanize.Comma(summary.Excluded.UnrecognizedType)})
	tbl.AppendRow(table.Row{"Excluded: indeterminate", "", "", humanize.Comma(summary.Excluded.Indeterminate)})
	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%s files", humanize.Comma(summary.Files)), "", "",
		fmt.Sprintf("%s imports", humanize.Comma(summary.TotalImports)),
	})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("formatreporttable: %w", err)
	}

	return nil
}

// terminalWidth returns COLUMNS when it holds a usable width, otherwise 0 (unlimited).
func terminalWidth() int {
	width, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || width < minTableWidth {
		return 0
	}

	return width
}

// FormatReportJSON writes the summary as indented JSON.
func FormatReportJSON(w io.Writer, summary Summary) error {
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("formatreportjson: %w", err)
	}

	_, err = fmt.Fprintln(w, string(jsonData))
	if err != nil {
		return fmt.Errorf("formatreportjson: %w", err)
	}

	return nil
}

// FormatReportYAML writes the summary as YAML.
func FormatReportYAML(w io.Writer, summary Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("formatreportyaml: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("formatreportyaml: %w", err)
	}

	return nil
}
