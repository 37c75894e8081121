package modkind

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	plotWidth      = "900px"
	plotHeight     = "420px"
	plotPieRadius  = "60%"
	colorESM       = "#5470c6"
	colorCJS       = "#fac858"
	colorExcluded  = "#9a9a9a"
	plotPageSuffix = " - module kinds"
)

var plotCategories = []string{"Package entry points", "Package deep imports", "Files"}

// FormatReportPlot writes a standalone HTML page charting the summary.
func FormatReportPlot(w io.Writer, input string, summary Summary) error {
	page := components.NewPage()
	page.PageTitle = input + plotPageSuffix

	page.AddCharts(
		buildKindBarChart(input, summary.Counters),
		buildCoveragePie(summary),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("formatreportplot: %w", err)
	}

	return nil
}

func buildKindBarChart(input string, c Counters) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: plotWidth, Height: plotHeight}),
		charts.WithTitleOpts(opts.Title{Title: "ESM vs CJS imports", Subtitle: input}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	esm := []opts.BarData{
		{Value: c.ESMPackageEntryPoints},
		{Value: c.ESMPackageDeepImports},
		{Value: c.ESMFiles},
	}
	cjs := []opts.BarData{
		{Value: c.CJSPackageEntryPoints},
		{Value: c.CJSPackageDeepImports},
		{Value: c.CJSFiles},
	}

	bar.SetXAxis(plotCategories).
		AddSeries("ESM", esm, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorESM})).
		AddSeries("CJS", cjs, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorCJS}))

	return bar
}

func buildCoveragePie(summary Summary) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: plotWidth, Height: plotHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Classified vs excluded",
			Subtitle: fmt.Sprintf("%d imports in %d files", summary.TotalImports, summary.Files),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)

	esm := summary.Counters.ESMPackageEntryPoints + summary.Counters.ESMPackageDeepImports + summary.Counters.ESMFiles
	cjs := summary.Counters.Total() - esm

	data := []opts.PieData{
		{Name: "ESM", Value: esm, ItemStyle: &opts.ItemStyle{Color: colorESM}},
		{Name: "CJS", Value: cjs, ItemStyle: &opts.ItemStyle{Color: colorCJS}},
		{Name: "Unresolved", Value: summary.Excluded.Unresolved, ItemStyle: &opts.ItemStyle{Color: colorExcluded}},
		{Name: "Unrecognized type", Value: summary.Excluded.UnrecognizedType},
		{Name: "Indeterminate", Value: summary.Excluded.Indeterminate},
	}

	pie.AddSeries("Imports", data).
		SetSeriesOptions(
			charts.WithPieChartOpts(opts.PieChart{Radius: plotPieRadius}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c} ({d}%)"}),
		)

	return pie
}
