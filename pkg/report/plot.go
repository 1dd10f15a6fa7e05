package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

const (
	plotStackName  = "bugs"
	plotMaxAuthors = 30
	fullZoomPct    = 100
)

// WritePlot writes an interactive HTML bar chart of bugs per author, stacked
// by severity.
func WritePlot(w io.Writer, result stats.Result, opts Options) error {
	limit := opts.MaxAuthors
	if limit <= 0 {
		limit = plotMaxAuthors
	}

	err := BugsChart(result, limit).Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

// BugsChart builds the chart WritePlot renders.
func BugsChart(result stats.Result, limit int) *charts.Bar {
	ranked := topAuthors(result, limit)

	names := make([]string, 0, len(ranked)+1)
	buckets := make([]stats.Bucket, 0, len(ranked)+1)

	for _, ab := range ranked {
		names = append(names, ab.Author)
		buckets = append(buckets, ab.Bucket)
	}

	if result.Unattributed.Bugs.Total > 0 {
		names = append(names, unattributed)
		buckets = append(buckets, result.Unattributed)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Bugs by Author",
			Subtitle: fmt.Sprintf("%d bugs on %d lines", result.Overall.Bugs.Total, result.Overall.Lines),
			Left:     "2%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "5px", Left: "40%"}),
		charts.WithGridOpts(opts.Grid{Top: "15%", Bottom: "15%", Left: "5%", Right: "5%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Author"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Bugs"}),
	)
	bar.SetXAxis(names)

	series := []struct {
		name  string
		value func(stats.Bugs) int
	}{
		{name: "high", value: func(b stats.Bugs) int { return b.High }},
		{name: "med", value: func(b stats.Bugs) int { return b.Med }},
		{name: "low", value: func(b stats.Bugs) int { return b.Low }},
		{name: "unrated", value: func(b stats.Bugs) int { return b.Total - b.High - b.Med - b.Low }},
	}

	for _, s := range series {
		data := make([]opts.BarData, len(buckets))
		for i, b := range buckets {
			data[i] = opts.BarData{Value: s.value(b.Bugs)}
		}

		bar.AddSeries(s.name, data, charts.WithBarChartOpts(opts.BarChart{Stack: plotStackName}))
	}

	return bar
}
