package presentation

import (
	"html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"PriceCast/internal/domain/models"
	xutil "PriceCast/pkg/util"
)

const (
	chartWidth  = "100%"
	chartHeight = "420px"

	// echarts skips "-" values, leaving a gap in the line
	missingValue = "-"
)

// ChartBlock is one rendered chart ready for embedding into the page.
type ChartBlock struct {
	ID      string
	Title   string
	Element template.HTML
	Script  template.HTML
}

func newLine(id, title, assetsHost string, extra ...charts.GlobalOpts) *charts.Line {
	line := charts.NewLine()
	initOpts := opts.Initialization{ChartID: id, Width: chartWidth, Height: chartHeight}
	if assetsHost != "" {
		initOpts.AssetsHost = assetsHost
	}
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithAnimation(false),
	}
	line.SetGlobalOptions(append(global, extra...)...)
	return line
}

// rangeSlider is the draggable date range selector under the x axis.
func rangeSlider() charts.GlobalOpts {
	return charts.WithDataZoomOpts(
		opts.DataZoom{Type: "slider", Start: 0, End: 100, XAxisIndex: []int{0}},
		opts.DataZoom{Type: "inside", Start: 0, End: 100, XAxisIndex: []int{0}},
	)
}

func priceAxis() charts.GlobalOpts {
	return charts.WithYAxisOpts(opts.YAxis{Name: "price", Scale: opts.Bool(true)})
}

// HistoryChart plots daily open and close with a range slider.
func HistoryChart(series models.PriceSeries, assetsHost string) *charts.Line {
	line := newLine("history", "Time Series data with Rangeslider", assetsHost, rangeSlider(), priceAxis())

	dates := make([]string, len(series.Records))
	open := make([]opts.LineData, len(series.Records))
	closes := make([]opts.LineData, len(series.Records))
	for i, r := range series.Records {
		dates[i] = xutil.FormatDate(r.Date)
		open[i] = opts.LineData{Value: r.Open}
		closes[i] = opts.LineData{Value: r.Close}
	}

	line.SetXAxis(dates).
		AddSeries("stock_open", open, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("stock_close", closes, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}

// ForecastChart plots the estimate, the uncertainty band and the observed closes.
// The band is a stacked pair: an invisible lower series and a filled (upper - lower) series.
func ForecastChart(series models.PriceSeries, table models.ForecastTable, assetsHost string) *charts.Line {
	line := newLine("forecast", "Forecast plot", assetsHost, rangeSlider(), priceAxis())

	actual := make(map[string]float64, len(series.Records))
	for _, r := range series.Records {
		actual[xutil.FormatDate(r.Date)] = r.Close
	}

	n := len(table.Points)
	dates := make([]string, n)
	lower := make([]opts.LineData, n)
	band := make([]opts.LineData, n)
	estimate := make([]opts.LineData, n)
	observed := make([]opts.LineData, n)
	for i, p := range table.Points {
		d := xutil.FormatDate(p.Timestamp)
		dates[i] = d
		lower[i] = opts.LineData{Value: p.Lower}
		band[i] = opts.LineData{Value: p.Upper - p.Lower}
		estimate[i] = opts.LineData{Value: p.Estimate}
		if v, ok := actual[d]; ok {
			observed[i] = opts.LineData{Value: v}
		} else {
			observed[i] = opts.LineData{Value: missingValue}
		}
	}

	hidden := opts.LineStyle{Opacity: opts.Float(0)}
	line.SetXAxis(dates).
		AddSeries("yhat_lower", lower,
			charts.WithLineChartOpts(opts.LineChart{Stack: "band", ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(hidden),
		).
		AddSeries("yhat_band", band,
			charts.WithLineChartOpts(opts.LineChart{Stack: "band", ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(hidden),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: "#5470c6", Opacity: opts.Float(0.2)}),
		).
		AddSeries("yhat", estimate,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "#5470c6", Width: 2}),
		).
		AddSeries("actual", observed,
			charts.WithLineChartOpts(opts.LineChart{Symbol: "circle", SymbolSize: 3, ConnectNulls: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
		)
	return line
}

// ComponentCharts plots the trend over the forecast dates and the weekly and yearly profiles.
func ComponentCharts(dec models.Decomposition, assetsHost string) []*charts.Line {
	return []*charts.Line{
		profileChart("trend", "trend", dec.Trend, assetsHost, rangeSlider()),
		profileChart("weekly", "weekly", dec.Weekly, assetsHost),
		profileChart("yearly", "yearly", dec.Yearly, assetsHost),
	}
}

func profileChart(id, name string, pts []models.ProfilePoint, assetsHost string, extra ...charts.GlobalOpts) *charts.Line {
	line := newLine(id, name, assetsHost, extra...)
	labels := make([]string, len(pts))
	values := make([]opts.LineData, len(pts))
	for i, p := range pts {
		labels[i] = p.Label
		values[i] = opts.LineData{Value: p.Value}
	}
	line.SetXAxis(labels).
		AddSeries(name, values, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}))
	return line
}

// snippet renders a chart into its container element and init script.
func snippet(title string, line *charts.Line) ChartBlock {
	s := line.RenderSnippet()
	return ChartBlock{
		ID:      line.ChartID,
		Title:   title,
		Element: template.HTML(s.Element),
		Script:  template.HTML(s.Script),
	}
}

// scriptAssets returns the JS files a chart needs, host-qualified.
func scriptAssets(line *charts.Line) []string {
	return line.JSAssets.Values
}
