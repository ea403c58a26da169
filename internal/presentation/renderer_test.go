package presentation

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleView() models.DashboardView {
	series := models.PriceSeries{Symbol: "BTC-USD", Start: day(2018, 1, 1), End: day(2018, 1, 7)}
	for i := 0; i < 7; i++ {
		px := 100 + float64(i)
		series.Records = append(series.Records, models.PriceRecord{
			Date: day(2018, 1, 1+i), Open: px - 1, High: px + 1, Low: px - 2, Close: px, Volume: int64(10 + i),
		})
	}
	table := models.ForecastTable{Symbol: "BTC-USD", HorizonDays: 3}
	for i := 0; i < 10; i++ {
		table.Points = append(table.Points, models.ForecastPoint{
			Timestamp: day(2018, 1, 1+i), Estimate: 100 + float64(i), Lower: 95 + float64(i), Upper: 105 + float64(i), Trend: 100,
		})
	}
	dec := models.Decomposition{
		Trend:  []models.ProfilePoint{{Label: "2018-01-01", Value: 1}, {Label: "2018-01-02", Value: 2}},
		Weekly: []models.ProfilePoint{{Label: "Monday", Value: 0.5}, {Label: "Tuesday", Value: -0.5}},
		Yearly: []models.ProfilePoint{{Label: "January 1", Value: 0.1}},
	}
	return models.DashboardView{
		Title:           "Stock Forecast App",
		Subtitle:        "sub",
		Status:          "Data loaded!",
		Symbols:         []string{"BTC-USD", "ETH-USD", "ADA-USD"},
		MinHorizonYears: 1,
		MaxHorizonYears: 4,
		Request:         models.ForecastRequest{Symbol: "BTC-USD", StartDate: day(2018, 1, 1), HorizonYears: 2},
		Series:          series,
		Head:            series.Head(5),
		Tail:            series.Tail(5),
		Forecast:        table,
		Components:      dec,
		DownloadURL:     "/download?start=2018-01-01&symbol=BTC-USD&years=2",
		GeneratedAt:     day(2018, 1, 7),
	}
}

func TestForecastTitle(t *testing.T) {
	assert.Equal(t, "Forecast for 1 year", ForecastTitle(1))
	assert.Equal(t, "Forecast for 4 years", ForecastTitle(4))
}

func TestRender_Page(t *testing.T) {
	r, err := NewRenderer(WithAssetsHost("https://assets.example/"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleView()))
	page := buf.String()

	assert.Contains(t, page, "<h1>Stock Forecast App</h1>")
	assert.Contains(t, page, "Data loaded!")
	assert.Contains(t, page, "Forecast for 2 years")
	assert.Contains(t, page, `<option value="BTC-USD" selected>`)
	assert.Contains(t, page, `value="2018-01-01"`)
	assert.Contains(t, page, "https://assets.example/echarts.min.js")
	assert.Contains(t, page, "/download?start=2018-01-01&amp;symbol=BTC-USD&amp;years=2")

	for _, id := range []string{"history", "forecast", "trend", "weekly", "yearly"} {
		assert.Contains(t, page, `id="`+id+`"`)
	}
	assert.Equal(t, 10, strings.Count(page, "<td>100.00</td></tr>"), "one row per forecast point")
	assert.Contains(t, page, "<td>2018-01-10</td><td>109.00</td><td>104.00</td><td>114.00</td>")
}

func TestRenderError_OmitsResults(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	view := sampleView()
	view.Status = "Loading data..."
	var buf bytes.Buffer
	require.NoError(t, r.RenderError(&buf, view, "no price data for BTC-USD"))
	page := buf.String()

	assert.Contains(t, page, `class="error">no price data for BTC-USD`)
	assert.Contains(t, page, `name="symbol"`)
	assert.NotContains(t, page, "Forecast for")
	assert.NotContains(t, page, "echarts.init")
}

func TestForecastChart_StackedBand(t *testing.T) {
	view := sampleView()
	line := ForecastChart(view.Series, view.Forecast, "")
	opt := line.RenderSnippet().Option

	assert.Contains(t, opt, `"yhat_band"`)
	assert.Contains(t, opt, `"stack":"band"`)
	assert.Contains(t, opt, `"slider"`)
	// days past the last observation have no actual close
	assert.Contains(t, opt, `"value":"-"`)
}

func TestHistoryChart_OpenAndClose(t *testing.T) {
	opt := HistoryChart(sampleView().Series, "").RenderSnippet().Option
	assert.Contains(t, opt, `"stock_open"`)
	assert.Contains(t, opt, `"stock_close"`)
	assert.Contains(t, opt, `"2018-01-07"`)
}
