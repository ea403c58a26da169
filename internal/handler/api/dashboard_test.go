package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "PriceCast/internal/domain/models"
	"PriceCast/internal/presentation"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/services/forecasting"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/cache"
	"PriceCast/pkg/clock"
	xhttp "PriceCast/pkg/http"
)

// fakeMarket has 60 days of BTC-USD, fails for ETH-USD and knows nothing about ADA-USD.
type fakeMarket struct{}

func (fakeMarket) History(_ context.Context, symbol string, start, end time.Time) ([]models.PriceRecord, error) {
	switch symbol {
	case "ETH-USD":
		return nil, errors.New("connection reset")
	case "BTC-USD":
		var out []models.PriceRecord
		for d, i := start, 0; !d.After(end); d, i = d.AddDate(0, 0, 1), i+1 {
			px := 1000 + float64(i)*3 + float64(i%7)
			out = append(out, models.PriceRecord{Date: d, Open: px - 2, High: px + 5, Low: px - 5, Close: px, Volume: 100})
		}
		return out, nil
	default:
		return nil, nil
	}
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	clk := clock.NewFixed(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	collector := usecase.NewCollector(
		[]string{"BTC-USD", "ETH-USD", "ADA-USD"},
		usecase.WithDefaultStart(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		usecase.WithCollectorClock(clk),
	)
	dash := usecase.NewDashboard(
		collector,
		usecase.NewFetcher(fakeMarket{}, mc, nil, clk),
		usecase.NewAdapter(forecasting.NewAdditiveModel(), nil),
		usecase.NewExporter(mc, usecase.DefaultCSVTTL, nil),
		nil,
		nil,
		clk,
	)
	renderer, err := presentation.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	NewDashboardHandler(nil, dash, renderer, limiter).RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) []xhttp.AppError {
	t.Helper()
	var body struct {
		Status int              `json:"status"`
		Data   []xhttp.AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rec.Code, body.Status)
	return body.Data
}

func TestPage_RendersDashboard(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(e, "/?symbol=BTC-USD&start=2024-01-01&years=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML))

	page := rec.Body.String()
	assert.Contains(t, page, "Stock Forecast App")
	assert.Contains(t, page, "Data loaded!")
	assert.Contains(t, page, "Forecast for 1 year")
	assert.Contains(t, page, "<td>2025-03-01</td>", "last forecast day is today+365")
}

func TestPage_EmptySeriesShowsError(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(e, "/?symbol=ADA-USD")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no price data for ADA-USD")
	assert.Contains(t, rec.Body.String(), `name="symbol"`)
}

func TestPage_BadStartDate(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(e, "/?start=01-02-2024")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a date formatted as 2006-01-02")
}

func TestForecast_JSON(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(e, "/api/forecast?symbol=BTC-USD&start=2024-02-01&years=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.DashboardView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	view := body.Data

	assert.Equal(t, "BTC-USD", view.Request.Symbol)
	assert.Equal(t, 2, view.Request.HorizonYears)
	assert.Len(t, view.Head, 5)
	assert.Len(t, view.Tail, 5)
	// Feb 1 .. Mar 1 2024 is 30 days
	assert.Len(t, view.Forecast.Points, 30+730)
	for _, p := range view.Forecast.Points {
		assert.LessOrEqual(t, p.Lower, p.Estimate)
		assert.LessOrEqual(t, p.Estimate, p.Upper)
	}
}

func TestForecast_ErrorMapping(t *testing.T) {
	e := newTestServer(t, nil)

	cases := []struct {
		target string
		status int
		code   string
	}{
		{"/api/forecast?symbol=ETH-USD", http.StatusBadGateway, "ERR_FETCH"},
		{"/api/forecast?symbol=ADA-USD", http.StatusNotFound, "ERR_EMPTY_SERIES"},
		{"/api/forecast?symbol=DOGE-USD", http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"/api/forecast?symbol=BTC-USD&start=2024-03-01", http.StatusUnprocessableEntity, "ERR_FIT"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := get(e, tc.target)
			assert.Equal(t, tc.status, rec.Code)
			errs := decodeErrors(t, rec)
			require.Len(t, errs, 1)
			assert.Equal(t, tc.code, errs[0].Code)
		})
	}
}

func TestForecast_ValidationError(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(e, "/api/forecast?start=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_DATETIME")
}

func TestPrices_JSON(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(e, "/api/prices?symbol=BTC-USD&start=2024-02-20")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.PriceSeries `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 11, body.Data.Len())
}

func TestDownload_CSVAttachment(t *testing.T) {
	e := newTestServer(t, nil)

	rec := get(e, "/download?symbol=BTC-USD&start=2024-02-28")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.CSVContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="BTC-USD.csv"`, rec.Header().Get(echo.HeaderContentDisposition))

	records, err := usecase.DecodeCSV(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestHealth(t *testing.T) {
	rec := get(newTestServer(t, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestPage_RateLimited(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	e := newTestServer(t, ratelimit.New(1, 0.0001, clk))

	assert.Equal(t, http.StatusOK, get(e, "/?symbol=BTC-USD").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(e, "/?symbol=BTC-USD").Code)
	assert.Equal(t, http.StatusOK, get(e, "/health").Code, "health is not throttled")
}

func TestMapError_Unknown(t *testing.T) {
	appErr := MapError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "ERR_INTERNAL", appErr.Code)
}
