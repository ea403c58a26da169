package usecase

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/clock"
	applogger "PriceCast/pkg/logger"
	xutil "PriceCast/pkg/util"
)

const (
	previewRows = 5

	DashboardTitle    = "Stock Forecast App"
	DashboardSubtitle = "Daily price history and an additive-model forecast with uncertainty band"

	StatusLoading = "Loading data..."
	StatusLoaded  = "Data loaded!"

	runPublishTimeout = 3 * time.Second
)

// Dashboard runs the full pipeline: collect, fetch, forecast, decompose, assemble.
// Every call recomputes from scratch; only the fetch and export caches persist.
type Dashboard struct {
	collector *Collector
	fetcher   *Fetcher
	adapter   *Adapter
	exporter  *Exporter
	publisher domrepo.RunPublisher
	metrics   domrepo.Metrics
	clock     clock.Clock
	logger    *applogger.Logger
}

// NewDashboard wires the pipeline stages. publisher may be nil.
func NewDashboard(
	collector *Collector,
	fetcher *Fetcher,
	adapter *Adapter,
	exporter *Exporter,
	publisher domrepo.RunPublisher,
	metrics domrepo.Metrics,
	clk clock.Clock,
) *Dashboard {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Dashboard{
		collector: collector,
		fetcher:   fetcher,
		adapter:   adapter,
		exporter:  exporter,
		publisher: publisher,
		metrics:   metrics,
		clock:     clk,
	}
}

// SetLogger injects logger into the dashboard and its stages.
func (d *Dashboard) SetLogger(l *applogger.Logger) {
	d.logger = l
	d.fetcher.SetLogger(l)
	d.adapter.SetLogger(l)
	d.exporter.SetLogger(l)
}

// Collector exposes the input collector for rendering controls.
func (d *Dashboard) Collector() *Collector { return d.collector }

// EmptyView returns a view carrying only the controls, used for error pages.
func (d *Dashboard) EmptyView(sel Selection) models.DashboardView {
	view := d.baseView()
	if req, err := d.collector.Collect(sel); err == nil {
		view.Request = req
	}
	return view
}

func (d *Dashboard) baseView() models.DashboardView {
	lo, hi := d.collector.HorizonBounds()
	return models.DashboardView{
		Title:           DashboardTitle,
		Subtitle:        DashboardSubtitle,
		Status:          StatusLoading,
		Symbols:         d.collector.Symbols(),
		MinHorizonYears: lo,
		MaxHorizonYears: hi,
		GeneratedAt:     d.clock.Now().UTC(),
	}
}

// Run executes one render pass for the selection.
func (d *Dashboard) Run(ctx context.Context, sel Selection) (models.DashboardView, error) {
	began := time.Now()
	view := d.baseView()

	req, err := d.collector.Collect(sel)
	if err != nil {
		return view, err
	}
	view.Request = req

	series, err := d.fetcher.FetchToday(ctx, req.Symbol, req.StartDate)
	if err != nil {
		d.finish(ctx, req, models.PriceSeries{}, models.ForecastTable{}, began, err)
		return view, err
	}
	view.Series = series
	view.Head = series.Head(previewRows)
	view.Tail = series.Tail(previewRows)
	view.Status = StatusLoaded
	view.DownloadURL = DownloadURL(req)

	table, dec, err := d.adapter.Run(ctx, series, req.HorizonYears)
	if err != nil {
		d.finish(ctx, req, series, models.ForecastTable{}, began, err)
		return view, err
	}
	view.Forecast = table
	view.Components = dec

	d.finish(ctx, req, series, table, began, nil)
	return view, nil
}

// Prices fetches the raw series for the selection without forecasting.
func (d *Dashboard) Prices(ctx context.Context, sel Selection) (models.PriceSeries, error) {
	req, err := d.collector.Collect(sel)
	if err != nil {
		return models.PriceSeries{}, err
	}
	return d.fetcher.FetchToday(ctx, req.Symbol, req.StartDate)
}

// Export returns the CSV download for the selection.
func (d *Dashboard) Export(ctx context.Context, sel Selection) (string, []byte, error) {
	series, err := d.Prices(ctx, sel)
	if err != nil {
		return "", nil, err
	}
	data, err := d.exporter.ToCSV(ctx, series)
	if err != nil {
		return "", nil, err
	}
	return Filename(series.Symbol), data, nil
}

// DownloadURL builds the export link for req.
func DownloadURL(req models.ForecastRequest) string {
	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("start", xutil.FormatDate(req.StartDate))
	q.Set("years", strconv.Itoa(req.HorizonYears))
	return "/download?" + q.Encode()
}

func (d *Dashboard) finish(ctx context.Context, req models.ForecastRequest, series models.PriceSeries, table models.ForecastTable, began time.Time, runErr error) {
	took := time.Since(began)
	status := "ok"
	if runErr != nil {
		status = "error"
	}
	if d.metrics != nil {
		d.metrics.RecordRun(status)
		d.metrics.RecordLatency("run", took.Seconds())
	}

	if d.logger != nil {
		fields := []applogger.Field{
			applogger.String("symbol", req.Symbol),
			applogger.Date("start", req.StartDate),
			applogger.Int("years", req.HorizonYears),
			applogger.Int("rows", series.Len()),
			applogger.Int("forecast_rows", len(table.Points)),
			applogger.Duration("took_ms", took),
		}
		if runErr != nil {
			d.logger.Warn("dashboard.run failed", append(fields, applogger.Error(runErr))...)
		} else {
			d.logger.Info("dashboard.run ok", fields...)
		}
	}

	if d.publisher == nil {
		return
	}

	ev := models.RunEvent{
		Symbol:       req.Symbol,
		Start:        xutil.FormatDate(req.StartDate),
		End:          xutil.FormatDate(d.fetcher.Today()),
		HorizonYears: req.HorizonYears,
		HorizonDays:  HorizonDays(req.HorizonYears),
		Rows:         series.Len(),
		ForecastRows: len(table.Points),
		DurationMs:   took.Milliseconds(),
		Status:       status,
		At:           d.clock.Now().UTC(),
	}
	if last, ok := series.Last(); ok {
		ev.LastClose = last.Close
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runPublishTimeout)
	defer cancel()
	if err := d.publisher.PublishRun(pubCtx, ev); err != nil {
		if d.metrics != nil {
			d.metrics.RecordError("publish")
		}
		if d.logger != nil {
			d.logger.Warn("dashboard.run publish_failed", applogger.String("symbol", req.Symbol), applogger.Error(err))
		}
	}
}
