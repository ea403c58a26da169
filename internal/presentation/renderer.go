package presentation

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"PriceCast/internal/domain/models"
	applogger "PriceCast/pkg/logger"
	xutil "PriceCast/pkg/util"
)

//go:embed templates/*.html
var templateFS embed.FS

// RendererOption configures Renderer.
type RendererOption func(*Renderer)

// WithAssetsHost overrides where echarts.min.js is loaded from.
func WithAssetsHost(host string) RendererOption {
	return func(r *Renderer) {
		r.assetsHost = host
	}
}

// Renderer turns a DashboardView into an HTML page. It does no computation of its own.
type Renderer struct {
	tpl        *template.Template
	assetsHost string
	logger     *applogger.Logger
}

type pageData struct {
	View          models.DashboardView
	Error         string
	ForecastTitle string
	Scripts       []string
	History       *ChartBlock
	Forecast      *ChartBlock
	Components    []ChartBlock
}

// NewRenderer parses the page template.
func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}

	tpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"date": formatDate,
		"num":  formatNumber,
	}).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	r.tpl = tpl
	return r, nil
}

// SetLogger injects logger.
func (r *Renderer) SetLogger(l *applogger.Logger) { r.logger = l }

// ForecastTitle is the heading above the forecast table.
func ForecastTitle(years int) string {
	if years == 1 {
		return "Forecast for 1 year"
	}
	return fmt.Sprintf("Forecast for %d years", years)
}

// Render writes the full dashboard page for view.
func (r *Renderer) Render(w io.Writer, view models.DashboardView) error {
	data := pageData{
		View:          view,
		ForecastTitle: ForecastTitle(view.Request.HorizonYears),
	}

	history := HistoryChart(view.Series, r.assetsHost)
	block := snippet("history", history)
	data.History = &block
	data.Scripts = scriptAssets(history)

	forecast := snippet("forecast", ForecastChart(view.Series, view.Forecast, r.assetsHost))
	data.Forecast = &forecast

	for _, c := range ComponentCharts(view.Components, r.assetsHost) {
		data.Components = append(data.Components, snippet(c.ChartID, c))
	}

	return r.execute(w, data)
}

// RenderError writes the page with its controls and message in place of the results.
func (r *Renderer) RenderError(w io.Writer, view models.DashboardView, message string) error {
	return r.execute(w, pageData{
		View:          view,
		Error:         message,
		ForecastTitle: ForecastTitle(view.Request.HorizonYears),
	})
}

// execute renders into a buffer first so a template failure never leaves a partial page.
func (r *Renderer) execute(w io.Writer, data pageData) error {
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, data); err != nil {
		if r.logger != nil {
			r.logger.Error("render.page failed", applogger.String("symbol", data.View.Request.Symbol), applogger.Error(err))
		}
		return fmt.Errorf("render dashboard: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return xutil.FormatDate(t)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
