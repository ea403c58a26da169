package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	domsvc "PriceCast/internal/domain/service"
	applogger "PriceCast/pkg/logger"
)

const daysPerYear = 365

// HorizonDays converts a horizon in years to calendar days.
func HorizonDays(years int) int {
	return years * daysPerYear
}

// Adapter drives the model: fit on closes, predict over history plus horizon, decompose.
type Adapter struct {
	model   domsvc.Forecaster
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

// NewAdapter creates a forecast adapter around model.
func NewAdapter(model domsvc.Forecaster, metrics domrepo.Metrics) *Adapter {
	return &Adapter{model: model, metrics: metrics}
}

// SetLogger injects logger.
func (a *Adapter) SetLogger(l *applogger.Logger) { a.logger = l }

// TrainingPoints projects the series to (date, close) pairs.
func TrainingPoints(series models.PriceSeries) []models.TrainingPoint {
	pts := make([]models.TrainingPoint, len(series.Records))
	for i, r := range series.Records {
		pts[i] = models.TrainingPoint{Timestamp: r.Date, Value: r.Close}
	}
	return pts
}

// Forecast fits the model and predicts every training date plus horizonDays following days.
func (a *Adapter) Forecast(ctx context.Context, series models.PriceSeries, horizonDays int) (models.ForecastTable, error) {
	table, _, err := a.run(ctx, series, horizonDays, false)
	return table, err
}

// Run is Forecast plus the component profiles for the components chart.
func (a *Adapter) Run(ctx context.Context, series models.PriceSeries, horizonYears int) (models.ForecastTable, models.Decomposition, error) {
	return a.run(ctx, series, HorizonDays(horizonYears), true)
}

func (a *Adapter) run(ctx context.Context, series models.PriceSeries, horizonDays int, decompose bool) (models.ForecastTable, models.Decomposition, error) {
	var (
		table models.ForecastTable
		dec   models.Decomposition
	)

	pts := TrainingPoints(series)
	if err := checkTrainable(pts); err != nil {
		a.recordError()
		return table, dec, err
	}
	if horizonDays < 0 {
		horizonDays = 0
	}

	began := time.Now()
	fm, err := a.model.Fit(ctx, pts)
	a.observe("fit", began)
	if err != nil {
		a.recordError()
		return table, dec, &models.FitError{Reason: "fit", Err: err}
	}

	at := predictionDates(pts, horizonDays)

	began = time.Now()
	points, err := fm.Predict(ctx, at)
	a.observe("predict", began)
	if err != nil {
		a.recordError()
		return table, dec, &models.FitError{Reason: "predict", Err: err}
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	for i := range points {
		points[i] = orderBounds(points[i])
	}

	table = models.ForecastTable{Symbol: series.Symbol, HorizonDays: horizonDays, Points: points}

	if decompose {
		dec, err = a.decompose(ctx, fm, at)
		if err != nil {
			a.recordError()
			return table, dec, &models.FitError{Reason: "decompose", Err: err}
		}
	}

	if a.logger != nil {
		a.logger.Info("forecast.run ok",
			applogger.String("symbol", series.Symbol),
			applogger.Int("train_rows", len(pts)),
			applogger.Int("horizon_days", horizonDays),
			applogger.Int("rows", len(points)),
		)
	}
	return table, dec, nil
}

// checkTrainable requires two distinct timestamps and finite values.
func checkTrainable(pts []models.TrainingPoint) error {
	distinct := make(map[int64]struct{}, len(pts))
	for _, p := range pts {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return &models.FitError{Reason: "non-finite close on " + p.Timestamp.Format("2006-01-02")}
		}
		distinct[p.Timestamp.Unix()] = struct{}{}
	}
	if len(distinct) < 2 {
		return &models.FitError{Reason: "need at least 2 distinct dates"}
	}
	return nil
}

// predictionDates returns every training date followed by last+1 .. last+horizonDays.
func predictionDates(pts []models.TrainingPoint, horizonDays int) []time.Time {
	at := make([]time.Time, 0, len(pts)+horizonDays)
	last := pts[0].Timestamp
	for _, p := range pts {
		at = append(at, p.Timestamp)
		if p.Timestamp.After(last) {
			last = p.Timestamp
		}
	}
	for d := 1; d <= horizonDays; d++ {
		at = append(at, last.AddDate(0, 0, d))
	}
	return at
}

func orderBounds(p models.ForecastPoint) models.ForecastPoint {
	if p.Lower > p.Upper {
		p.Lower, p.Upper = p.Upper, p.Lower
	}
	p.Lower = math.Min(p.Lower, p.Estimate)
	p.Upper = math.Max(p.Upper, p.Estimate)
	return p
}

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// decompose builds the trend over the table dates, the weekly profile Monday..Sunday and
// the yearly profile over one calendar year.
func (a *Adapter) decompose(ctx context.Context, fm domsvc.FittedModel, at []time.Time) (models.Decomposition, error) {
	var dec models.Decomposition

	began := time.Now()
	defer a.observe("decompose", began)

	trend, err := fm.Decompose(ctx, at)
	if err != nil {
		return dec, err
	}
	dec.Trend = make([]models.ProfilePoint, len(trend))
	for i, c := range trend {
		dec.Trend[i] = models.ProfilePoint{Label: c.Timestamp.Format("2006-01-02"), Timestamp: c.Timestamp, Value: c.Trend}
	}

	// 2018-01-01 is a Monday
	weekStart := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	week := make([]time.Time, len(weekdays))
	for i := range week {
		week[i] = weekStart.AddDate(0, 0, i)
	}
	weekly, err := fm.Decompose(ctx, week)
	if err != nil {
		return dec, err
	}
	dec.Weekly = make([]models.ProfilePoint, len(weekly))
	for i, c := range weekly {
		dec.Weekly[i] = models.ProfilePoint{Label: weekdays[i].String(), Timestamp: c.Timestamp, Value: c.Weekly}
	}

	yearStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	year := make([]time.Time, 0, daysPerYear)
	for d := yearStart; d.Year() == yearStart.Year(); d = d.AddDate(0, 0, 1) {
		year = append(year, d)
	}
	yearly, err := fm.Decompose(ctx, year)
	if err != nil {
		return dec, err
	}
	dec.Yearly = make([]models.ProfilePoint, len(yearly))
	for i, c := range yearly {
		dec.Yearly[i] = models.ProfilePoint{Label: c.Timestamp.Format("January 2"), Timestamp: c.Timestamp, Value: c.Yearly}
	}
	return dec, nil
}

func (a *Adapter) observe(stage string, began time.Time) {
	if a.metrics != nil {
		a.metrics.RecordLatency(stage, time.Since(began).Seconds())
	}
}

func (a *Adapter) recordError() {
	if a.metrics != nil {
		a.metrics.RecordError("fit")
	}
}
