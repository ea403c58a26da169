package forecasting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
)

const (
	dateLayout = "2006-01-02"
	day        = 24 * time.Hour

	weeklyPeriodDays = 7.0
	yearlyPeriodDays = 365.25

	defaultChangepoints   = 25
	defaultChangepointPct = 0.8
	defaultWeeklyOrder    = 3
	defaultYearlyOrder    = 10
	defaultIntervalWidth  = 0.8

	// ridge penalties per coefficient group, in units of the scaled target
	changepointPenalty = 5.0
	seasonalityPenalty = 0.01
	basePenalty        = 1e-9
)

// AdditiveOption configures AdditiveModel.
type AdditiveOption func(*AdditiveModel)

// AdditiveModel fits y(t) = trend(t) + weekly(t) + yearly(t) where trend is piecewise
// linear with hinge changepoints and the seasonal terms are Fourier series.
type AdditiveModel struct {
	changepoints   int
	changepointPct float64
	weeklyOrder    int
	yearlyOrder    int
	intervalWidth  float64
	weeklyMinDays  float64
	yearlyMinDays  float64
}

// NewAdditiveModel creates the in-process model.
func NewAdditiveModel(opts ...AdditiveOption) *AdditiveModel {
	m := &AdditiveModel{
		changepoints:   defaultChangepoints,
		changepointPct: defaultChangepointPct,
		weeklyOrder:    defaultWeeklyOrder,
		yearlyOrder:    defaultYearlyOrder,
		intervalWidth:  defaultIntervalWidth,
		weeklyMinDays:  14,
		yearlyMinDays:  730,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithIntervalWidth sets the probability mass of the uncertainty interval.
func WithIntervalWidth(w float64) AdditiveOption {
	return func(m *AdditiveModel) {
		if w > 0 && w < 1 {
			m.intervalWidth = w
		}
	}
}

// WithChangepoints sets how many trend changepoints are placed in the first pct of history.
func WithChangepoints(n int, pct float64) AdditiveOption {
	return func(m *AdditiveModel) {
		if n >= 0 {
			m.changepoints = n
		}
		if pct > 0 && pct <= 1 {
			m.changepointPct = pct
		}
	}
}

// WithSeasonalityOrders sets the Fourier orders. Zero disables a component.
func WithSeasonalityOrders(weekly, yearly int) AdditiveOption {
	return func(m *AdditiveModel) {
		m.weeklyOrder = weekly
		m.yearlyOrder = yearly
	}
}

func (m *AdditiveModel) Fit(ctx context.Context, points []models.TrainingPoint) (domsvc.FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pts := make([]models.TrainingPoint, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Timestamp.Before(pts[j].Timestamp) })

	if len(pts) < 2 || !pts[0].Timestamp.Before(pts[len(pts)-1].Timestamp) {
		return nil, errors.New("need at least 2 distinct timestamps")
	}

	yScale := 0.0
	for _, p := range pts {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return nil, fmt.Errorf("non-finite value at %s", p.Timestamp.Format(dateLayout))
		}
		yScale = math.Max(yScale, math.Abs(p.Value))
	}
	if yScale == 0 {
		yScale = 1
	}

	f := &fitted{
		start:     pts[0].Timestamp,
		spanDays:  pts[len(pts)-1].Timestamp.Sub(pts[0].Timestamp).Hours() / 24,
		yScale:    yScale,
		lastTrain: pts[len(pts)-1].Timestamp,
	}
	if f.spanDays >= m.weeklyMinDays {
		f.weeklyOrder = m.weeklyOrder
	}
	if f.spanDays >= m.yearlyMinDays {
		f.yearlyOrder = m.yearlyOrder
	}
	f.changepoints = placeChangepoints(pts, f, m.changepoints, m.changepointPct)

	n := len(pts)
	p := f.width()
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, pt := range pts {
		x.SetRow(i, f.features(pt.Timestamp))
		y.SetVec(i, pt.Value/yScale)
	}

	beta, err := solveRidge(x, y, f.penalties())
	if err != nil {
		return nil, fmt.Errorf("least squares: %w", err)
	}
	f.beta = beta

	var fittedY mat.VecDense
	fittedY.MulVec(x, mat.NewVecDense(p, beta))
	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = y.AtVec(i) - fittedY.AtVec(i)
	}
	f.sigma = stat.StdDev(residuals, nil)
	if math.IsNaN(f.sigma) {
		f.sigma = 0
	}
	f.z = distuv.UnitNormal.Quantile(0.5 + m.intervalWidth/2)

	return f, nil
}

// placeChangepoints spreads n changepoints uniformly over the training rows in the first pct of history.
func placeChangepoints(pts []models.TrainingPoint, f *fitted, n int, pct float64) []float64 {
	limit := int(math.Floor(float64(len(pts)) * pct))
	if n > limit-1 {
		n = limit - 1
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(float64(i) * float64(limit-1) / float64(n+1)))
		s := f.scaled(pts[idx].Timestamp)
		if len(out) > 0 && s <= out[len(out)-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// solveRidge solves (XᵀX + diag(pen)) β = Xᵀy.
func solveRidge(x *mat.Dense, y *mat.VecDense, pen []float64) ([]float64, error) {
	_, p := x.Dims()

	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, x.T())
	for i := 0; i < p; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+pen[i])
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	beta := mat.NewVecDense(p, nil)
	var chol mat.Cholesky
	if chol.Factorize(xtx) {
		if err := chol.SolveVecTo(beta, &xty); err == nil {
			return beta.RawVector().Data, nil
		}
	}

	// Fallback for ill-conditioned systems; a Condition error still carries a usable solution.
	if err := beta.SolveVec(xtx, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	for _, v := range beta.RawVector().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("singular system")
		}
	}
	return beta.RawVector().Data, nil
}

type fitted struct {
	start        time.Time
	lastTrain    time.Time
	spanDays     float64
	yScale       float64
	changepoints []float64
	weeklyOrder  int
	yearlyOrder  int
	beta         []float64
	sigma        float64
	z            float64
}

// scaled maps t to [0,1] over the training window; future times exceed 1.
func (f *fitted) scaled(t time.Time) float64 {
	return t.Sub(f.start).Hours() / 24 / f.spanDays
}

func (f *fitted) width() int {
	return 2 + len(f.changepoints) + 2*f.weeklyOrder + 2*f.yearlyOrder
}

func (f *fitted) penalties() []float64 {
	pen := make([]float64, f.width())
	pen[0], pen[1] = basePenalty, basePenalty
	i := 2
	for range f.changepoints {
		pen[i] = changepointPenalty
		i++
	}
	for ; i < len(pen); i++ {
		pen[i] = seasonalityPenalty
	}
	return pen
}

// features returns [1, s, hinges..., weekly sin/cos..., yearly sin/cos...].
func (f *fitted) features(t time.Time) []float64 {
	row := make([]float64, 0, f.width())
	s := f.scaled(t)
	row = append(row, 1, s)
	for _, c := range f.changepoints {
		row = append(row, math.Max(0, s-c))
	}
	abs := epochDays(t)
	row = appendFourier(row, abs, weeklyPeriodDays, f.weeklyOrder)
	row = appendFourier(row, abs, yearlyPeriodDays, f.yearlyOrder)
	return row
}

func appendFourier(row []float64, t, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * t / period
		row = append(row, math.Sin(arg), math.Cos(arg))
	}
	return row
}

func epochDays(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}

func (f *fitted) components(t time.Time) models.ComponentPoint {
	row := f.features(t)
	trendEnd := 2 + len(f.changepoints)
	weeklyEnd := trendEnd + 2*f.weeklyOrder

	var trend, weekly, yearly float64
	for i, v := range row {
		contrib := v * f.beta[i]
		switch {
		case i < trendEnd:
			trend += contrib
		case i < weeklyEnd:
			weekly += contrib
		default:
			yearly += contrib
		}
	}
	return models.ComponentPoint{
		Timestamp: t,
		Trend:     trend * f.yScale,
		Weekly:    weekly * f.yScale,
		Yearly:    yearly * f.yScale,
	}
}

func (f *fitted) Predict(ctx context.Context, at []time.Time) ([]models.ForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.ForecastPoint, len(at))
	for i, t := range at {
		c := f.components(t)
		est := c.Trend + c.Weekly + c.Yearly

		ahead := t.Sub(f.lastTrain).Hours() / 24
		if ahead < 0 {
			ahead = 0
		}
		half := f.z * f.sigma * f.yScale * math.Sqrt(1+ahead/math.Max(f.spanDays, 1))

		out[i] = models.ForecastPoint{
			Timestamp: t,
			Estimate:  est,
			Lower:     est - half,
			Upper:     est + half,
			Trend:     c.Trend,
			Weekly:    c.Weekly,
			Yearly:    c.Yearly,
		}
	}
	return out, nil
}

func (f *fitted) Decompose(ctx context.Context, at []time.Time) ([]models.ComponentPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.ComponentPoint, len(at))
	for i, t := range at {
		out[i] = f.components(t)
	}
	return out, nil
}

var _ domsvc.Forecaster = (*AdditiveModel)(nil)
