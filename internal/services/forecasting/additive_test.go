package forecasting

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
)

var t0 = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

func synthetic(days int, f func(i int, ts time.Time) float64) []models.TrainingPoint {
	pts := make([]models.TrainingPoint, days)
	for i := range pts {
		ts := t0.AddDate(0, 0, i)
		pts[i] = models.TrainingPoint{Timestamp: ts, Value: f(i, ts)}
	}
	return pts
}

func dates(from time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = from.AddDate(0, 0, i)
	}
	return out
}

func TestAdditiveModel_RecoversLinearTrend(t *testing.T) {
	pts := synthetic(200, func(i int, _ time.Time) float64 { return 100 + 0.5*float64(i) })

	fm, err := NewAdditiveModel().Fit(context.Background(), pts)
	require.NoError(t, err)

	at := dates(t0, 230)
	out, err := fm.Predict(context.Background(), at)
	require.NoError(t, err)
	require.Len(t, out, 230)

	for i, p := range out {
		want := 100 + 0.5*float64(i)
		assert.InDelta(t, want, p.Estimate, 2.0, "day %d", i)
		assert.LessOrEqual(t, p.Lower, p.Estimate)
		assert.LessOrEqual(t, p.Estimate, p.Upper)
		assert.InDelta(t, p.Trend+p.Weekly+p.Yearly, p.Estimate, 1e-9)
	}
}

func TestAdditiveModel_CapturesWeeklySeasonality(t *testing.T) {
	pts := synthetic(140, func(_ int, ts time.Time) float64 {
		if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
			return 90
		}
		return 110
	})

	fm, err := NewAdditiveModel(WithSeasonalityOrders(3, 0)).Fit(context.Background(), pts)
	require.NoError(t, err)

	// 2018-01-06 is a Saturday, 2018-01-08 a Monday
	comps, err := fm.Decompose(context.Background(), []time.Time{
		time.Date(2018, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 1, 8, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Less(t, comps[0].Weekly, comps[1].Weekly)
}

func TestAdditiveModel_IntervalWidensWithHorizon(t *testing.T) {
	pts := synthetic(120, func(i int, _ time.Time) float64 {
		return 50 + math.Sin(float64(i)*1.3)*3
	})

	fm, err := NewAdditiveModel().Fit(context.Background(), pts)
	require.NoError(t, err)

	last := pts[len(pts)-1].Timestamp
	out, err := fm.Predict(context.Background(), []time.Time{last, last.AddDate(0, 0, 365)})
	require.NoError(t, err)

	near := out[0].Upper - out[0].Lower
	far := out[1].Upper - out[1].Lower
	assert.Greater(t, near, 0.0)
	assert.Greater(t, far, near)
}

func TestAdditiveModel_RejectsDegenerateInput(t *testing.T) {
	m := NewAdditiveModel()
	ctx := context.Background()

	_, err := m.Fit(ctx, nil)
	assert.Error(t, err)

	_, err = m.Fit(ctx, []models.TrainingPoint{{Timestamp: t0, Value: 1}, {Timestamp: t0, Value: 2}})
	assert.Error(t, err)

	_, err = m.Fit(ctx, []models.TrainingPoint{{Timestamp: t0, Value: 1}, {Timestamp: t0.AddDate(0, 0, 1), Value: math.NaN()}})
	assert.Error(t, err)
}

func TestAdditiveModel_TwoPointsFit(t *testing.T) {
	pts := []models.TrainingPoint{{Timestamp: t0, Value: 10}, {Timestamp: t0.AddDate(0, 0, 1), Value: 12}}
	fm, err := NewAdditiveModel().Fit(context.Background(), pts)
	require.NoError(t, err)

	out, err := fm.Predict(context.Background(), dates(t0, 3))
	require.NoError(t, err)
	assert.InDelta(t, 14, out[2].Estimate, 0.1)
}

func TestAdditiveModel_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAdditiveModel().Fit(ctx, synthetic(10, func(i int, _ time.Time) float64 { return float64(i) }))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdditiveModel_LongHistoryEnablesYearly(t *testing.T) {
	pts := synthetic(800, func(_ int, ts time.Time) float64 {
		return 100 + 10*math.Sin(2*math.Pi*float64(ts.YearDay())/365.25)
	})
	fm, err := NewAdditiveModel().Fit(context.Background(), pts)
	require.NoError(t, err)

	f, ok := fm.(*fitted)
	require.True(t, ok)
	assert.Equal(t, defaultYearlyOrder, f.yearlyOrder)
	assert.Equal(t, defaultWeeklyOrder, f.weeklyOrder)
	assert.NotEmpty(t, f.changepoints)
}
