package forecasting

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
)

const prophetPath = "/prophet/forecast"

// ProphetClient delegates fitting to an external Prophet sidecar. The sidecar is
// stateless, so Fit only captures the history and every call re-sends it.
type ProphetClient struct {
	base          *HTTPServiceBase
	intervalWidth float64
}

// NewProphetClient creates a client for the sidecar at baseURL.
func NewProphetClient(baseURL string, timeout time.Duration, intervalWidth float64) *ProphetClient {
	return &ProphetClient{base: NewHTTPServiceBase(baseURL, timeout), intervalWidth: intervalWidth}
}

type prophetRow struct {
	DS string  `json:"ds"`
	Y  float64 `json:"y"`
}

type prophetReq struct {
	History       []prophetRow `json:"history"`
	DS            []string     `json:"ds"`
	IntervalWidth float64      `json:"interval_width"`
}

type prophetPoint struct {
	DS        string  `json:"ds"`
	YHat      float64 `json:"yhat"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
	Trend     float64 `json:"trend"`
	Weekly    float64 `json:"weekly"`
	Yearly    float64 `json:"yearly"`
}

type prophetResp struct {
	Forecast []prophetPoint `json:"forecast"`
}

func (p *ProphetClient) Fit(ctx context.Context, points []models.TrainingPoint) (domsvc.FittedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 points, got %d", len(points))
	}
	history := make([]prophetRow, len(points))
	for i, pt := range points {
		history[i] = prophetRow{DS: pt.Timestamp.UTC().Format(dateLayout), Y: pt.Value}
	}
	return &prophetModel{client: p, history: history}, nil
}

type prophetModel struct {
	client  *ProphetClient
	history []prophetRow
}

func (m *prophetModel) call(ctx context.Context, at []time.Time) ([]prophetPoint, error) {
	ds := make([]string, len(at))
	for i, t := range at {
		ds[i] = t.UTC().Format(dateLayout)
	}
	var resp prophetResp
	err := m.client.base.PostJSON(ctx, prophetPath, prophetReq{
		History:       m.history,
		DS:            ds,
		IntervalWidth: m.client.intervalWidth,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("prophet forecast: %w", err)
	}
	if len(resp.Forecast) != len(at) {
		return nil, fmt.Errorf("prophet forecast: expected %d rows, got %d", len(at), len(resp.Forecast))
	}
	return resp.Forecast, nil
}

func (m *prophetModel) Predict(ctx context.Context, at []time.Time) ([]models.ForecastPoint, error) {
	rows, err := m.call(ctx, at)
	if err != nil {
		return nil, err
	}
	out := make([]models.ForecastPoint, len(rows))
	for i, r := range rows {
		out[i] = models.ForecastPoint{
			Timestamp: at[i],
			Estimate:  r.YHat,
			Lower:     r.YHatLower,
			Upper:     r.YHatUpper,
			Trend:     r.Trend,
			Weekly:    r.Weekly,
			Yearly:    r.Yearly,
		}
	}
	return out, nil
}

func (m *prophetModel) Decompose(ctx context.Context, at []time.Time) ([]models.ComponentPoint, error) {
	rows, err := m.call(ctx, at)
	if err != nil {
		return nil, err
	}
	out := make([]models.ComponentPoint, len(rows))
	for i, r := range rows {
		out[i] = models.ComponentPoint{Timestamp: at[i], Trend: r.Trend, Weekly: r.Weekly, Yearly: r.Yearly}
	}
	return out, nil
}

var _ domsvc.Forecaster = (*ProphetClient)(nil)
