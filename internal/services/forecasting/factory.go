package forecasting

import (
	"fmt"

	domsvc "PriceCast/internal/domain/service"
	"PriceCast/pkg/config"
)

// NewFromConfig selects the model implementation named by forecast.engine.
func NewFromConfig(cfg *config.Config) (domsvc.Forecaster, error) {
	switch cfg.Forecast.Engine {
	case "", "local":
		return NewAdditiveModel(WithIntervalWidth(cfg.Forecast.IntervalWidth)), nil
	case "prophet":
		return NewProphetClient(cfg.Forecast.ServiceURL, cfg.Forecast.Timeout, cfg.Forecast.IntervalWidth), nil
	default:
		return nil, fmt.Errorf("unknown forecast engine %q", cfg.Forecast.Engine)
	}
}
