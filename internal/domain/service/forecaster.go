package service

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
)

// Forecaster fits an additive time-series model to training points.
type Forecaster interface {
	Fit(ctx context.Context, points []models.TrainingPoint) (FittedModel, error)
}

// FittedModel predicts and decomposes at arbitrary timestamps.
type FittedModel interface {
	Predict(ctx context.Context, at []time.Time) ([]models.ForecastPoint, error)
	Decompose(ctx context.Context, at []time.Time) ([]models.ComponentPoint, error)
}
