package repository

import (
	"context"
	"time"

	"PriceCast/internal/domain/models"
)

// MarketData returns daily bars for symbol within [start, end].
// An unknown symbol or empty window yields an empty slice and no error.
type MarketData interface {
	History(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceRecord, error)
}

// RunPublisher ships run summaries to downstream consumers.
type RunPublisher interface {
	PublishRun(ctx context.Context, ev models.RunEvent) error
	Close() error
}

type Metrics interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
	RecordLatency(stage string, seconds float64)
	RecordRun(status string)
}
