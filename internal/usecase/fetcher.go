package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/cache"
	"PriceCast/pkg/clock"
	applogger "PriceCast/pkg/logger"
	xutil "PriceCast/pkg/util"
)

const pricesCacheName = "prices"

// PricesKeyPrefix starts every fetch memoization key.
const PricesKeyPrefix = pricesCacheName + ":"

// Fetcher retrieves daily price history and memoizes it per (symbol, start, end).
type Fetcher struct {
	source  domrepo.MarketData
	cache   cache.Service
	metrics domrepo.Metrics
	clock   clock.Clock
	logger  *applogger.Logger
}

// NewFetcher creates a fetcher. A nil cache disables memoization.
func NewFetcher(source domrepo.MarketData, c cache.Service, metrics domrepo.Metrics, clk clock.Clock) *Fetcher {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Fetcher{source: source, cache: c, metrics: metrics, clock: clk}
}

// SetLogger injects logger.
func (f *Fetcher) SetLogger(l *applogger.Logger) { f.logger = l }

// Today returns the fetcher's notion of the current date.
func (f *Fetcher) Today() time.Time { return clock.Today(f.clock) }

// PricesKey is the memoization key of a fetch.
func PricesKey(symbol string, start, end time.Time) string {
	return cache.GenerateKeyWithParams(pricesCacheName, symbol, xutil.FormatDate(start), xutil.FormatDate(end))
}

// FetchToday fetches [start, today].
func (f *Fetcher) FetchToday(ctx context.Context, symbol string, start time.Time) (models.PriceSeries, error) {
	return f.Fetch(ctx, symbol, start, f.Today())
}

// Fetch returns the ascending daily series for symbol in [start, end].
// Identical arguments hit the cache after the first successful call.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	start = clock.TruncateDay(start)
	end = clock.TruncateDay(end)
	key := PricesKey(symbol, start, end)

	if f.cache != nil {
		var records []models.PriceRecord
		err := f.cache.Get(ctx, key, &records)
		switch {
		case err == nil:
			if f.metrics != nil {
				f.metrics.RecordCacheHit(pricesCacheName)
			}
			if f.logger != nil {
				f.logger.Debug("prices.fetch cache_hit", applogger.String("key", key), applogger.Int("rows", len(records)))
			}
			return models.PriceSeries{Symbol: symbol, Start: start, End: end, Records: records}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			if f.logger != nil {
				f.logger.Warn("prices.fetch cache_get_error", applogger.String("key", key), applogger.Error(err))
			}
		}
		if f.metrics != nil {
			f.metrics.RecordCacheMiss(pricesCacheName)
		}
	}

	began := time.Now()
	raw, err := f.source.History(ctx, symbol, start, end)
	if f.metrics != nil {
		f.metrics.RecordLatency("fetch", time.Since(began).Seconds())
	}
	if err != nil {
		if f.metrics != nil {
			f.metrics.RecordError("fetch")
		}
		if f.logger != nil {
			f.logger.Error("prices.fetch failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return models.PriceSeries{}, &models.FetchError{Symbol: symbol, Err: err}
	}

	records := normalizeRecords(raw, end)
	if len(records) == 0 {
		if f.metrics != nil {
			f.metrics.RecordError("empty_series")
		}
		return models.PriceSeries{}, &models.EmptySeriesError{Symbol: symbol, Start: start, End: end}
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, records, cache.NoExpiration); err != nil && f.logger != nil {
			f.logger.Warn("prices.fetch cache_set_error", applogger.String("key", key), applogger.Error(err))
		}
	}

	last := records[len(records)-1]
	if f.metrics != nil {
		f.metrics.RecordLastClose(symbol, last.Close)
	}
	if f.logger != nil {
		f.logger.Info("prices.fetch ok",
			applogger.String("symbol", symbol),
			applogger.Date("start", start),
			applogger.Date("end", end),
			applogger.Int("rows", len(records)),
			applogger.Duration("took_ms", time.Since(began)),
		)
	}

	return models.PriceSeries{Symbol: symbol, Start: start, End: end, Records: records}, nil
}

// normalizeRecords truncates dates to UTC midnight, sorts ascending, drops rows after end
// and keeps the last row for any repeated date.
func normalizeRecords(in []models.PriceRecord, end time.Time) []models.PriceRecord {
	out := make([]models.PriceRecord, 0, len(in))
	for _, r := range in {
		r.Date = clock.TruncateDay(r.Date)
		if r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, r := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(r.Date) {
			dedup[n-1] = r
			continue
		}
		dedup = append(dedup, r)
	}
	return dedup
}
