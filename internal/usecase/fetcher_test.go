package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/cache"
	"PriceCast/pkg/clock"
)

func newTestFetcher(src *stubSource, m *stubMetrics) (*Fetcher, *cache.MemoryCache) {
	mc := cache.NewMemoryCache()
	clk := clock.NewFixed(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC))
	return NewFetcher(src, mc, m, clk), mc
}

func TestFetcher_AscendingUpToToday(t *testing.T) {
	src := newStubSource("BTC-USD")
	src.shuffle = true
	f, mc := newTestFetcher(src, newStubMetrics())
	defer mc.Close()

	series, err := f.FetchToday(context.Background(), "BTC-USD", date(2024, 1, 1))
	require.NoError(t, err)

	today := date(2024, 5, 1)
	assert.Equal(t, today, series.End)
	require.NotEmpty(t, series.Records)
	assert.Equal(t, date(2024, 1, 1), series.Records[0].Date)
	assert.Equal(t, today, series.Records[len(series.Records)-1].Date)
	for i := 1; i < len(series.Records); i++ {
		assert.True(t, series.Records[i-1].Date.Before(series.Records[i].Date), "row %d not strictly ascending", i)
	}
	for _, r := range series.Records {
		assert.False(t, r.Date.After(today))
	}
}

func TestFetcher_MemoizesPerKey(t *testing.T) {
	src := newStubSource("BTC-USD", "ETH-USD")
	m := newStubMetrics()
	f, mc := newTestFetcher(src, m)
	defer mc.Close()
	ctx := context.Background()

	first, err := f.Fetch(ctx, "BTC-USD", date(2024, 1, 1), date(2024, 2, 1))
	require.NoError(t, err)
	second, err := f.Fetch(ctx, "BTC-USD", date(2024, 1, 1), date(2024, 2, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.hits[pricesCacheName])
	assert.Equal(t, 1, m.misses[pricesCacheName])

	_, err = f.Fetch(ctx, "ETH-USD", date(2024, 1, 1), date(2024, 2, 1))
	require.NoError(t, err)
	_, err = f.Fetch(ctx, "BTC-USD", date(2024, 1, 2), date(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, src.Calls())
}

func TestFetcher_EmptySeries(t *testing.T) {
	src := newStubSource("BTC-USD")
	f, mc := newTestFetcher(src, newStubMetrics())
	defer mc.Close()

	_, err := f.Fetch(context.Background(), "ZZZ-USD", date(2018, 1, 1), date(2024, 5, 1))
	var empty *models.EmptySeriesError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "ZZZ-USD", empty.Symbol)

	ok, _ := mc.Exists(context.Background(), PricesKey("ZZZ-USD", date(2018, 1, 1), date(2024, 5, 1)))
	assert.False(t, ok, "empty results are not memoized")
}

func TestFetcher_SourceFailure(t *testing.T) {
	src := newStubSource("BTC-USD")
	src.err = errUpstream
	m := newStubMetrics()
	f, mc := newTestFetcher(src, m)
	defer mc.Close()

	_, err := f.Fetch(context.Background(), "BTC-USD", date(2018, 1, 1), date(2018, 2, 1))
	var fe *models.FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 1, m.errs["fetch"])
}

func TestFetcher_WithoutCache(t *testing.T) {
	src := newStubSource("BTC-USD")
	f := NewFetcher(src, nil, nil, clock.NewFixed(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	for i := 0; i < 2; i++ {
		_, err := f.FetchToday(context.Background(), "BTC-USD", date(2024, 4, 1))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.Calls())
}

func TestPricesKey(t *testing.T) {
	assert.Equal(t, "prices:BTC-USD:2018-01-01:2024-05-01", PricesKey("BTC-USD", date(2018, 1, 1), date(2024, 5, 1)))
}
