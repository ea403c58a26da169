package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/cache"
)

func sampleSeries() models.PriceSeries {
	return models.PriceSeries{
		Symbol: "BTC-USD",
		Start:  date(2018, 1, 1),
		End:    date(2018, 1, 3),
		Records: []models.PriceRecord{
			{Date: date(2018, 1, 1), Open: 14112.2, High: 14112.2, Low: 13154.7, Close: 13657.2, Volume: 10291200000},
			{Date: date(2018, 1, 2), Open: 13625, High: 15444.6, Low: 13163.6, Close: 14982.1, Volume: 16846600192},
			{Date: date(2018, 1, 3), Open: 14978.2, High: 15572.8, Low: 14844.5, Close: 15201, Volume: 16871900160},
		},
	}
}

func TestEncodeCSV_HeaderAndRows(t *testing.T) {
	out, err := EncodeCSV(sampleSeries().Records)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,open,high,low,close,volume", lines[0])
	assert.Equal(t, "2018-01-01,14112.2,14112.2,13154.7,13657.2,10291200000", lines[1])
	assert.Equal(t, "2018-01-03,14978.2,15572.8,14844.5,15201,16871900160", lines[3])
}

func TestCSV_RoundTrip(t *testing.T) {
	in := sampleSeries().Records
	out, err := EncodeCSV(in)
	require.NoError(t, err)

	back, err := DecodeCSV(out)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestDecodeCSV_RejectsForeignHeader(t *testing.T) {
	_, err := DecodeCSV([]byte("Date,Close\n2018-01-01,1\n"))
	assert.Error(t, err)
}

func TestExporter_CachesPerSeries(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	m := newStubMetrics()
	e := NewExporter(mc, DefaultCSVTTL, m)
	ctx := context.Background()

	first, err := e.ToCSV(ctx, sampleSeries())
	require.NoError(t, err)
	second, err := e.ToCSV(ctx, sampleSeries())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.misses[csvCacheName])
	assert.Equal(t, 1, m.hits[csvCacheName])

	other := sampleSeries()
	other.Records = other.Records[:2]
	third, err := e.ToCSV(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestExporter_DistinguishesSameShapedTables(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	e := NewExporter(mc, DefaultCSVTTL, newStubMetrics())
	ctx := context.Background()

	bar := func(close float64) models.PriceSeries {
		return models.PriceSeries{
			Symbol:  "BTC-USD",
			Start:   date(2024, 5, 1),
			End:     date(2024, 5, 1),
			Records: []models.PriceRecord{{Date: date(2024, 5, 1), Close: close}},
		}
	}

	morning, err := e.ToCSV(ctx, bar(100))
	require.NoError(t, err)
	evening, err := e.ToCSV(ctx, bar(250))
	require.NoError(t, err)

	assert.Equal(t, "date,open,high,low,close,volume\n2024-05-01,0,0,0,100,0\n", string(morning))
	assert.Equal(t, "date,open,high,low,close,volume\n2024-05-01,0,0,0,250,0\n", string(evening))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "ETH-USD.csv", Filename("ETH-USD"))
}
