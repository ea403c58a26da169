package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/cache"
	applogger "PriceCast/pkg/logger"
	xutil "PriceCast/pkg/util"
)

const (
	csvCacheName = "csv"
	// CSVContentType is the MIME type of exported files.
	CSVContentType = "text/csv"
)

var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// DefaultCSVTTL bounds how long an encoded export is reused.
const DefaultCSVTTL = 24 * time.Hour

// Exporter serializes price series to CSV, caching the bytes per distinct table.
type Exporter struct {
	cache   cache.Service
	ttl     time.Duration
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

// NewExporter creates an exporter. A nil cache disables memoization; ttl 0 never expires.
func NewExporter(c cache.Service, ttl time.Duration, metrics domrepo.Metrics) *Exporter {
	return &Exporter{cache: c, ttl: ttl, metrics: metrics}
}

// SetLogger injects logger.
func (e *Exporter) SetLogger(l *applogger.Logger) { e.logger = l }

// Filename returns the download name for symbol.
func Filename(symbol string) string {
	return symbol + ".csv"
}

// csvKey identifies a series by its symbol and a digest of its records.
func csvKey(series models.PriceSeries) (string, error) {
	body, err := json.Marshal(series.Records)
	if err != nil {
		return "", err
	}
	return cache.GenerateKeyWithParams(csvCacheName, series.Symbol, cache.HashKey(string(body))), nil
}

// ToCSV renders the series with header date,open,high,low,close,volume.
func (e *Exporter) ToCSV(ctx context.Context, series models.PriceSeries) ([]byte, error) {
	key, err := csvKey(series)
	if err != nil {
		return nil, fmt.Errorf("csv key %s: %w", series.Symbol, err)
	}

	if e.cache != nil {
		var cached []byte
		err := e.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			if e.metrics != nil {
				e.metrics.RecordCacheHit(csvCacheName)
			}
			return cached, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			if e.logger != nil {
				e.logger.Warn("export.csv cache_get_error", applogger.String("key", key), applogger.Error(err))
			}
		}
		if e.metrics != nil {
			e.metrics.RecordCacheMiss(csvCacheName)
		}
	}

	out, err := EncodeCSV(series.Records)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordError("export")
		}
		return nil, fmt.Errorf("encode csv %s: %w", series.Symbol, err)
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, out, e.ttl); err != nil && e.logger != nil {
			e.logger.Warn("export.csv cache_set_error", applogger.String("key", key), applogger.Error(err))
		}
	}
	if e.logger != nil {
		e.logger.Debug("export.csv ok", applogger.String("symbol", series.Symbol), applogger.Int("bytes", len(out)))
	}
	return out, nil
}

// EncodeCSV writes records as UTF-8 CSV with a header row.
func EncodeCSV(records []models.PriceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	row := make([]string, len(csvHeader))
	for _, r := range records {
		row[0] = xutil.FormatDate(r.Date)
		row[1] = formatFloat(r.Open)
		row[2] = formatFloat(r.High)
		row[3] = formatFloat(r.Low)
		row[4] = formatFloat(r.Close)
		row[5] = strconv.FormatInt(r.Volume, 10)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses the output of EncodeCSV.
func DecodeCSV(data []byte) ([]models.PriceRecord, error) {
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("csv: missing header")
	}
	for i, h := range csvHeader {
		if i >= len(rows[0]) || rows[0][i] != h {
			return nil, fmt.Errorf("csv: unexpected header %v", rows[0])
		}
	}

	out := make([]models.PriceRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		date, ok := xutil.ParseDate(row[0])
		if !ok {
			return nil, fmt.Errorf("csv row %d: bad date %q", n+1, row[0])
		}
		var rec models.PriceRecord
		rec.Date = date
		fields := []*float64{&rec.Open, &rec.High, &rec.Low, &rec.Close}
		for i, dst := range fields {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d: %w", n+1, err)
			}
			*dst = v
		}
		vol, err := strconv.ParseInt(row[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", n+1, err)
		}
		rec.Volume = vol
		out = append(out, rec)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
