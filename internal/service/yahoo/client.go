package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/clock"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

const (
	defaultBaseURL   = "https://query2.finance.yahoo.com"
	defaultUserAgent = "Mozilla/5.0 (compatible; PriceCast/1.0)"
)

// Option configures Client.
type Option func(*Client)

// Client implements repository.MarketData over the Yahoo Finance v8 chart API.
type Client struct {
	http      *xhttp.Client
	baseURL   string
	userAgent string
	timeout   time.Duration
	logger    *applogger.Logger
}

// New creates a Yahoo chart client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		timeout:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout))
	return c
}

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the User-Agent header; the API rejects empty ones.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// SetLogger injects logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.logger = l }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// History returns daily bars in [start, end], ascending by date.
// Unknown symbols and empty windows return an empty slice.
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceRecord, error) {
	start = clock.TruncateDay(start)
	end = clock.TruncateDay(end)
	if end.Before(start) {
		return nil, nil
	}

	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol)),
		Headers: map[string]string{
			"User-Agent": c.userAgent,
			"Accept":     "application/json",
		},
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(start.Unix(), 10)},
			"period2":  {strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10)},
			"interval": {"1d"},
			"events":   {"history"},
		},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			c.debug("yahoo.history not_found", symbol)
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	if e := resp.Chart.Error; e != nil {
		if isNoData(e) {
			c.debug("yahoo.history no_data", symbol)
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	records := decodeBars(resp.Chart.Result[0])
	return normalize(records, start, end), nil
}

func (c *Client) debug(msg, symbol string) {
	if c.logger != nil {
		c.logger.Debug(msg, applogger.String("symbol", symbol))
	}
}

func isNoData(e *chartError) bool {
	return e.Code == "Not Found" || strings.Contains(strings.ToLower(e.Description), "no data found")
}

func decodeBars(r chartResult) []models.PriceRecord {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	offset := time.Duration(r.Meta.GMTOffset) * time.Second

	out := make([]models.PriceRecord, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx, ok := at(q.Close, i)
		if !ok {
			continue
		}
		open, _ := at(q.Open, i)
		high, _ := at(q.High, i)
		low, _ := at(q.Low, i)
		vol, _ := at(q.Volume, i)

		out = append(out, models.PriceRecord{
			Date:   clock.TruncateDay(time.Unix(ts, 0).UTC().Add(offset)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: int64(vol),
		})
	}
	return out
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

// normalize sorts, drops rows outside [start, end] and keeps the last row per day.
func normalize(records []models.PriceRecord, start, end time.Time) []models.PriceRecord {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	out := records[:0]
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(r.Date) {
			out[n-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}
