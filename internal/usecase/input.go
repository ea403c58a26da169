package usecase

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/clock"
	xutil "PriceCast/pkg/util"
)

// Selection is the raw user choice as it arrives from the page or the API.
type Selection struct {
	Symbol string
	Start  string
	Years  int
}

// CollectorOption configures Collector.
type CollectorOption func(*Collector)

// Collector turns a Selection into a ForecastRequest.
type Collector struct {
	symbols      []string
	symbolRule   string
	defaultStart time.Time
	minYears     int
	maxYears     int
	clock        clock.Clock
	validate     *validator.Validate
}

// NewCollector creates a collector over the enumerated symbols. The first symbol is the default.
func NewCollector(symbols []string, opts ...CollectorOption) *Collector {
	c := &Collector{
		symbols:      symbols,
		symbolRule:   "required,oneof=" + strings.Join(symbols, " "),
		defaultStart: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		minYears:     1,
		maxYears:     4,
		clock:        clock.Real{},
		validate:     validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithDefaultStart sets the start date used when none is selected.
func WithDefaultStart(t time.Time) CollectorOption {
	return func(c *Collector) {
		if !t.IsZero() {
			c.defaultStart = clock.TruncateDay(t)
		}
	}
}

// WithHorizonBounds sets the inclusive range of selectable years.
func WithHorizonBounds(lo, hi int) CollectorOption {
	return func(c *Collector) {
		if lo >= 1 && hi >= lo {
			c.minYears, c.maxYears = lo, hi
		}
	}
}

// WithCollectorClock sets the clock used for "today".
func WithCollectorClock(clk clock.Clock) CollectorOption {
	return func(c *Collector) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// Symbols returns the selectable symbols in display order.
func (c *Collector) Symbols() []string { return c.symbols }

// HorizonBounds returns the selectable year range.
func (c *Collector) HorizonBounds() (int, int) { return c.minYears, c.maxYears }

// Collect applies defaults, validates the symbol and start date, and clamps the horizon.
func (c *Collector) Collect(sel Selection) (models.ForecastRequest, error) {
	symbol := strings.TrimSpace(sel.Symbol)
	if symbol == "" && len(c.symbols) > 0 {
		symbol = c.symbols[0]
	}
	if err := c.validate.Var(symbol, c.symbolRule); err != nil {
		return models.ForecastRequest{}, models.InvalidSelectionf("symbol %q is not one of %s", symbol, strings.Join(c.symbols, ", "))
	}

	start := c.defaultStart
	if s := strings.TrimSpace(sel.Start); s != "" {
		parsed, ok := xutil.ParseDate(s)
		if !ok {
			return models.ForecastRequest{}, models.InvalidSelectionf("start date %q is not YYYY-MM-DD", s)
		}
		start = parsed
	}
	if today := clock.Today(c.clock); start.After(today) {
		start = today
	}

	years := sel.Years
	if years < c.minYears {
		years = c.minYears
	}
	if years > c.maxYears {
		years = c.maxYears
	}

	return models.ForecastRequest{
		Symbol:       symbol,
		StartDate:    start,
		HorizonYears: years,
	}, nil
}
