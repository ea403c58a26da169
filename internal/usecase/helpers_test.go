package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// stubSource serves a deterministic daily series per known symbol and counts calls.
type stubSource struct {
	mu      sync.Mutex
	calls   int
	known   map[string]bool
	err     error
	shuffle bool
}

func newStubSource(symbols ...string) *stubSource {
	known := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		known[s] = true
	}
	return &stubSource{known: known}
}

func (s *stubSource) History(_ context.Context, symbol string, start, end time.Time) ([]models.PriceRecord, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if !s.known[symbol] {
		return nil, nil
	}

	var out []models.PriceRecord
	// one day past end, the source sometimes includes a partial bar
	for d, i := start, 0; !d.After(end.AddDate(0, 0, 1)); d, i = d.AddDate(0, 0, 1), i+1 {
		px := 100 + float64(i)*0.25
		out = append(out, models.PriceRecord{
			Date: d.Add(3 * time.Hour), Open: px - 1, High: px + 2, Low: px - 2, Close: px, Volume: int64(1000 + i),
		})
	}
	if s.shuffle && len(out) > 2 {
		out[0], out[len(out)-1] = out[len(out)-1], out[0]
		out = append(out, out[1])
	}
	return out, nil
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubModel predicts the last training value with a fixed band and records invocations.
type stubModel struct {
	fitCalls int
	fitErr   error
	swapBand bool
}

func (m *stubModel) Fit(_ context.Context, pts []models.TrainingPoint) (domsvc.FittedModel, error) {
	m.fitCalls++
	if m.fitErr != nil {
		return nil, m.fitErr
	}
	return &stubFitted{last: pts[len(pts)-1].Value, swap: m.swapBand}, nil
}

type stubFitted struct {
	last float64
	swap bool
}

func (f *stubFitted) Predict(_ context.Context, at []time.Time) ([]models.ForecastPoint, error) {
	out := make([]models.ForecastPoint, len(at))
	// reversed on purpose, the adapter must sort
	for i, t := range at {
		lo, hi := f.last-1, f.last+1
		if f.swap {
			lo, hi = hi+5, lo-5
		}
		out[len(at)-1-i] = models.ForecastPoint{Timestamp: t, Estimate: f.last, Lower: lo, Upper: hi, Trend: f.last}
	}
	return out, nil
}

func (f *stubFitted) Decompose(_ context.Context, at []time.Time) ([]models.ComponentPoint, error) {
	out := make([]models.ComponentPoint, len(at))
	for i, t := range at {
		out[i] = models.ComponentPoint{Timestamp: t, Trend: f.last, Weekly: float64(t.Weekday()), Yearly: float64(t.YearDay())}
	}
	return out, nil
}

type stubMetrics struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
	errs   map[string]int
	runs   map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{hits: map[string]int{}, misses: map[string]int{}, errs: map[string]int{}, runs: map[string]int{}}
}

func (m *stubMetrics) RecordCacheHit(c string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[c]++
}

func (m *stubMetrics) RecordCacheMiss(c string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses[c]++
}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *stubMetrics) RecordRun(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[status]++
}

func (m *stubMetrics) RecordLastClose(string, float64) {}
func (m *stubMetrics) RecordLatency(string, float64)   {}

type stubPublisher struct {
	events []models.RunEvent
	err    error
}

func (p *stubPublisher) PublishRun(_ context.Context, ev models.RunEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

var errUpstream = errors.New("upstream unavailable")
