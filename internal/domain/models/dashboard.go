package models

import "time"

// DashboardView is everything the presentation layer needs for one page.
type DashboardView struct {
	Title           string          `json:"title"`
	Subtitle        string          `json:"subtitle"`
	Status          string          `json:"status"`
	Symbols         []string        `json:"symbols"`
	MinHorizonYears int             `json:"min_horizon_years"`
	MaxHorizonYears int             `json:"max_horizon_years"`
	Request         ForecastRequest `json:"request"`
	Series          PriceSeries     `json:"-"`
	Head            []PriceRecord   `json:"head"`
	Tail            []PriceRecord   `json:"tail"`
	Forecast        ForecastTable   `json:"forecast"`
	Components      Decomposition   `json:"components"`
	DownloadURL     string          `json:"download_url"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// RunEvent summarizes one dashboard run for downstream consumers.
type RunEvent struct {
	Symbol       string    `json:"symbol"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	HorizonYears int       `json:"horizon_years"`
	HorizonDays  int       `json:"horizon_days"`
	Rows         int       `json:"rows"`
	ForecastRows int       `json:"forecast_rows"`
	LastClose    float64   `json:"last_close"`
	DurationMs   int64     `json:"duration_ms"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}
