package models

import "time"

// ForecastRequest is the validated user selection driving one dashboard run.
type ForecastRequest struct {
	Symbol       string    `json:"symbol"`
	StartDate    time.Time `json:"start_date"`
	HorizonYears int       `json:"horizon_years"`
}

// ForecastPoint is one model output row.
type ForecastPoint struct {
	Timestamp time.Time `json:"ds"`
	Estimate  float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
	Trend     float64   `json:"trend"`
	Weekly    float64   `json:"weekly"`
	Yearly    float64   `json:"yearly"`
}

// ForecastTable covers every training timestamp plus HorizonDays future days, ascending.
type ForecastTable struct {
	Symbol      string          `json:"symbol"`
	HorizonDays int             `json:"horizon_days"`
	Points      []ForecastPoint `json:"points"`
}

// ComponentPoint is the additive decomposition of the model at one timestamp.
type ComponentPoint struct {
	Timestamp time.Time `json:"ds"`
	Trend     float64   `json:"trend"`
	Weekly    float64   `json:"weekly"`
	Yearly    float64   `json:"yearly"`
}

// ProfilePoint is one labelled sample of a component profile.
type ProfilePoint struct {
	Label     string    `json:"label"`
	Timestamp time.Time `json:"ds"`
	Value     float64   `json:"value"`
}

// Decomposition holds the profiles shown in the components chart.
// Weekly spans Monday..Sunday and Yearly one calendar year.
type Decomposition struct {
	Trend  []ProfilePoint `json:"trend"`
	Weekly []ProfilePoint `json:"weekly"`
	Yearly []ProfilePoint `json:"yearly"`
}
