package models

// Query parameters accepted by the dashboard, forecast and download endpoints.
// Empty fields fall back to configured defaults in the input collector.

type DashboardQuery struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=32"`
	Start  string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	Years  int    `query:"years" json:"years" default:"1" validate:"gte=0,lte=100"`
}

type PricesQuery struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=32"`
	Start  string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
}
