package models

import "time"

// PriceRecord is one daily bar. Date is normalized to UTC midnight.
type PriceRecord struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is the ordered daily history of one symbol over [Start, End].
// Records are strictly ascending by Date with no duplicates.
type PriceSeries struct {
	Symbol  string        `json:"symbol"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Records []PriceRecord `json:"records"`
}

// Len returns the number of records.
func (s PriceSeries) Len() int { return len(s.Records) }

// Head returns up to n leading records.
func (s PriceSeries) Head(n int) []PriceRecord {
	if n > len(s.Records) {
		n = len(s.Records)
	}
	if n < 0 {
		n = 0
	}
	return s.Records[:n]
}

// Tail returns up to n trailing records.
func (s PriceSeries) Tail(n int) []PriceRecord {
	if n > len(s.Records) {
		n = len(s.Records)
	}
	if n < 0 {
		n = 0
	}
	return s.Records[len(s.Records)-n:]
}

// Last returns the latest record.
func (s PriceSeries) Last() (PriceRecord, bool) {
	if len(s.Records) == 0 {
		return PriceRecord{}, false
	}
	return s.Records[len(s.Records)-1], true
}

// TrainingPoint is the (timestamp, value) pair fed to a model. Value is the close.
type TrainingPoint struct {
	Timestamp time.Time `json:"ds"`
	Value     float64   `json:"y"`
}
