package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSelection marks user input outside the accepted choices.
var ErrInvalidSelection = errors.New("invalid selection")

// FetchError means the market data source failed (network, HTTP, decoding).
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmptySeriesError means the source answered but had no rows for the window.
type EmptySeriesError struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("no price data for %s between %s and %s",
		e.Symbol, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

// FitError means the model could not be fit or could not predict.
type FitError struct {
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model fit failed: %s: %v", e.Reason, e.Err)
	}
	return "model fit failed: " + e.Reason
}

func (e *FitError) Unwrap() error { return e.Err }

// InvalidSelectionf wraps ErrInvalidSelection with detail.
func InvalidSelectionf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSelection, fmt.Sprintf(format, a...))
}
