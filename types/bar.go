package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV sample for a symbol over a fixed interval. Bars are
// immutable once produced by a data source.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timeframe Timeframe       `json:"timeframe"`
	Timestamp time.Time       `json:"timestamp"`
}

// Before reports whether b sorts ahead of other under the global replay
// ordering (timestamp first, then symbol lexicographically as tie-break).
func (b Bar) Before(other Bar) bool {
	if !b.Timestamp.Equal(other.Timestamp) {
		return b.Timestamp.Before(other.Timestamp)
	}
	return b.Symbol < other.Symbol
}
