package types

import (
	"fmt"
	"strings"
	"time"
)

type Timeframe string

const (
	OneMinute      Timeframe = "1Min"
	FiveMinutes    Timeframe = "5Min"
	FifteenMinutes Timeframe = "15Min"
	Hour           Timeframe = "1Hour"
	Day            Timeframe = "1Day"
)

var TimeframeToDuration = map[Timeframe]time.Duration{
	OneMinute:      time.Minute,
	FiveMinutes:    time.Minute * 5,
	FifteenMinutes: time.Minute * 15,
	Hour:           time.Hour,
	Day:            time.Hour * 24,
}

// tradingPeriodsPerYear assumes 252 trading days and a 6.5 hour session for
// intraday timeframes.
var tradingPeriodsPerYear = map[Timeframe]float64{
	OneMinute:      252 * 6.5 * 60,
	FiveMinutes:    252 * 6.5 * 12,
	FifteenMinutes: 252 * 6.5 * 4,
	Hour:           252 * 6.5,
	Day:            252,
}

// PeriodsPerYear returns the annualization factor for this timeframe, used
// by risk-adjusted return metrics.
func (tf Timeframe) PeriodsPerYear() float64 {
	return tradingPeriodsPerYear[tf]
}

// Duration returns the wall-clock length of one bar.
func (tf Timeframe) Duration() time.Duration {
	return TimeframeToDuration[tf]
}

// Valid reports whether tf is one of the supported timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := TimeframeToDuration[tf]
	return ok
}

var timeframeAliases = map[string]Timeframe{
	"1min":  OneMinute,
	"1m":    OneMinute,
	"5min":  FiveMinutes,
	"5m":    FiveMinutes,
	"15min": FifteenMinutes,
	"15m":   FifteenMinutes,
	"1hour": Hour,
	"1h":    Hour,
	"hour":  Hour,
	"1day":  Day,
	"1d":    Day,
	"day":   Day,
}

// ParseTimeframe converts a config string like "1Day" or "5m" into a
// Timeframe. The set is closed; anything else is an error.
func ParseTimeframe(s string) (Timeframe, error) {
	tf, ok := timeframeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
	return tf, nil
}
