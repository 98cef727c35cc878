package engine

import (
	"backsim/types"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNoSymbols          = errors.New("no symbols configured")
	ErrInvalidTimeframe   = errors.New("invalid timeframe")
	ErrInvalidTimeRange   = errors.New("end must be after start")
	ErrNonPositiveCash    = errors.New("initial cash must be positive")
	ErrNegativeCommission = errors.New("commission per share must not be negative")
	ErrNegativeSlippage   = errors.New("slippage percent must not be negative")
)

// BacktestConfig is the configuration surface consumed by the core. It is
// built by external setup (cmd, tests) and validated fail-fast before any
// bar is processed.
type BacktestConfig struct {
	Symbols   []string
	Timeframe types.Timeframe
	Start     time.Time
	End       time.Time

	InitialCash        decimal.Decimal
	CommissionPerShare decimal.Decimal
	// SlippagePercent is expressed in percent: 0.5 means 0.5%.
	SlippagePercent decimal.Decimal
	// CashFloor stops the run early once total equity drops below it.
	// Zero disables early termination.
	CashFloor         decimal.Decimal
	AllowShortSelling bool
}

func (c *BacktestConfig) Validate() error {
	if len(c.Symbols) == 0 {
		return ErrNoSymbols
	}
	for _, sym := range c.Symbols {
		if sym == "" {
			return fmt.Errorf("%w: empty symbol", ErrNoSymbols)
		}
	}
	if !c.Timeframe.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTimeframe, c.Timeframe)
	}
	if !c.End.After(c.Start) {
		return ErrInvalidTimeRange
	}
	if !c.InitialCash.IsPositive() {
		return ErrNonPositiveCash
	}
	if c.CommissionPerShare.IsNegative() {
		return ErrNegativeCommission
	}
	if c.SlippagePercent.IsNegative() {
		return ErrNegativeSlippage
	}
	return nil
}

// ReportingConfig controls what the engine does with the finished report.
type ReportingConfig struct {
	PrintTrades   bool
	TradesCSVPath string
	EquityCSVPath string
}
