package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshot is a read-only copy of a position at a point in time.
type PositionSnapshot struct {
	Symbol        string
	Quantity      int64
	AvgEntryPrice decimal.Decimal
	LastPrice     decimal.Decimal
	RealizedPnL   decimal.Decimal
	EntryTime     time.Time
}

// MarketValue is quantity times the last mark price.
func (ps PositionSnapshot) MarketValue() decimal.Decimal {
	return ps.LastPrice.Mul(decimal.NewFromInt(ps.Quantity))
}

// UnrealizedPnL is the open profit against the average entry price.
func (ps PositionSnapshot) UnrealizedPnL() decimal.Decimal {
	return ps.LastPrice.Sub(ps.AvgEntryPrice).Mul(decimal.NewFromInt(ps.Quantity))
}

// PortfolioView is a read-only copy of the whole portfolio, handed to
// brokers and strategies so they can never mutate tracker state.
type PortfolioView struct {
	Cash      decimal.Decimal
	Positions map[string]PositionSnapshot
	Time      time.Time
}

// Equity is cash plus the market value of every position.
func (v PortfolioView) Equity() decimal.Decimal {
	equity := v.Cash
	for _, pos := range v.Positions {
		equity = equity.Add(pos.MarketValue())
	}
	return equity
}

// PortfolioSnapshot is one point on the equity curve. Exactly one snapshot
// is appended per distinct timestamp in the merged bar stream.
type PortfolioSnapshot struct {
	Time   time.Time
	Cash   decimal.Decimal
	Equity decimal.Decimal
}
