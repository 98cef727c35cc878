package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a closed round trip: the full life of a position from first
// opening fill to the fill that returned it to flat. Derived by the
// portfolio tracker, never constructed by strategies.
type Trade struct {
	Symbol      string
	Side        Side // direction of the position: BUY for longs, SELL for shorts
	Quantity    int64
	EntryTime   time.Time
	ExitTime    time.Time
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	RealizedPnL decimal.Decimal
	Holding     time.Duration
}
