package smacross

import (
	"backsim/internal/engine"
	"backsim/types"

	"github.com/shopspring/decimal"
)

// Strategy trades a simple moving average crossover. It buys when the fast
// average closes above the slow average and exits the position on the
// opposite cross. Long only.
type Strategy struct {
	engine.NopStrategy

	FastPeriod int
	SlowPeriod int

	// RiskPercent of available cash committed per entry.
	RiskPercent decimal.Decimal

	// closes per ticker, newest last
	closes map[string][]decimal.Decimal
	// fast > slow on the previous bar, per ticker
	wasAbove map[string]bool
}

func New(fastPeriod, slowPeriod int, riskPercent decimal.Decimal) *Strategy {
	return &Strategy{
		FastPeriod:  fastPeriod,
		SlowPeriod:  slowPeriod,
		RiskPercent: riskPercent,
	}
}

func (s *Strategy) OnStart(_ *engine.Context) error {
	s.closes = make(map[string][]decimal.Decimal)
	s.wasAbove = make(map[string]bool)
	return nil
}

func (s *Strategy) OnBar(ctx *engine.Context, bar types.Bar) {
	hist := append(s.closes[bar.Symbol], bar.Close)
	s.closes[bar.Symbol] = hist

	// Need a full slow window before the averages mean anything.
	if len(hist) < s.SlowPeriod {
		return
	}

	fast := sma(hist, s.FastPeriod)
	slow := sma(hist, s.SlowPeriod)
	above := fast.GreaterThan(slow)
	crossedUp := above && !s.wasAbove[bar.Symbol]
	crossedDown := !above && s.wasAbove[bar.Symbol]
	s.wasAbove[bar.Symbol] = above

	// Warmup: record the first relation without trading on it.
	if len(hist) == s.SlowPeriod {
		return
	}

	pos, held := ctx.GetPosition(bar.Symbol)

	if crossedUp && !held {
		qty := ctx.SizeByRiskPercent(bar.Close, s.RiskPercent)
		if qty > 0 && ctx.CanAfford(qty, bar.Close) {
			ctx.Buy(bar.Symbol, qty)
		}
		return
	}

	if crossedDown && held && pos.Quantity > 0 {
		ctx.Sell(bar.Symbol, pos.Quantity)
	}
}

// Utility: simple moving average over the trailing period closes.
func sma(closes []decimal.Decimal, period int) decimal.Decimal {
	if period <= 0 || len(closes) < period {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range closes[len(closes)-period:] {
		sum = sum.Add(c)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}
