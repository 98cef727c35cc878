package engine

import (
	"backsim/types"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientCash    = errors.New("insufficient cash when applying fill")
	ErrShortSellNotAllowed = errors.New("short sell not allowed, fill would make position negative")
	ErrUnknownSide         = errors.New("unknown fill side")
)

// Position is live portfolio state for one symbol. Quantity is signed:
// positive long, negative short, zero means the position is gone.
type Position struct {
	Symbol        string
	Quantity      int64
	AvgEntryPrice decimal.Decimal
	LastPrice     decimal.Decimal
	RealizedPnL   decimal.Decimal
	EntryTime     time.Time

	// closing-leg aggregates for the Trade emitted when the position
	// returns to flat
	closedQty  int64
	closeValue decimal.Decimal
}

// portfolio is the single authoritative holder of cash, positions, realized
// P&L, the trade log, and the equity curve. Only fills mutate it, and the
// broker guarantees every fill it hands over is affordable.
type portfolio struct {
	initialCash       decimal.Decimal
	cash              decimal.Decimal
	positions         map[string]*Position
	realizedPnL       decimal.Decimal
	totalCommission   decimal.Decimal
	fills             []types.Fill
	trades            []types.Trade
	snapshots         []types.PortfolioSnapshot
	allowShortSelling bool
}

func newPortfolio(initialCash decimal.Decimal, allowShortSelling bool) *portfolio {
	return &portfolio{
		initialCash:       initialCash,
		cash:              initialCash,
		positions:         make(map[string]*Position),
		allowShortSelling: allowShortSelling,
	}
}

// applyFill atomically updates cash, the position, and realized P&L for one
// fill. Errors here mean the broker let an unaffordable fill through; no
// partial update is left behind in that case.
func (p *portfolio) applyFill(fill types.Fill) error {
	qty := decimal.NewFromInt(fill.Quantity)

	var signedQty int64
	var newCash decimal.Decimal
	switch fill.Side {
	case types.SideTypeBuy:
		signedQty = fill.Quantity
		newCash = p.cash.Sub(fill.Price.Mul(qty)).Sub(fill.Commission)
	case types.SideTypeSell:
		signedQty = -fill.Quantity
		newCash = p.cash.Add(fill.Price.Mul(qty)).Sub(fill.Commission)
	default:
		return ErrUnknownSide
	}
	if newCash.IsNegative() {
		return ErrInsufficientCash
	}

	pos := p.positions[fill.Symbol]
	oldQty := int64(0)
	if pos != nil {
		oldQty = pos.Quantity
	}
	newQty := oldQty + signedQty
	if !p.allowShortSelling && newQty < 0 {
		return ErrShortSellNotAllowed
	}

	p.cash = newCash
	p.totalCommission = p.totalCommission.Add(fill.Commission)
	p.fills = append(p.fills, fill)

	switch {
	case oldQty == 0:
		p.positions[fill.Symbol] = &Position{
			Symbol:        fill.Symbol,
			Quantity:      newQty,
			AvgEntryPrice: fill.Price,
			LastPrice:     fill.Price,
			EntryTime:     fill.Time,
		}

	case sameSide(oldQty, newQty) && abs(newQty) > abs(oldQty):
		// scale-in: size-weighted average entry
		pos.AvgEntryPrice = weightedAvg(pos.AvgEntryPrice, abs(oldQty), fill.Price, fill.Quantity)
		pos.Quantity = newQty
		pos.LastPrice = fill.Price

	case newQty == 0:
		p.reduce(pos, fill, abs(oldQty))
		p.trades = append(p.trades, p.closeTrade(pos, oldQty, fill.Time))
		delete(p.positions, fill.Symbol)

	case sameSide(oldQty, newQty):
		// partial reduction
		p.reduce(pos, fill, abs(signedQty))
		pos.Quantity = newQty
		pos.LastPrice = fill.Price

	default:
		// flip: close the whole old position, open the remainder the
		// other way at the fill price
		p.reduce(pos, fill, abs(oldQty))
		p.trades = append(p.trades, p.closeTrade(pos, oldQty, fill.Time))
		p.positions[fill.Symbol] = &Position{
			Symbol:        fill.Symbol,
			Quantity:      newQty,
			AvgEntryPrice: fill.Price,
			LastPrice:     fill.Price,
			EntryTime:     fill.Time,
		}
	}

	return nil
}

// reduce realizes P&L on closedQty shares against the average entry price
// and accumulates the closing-leg aggregates.
func (p *portfolio) reduce(pos *Position, fill types.Fill, closedQty int64) {
	qty := decimal.NewFromInt(closedQty)
	realized := fill.Price.Sub(pos.AvgEntryPrice).Mul(qty)
	if pos.Quantity < 0 {
		realized = realized.Neg()
	}
	pos.RealizedPnL = pos.RealizedPnL.Add(realized)
	p.realizedPnL = p.realizedPnL.Add(realized)
	pos.closedQty += closedQty
	pos.closeValue = pos.closeValue.Add(fill.Price.Mul(qty))
}

// closeTrade builds the round-trip Trade record for a position that just
// went flat.
func (p *portfolio) closeTrade(pos *Position, oldQty int64, exitTime time.Time) types.Trade {
	side := types.SideTypeBuy
	if oldQty < 0 {
		side = types.SideTypeSell
	}
	exitPrice := pos.closeValue.Div(decimal.NewFromInt(pos.closedQty))
	return types.Trade{
		Symbol:      pos.Symbol,
		Side:        side,
		Quantity:    pos.closedQty,
		EntryTime:   pos.EntryTime,
		ExitTime:    exitTime,
		EntryPrice:  pos.AvgEntryPrice,
		ExitPrice:   exitPrice,
		RealizedPnL: pos.RealizedPnL,
		Holding:     exitTime.Sub(pos.EntryTime),
	}
}

// markToMarket updates the last known price for a symbol. Prices only ever
// come from bars already replayed.
func (p *portfolio) markToMarket(symbol string, price decimal.Decimal) {
	if pos, ok := p.positions[symbol]; ok {
		pos.LastPrice = price
	}
}

// equity is cash plus the market value of all open positions at their last
// mark prices.
func (p *portfolio) equity() decimal.Decimal {
	equity := p.cash
	for _, pos := range p.positions {
		equity = equity.Add(pos.LastPrice.Mul(decimal.NewFromInt(pos.Quantity)))
	}
	return equity
}

// snapshot appends one equity-curve point for the given timestamp.
func (p *portfolio) snapshot(ts time.Time) types.PortfolioSnapshot {
	snap := types.PortfolioSnapshot{
		Time:   ts,
		Cash:   p.cash,
		Equity: p.equity(),
	}
	p.snapshots = append(p.snapshots, snap)
	return snap
}

// getPosition returns a read-only snapshot of the position for a symbol.
// The second return value is false when the portfolio is flat in it.
func (p *portfolio) getPosition(symbol string) (types.PositionSnapshot, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return types.PositionSnapshot{}, false
	}
	return snapshotOf(pos), true
}

// view builds a read-only copy of the whole portfolio.
func (p *portfolio) view(ts time.Time) types.PortfolioView {
	view := types.PortfolioView{
		Cash:      p.cash,
		Positions: make(map[string]types.PositionSnapshot, len(p.positions)),
		Time:      ts,
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = snapshotOf(pos)
	}
	return view
}

func snapshotOf(pos *Position) types.PositionSnapshot {
	return types.PositionSnapshot{
		Symbol:        pos.Symbol,
		Quantity:      pos.Quantity,
		AvgEntryPrice: pos.AvgEntryPrice,
		LastPrice:     pos.LastPrice,
		RealizedPnL:   pos.RealizedPnL,
		EntryTime:     pos.EntryTime,
	}
}

func sameSide(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func weightedAvg(existingAvg decimal.Decimal, existingQty int64, newPrice decimal.Decimal, newQty int64) decimal.Decimal {
	if existingQty == 0 {
		return newPrice
	}
	oldQty := decimal.NewFromInt(existingQty)
	addQty := decimal.NewFromInt(newQty)
	return existingAvg.Mul(oldQty).
		Add(newPrice.Mul(addQty)).
		Div(oldQty.Add(addQty))
}
