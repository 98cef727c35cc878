package engine

import (
	"backsim/types"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Context is the strategy-facing facade. It forwards order submission to
// the broker and state queries to the portfolio tracker, and it bounds all
// historical data access to bars at or before the bar currently being
// processed. The same interface is presented regardless of which broker
// implementation sits underneath.
type Context struct {
	broker    broker
	portfolio *portfolio

	commissionPerShare decimal.Decimal

	// bars replayed so far, per symbol; grows as the engine advances
	history map[string][]types.Bar
	curTime time.Time
}

func newContext(b broker, p *portfolio, commissionPerShare decimal.Decimal) *Context {
	return &Context{
		broker:             b,
		portfolio:          p,
		commissionPerShare: commissionPerShare,
		history:            make(map[string][]types.Bar),
	}
}

// observe is called by the engine loop for every bar before the strategy
// hooks run.
func (c *Context) observe(bar types.Bar) {
	c.history[bar.Symbol] = append(c.history[bar.Symbol], bar)
	c.curTime = bar.Timestamp
}

// CurrentTime is the timestamp of the bar being processed.
func (c *Context) CurrentTime() time.Time {
	return c.curTime
}

// Cash returns the available cash balance.
func (c *Context) Cash() decimal.Decimal {
	return c.portfolio.cash
}

// Equity returns cash plus the market value of all open positions.
func (c *Context) Equity() decimal.Decimal {
	return c.portfolio.equity()
}

// GetPosition returns the current position for a symbol, if any.
func (c *Context) GetPosition(symbol string) (types.PositionSnapshot, bool) {
	return c.portfolio.getPosition(symbol)
}

// Portfolio returns a read-only view of the whole portfolio.
func (c *Context) Portfolio() types.PortfolioView {
	return c.portfolio.view(c.curTime)
}

// Buy submits a market buy order. The order resolves no earlier than the
// next bar for the symbol.
func (c *Context) Buy(symbol string, quantity int64) (*types.Order, error) {
	order := types.NewOrder(symbol, types.SideTypeBuy, quantity, c.curTime)
	if _, err := c.broker.Submit(order); err != nil {
		return nil, err
	}
	return order, nil
}

// Sell submits a market sell order.
func (c *Context) Sell(symbol string, quantity int64) (*types.Order, error) {
	order := types.NewOrder(symbol, types.SideTypeSell, quantity, c.curTime)
	if _, err := c.broker.Submit(order); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder cancels a still-pending order.
func (c *Context) CancelOrder(orderID string) bool {
	return c.broker.Cancel(orderID)
}

// OpenOrders returns orders submitted but not yet resolved.
func (c *Context) OpenOrders() []*types.Order {
	return c.broker.OpenOrders()
}

// HistoricalBars returns the replayed bars for a symbol within [start, end].
// Only bars at or before the current bar exist in the history, so a
// strategy cannot reach into the future no matter what range it asks for.
func (c *Context) HistoricalBars(symbol string, start, end time.Time) []types.Bar {
	bars := c.history[symbol]
	if end.After(c.curTime) {
		end = c.curTime
	}
	lo := sort.Search(len(bars), func(i int) bool { return !bars[i].Timestamp.Before(start) })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp.After(end) })
	if lo >= hi {
		return nil
	}
	out := make([]types.Bar, hi-lo)
	copy(out, bars[lo:hi])
	return out
}

// LatestBar returns the most recent bar replayed for a symbol.
func (c *Context) LatestBar(symbol string) (types.Bar, bool) {
	bars := c.history[symbol]
	if len(bars) == 0 {
		return types.Bar{}, false
	}
	return bars[len(bars)-1], true
}

// SizeByRiskPercent returns floor(cash * riskPercent/100 / price).
func (c *Context) SizeByRiskPercent(price decimal.Decimal, riskPercent decimal.Decimal) int64 {
	if !price.IsPositive() {
		return 0
	}
	budget := c.portfolio.cash.Mul(riskPercent).Div(oneHundred)
	return budget.Div(price).Floor().IntPart()
}

// SizeByFixedAmount returns floor(amount / price).
func (c *Context) SizeByFixedAmount(price, amount decimal.Decimal) int64 {
	if !price.IsPositive() {
		return 0
	}
	return amount.Div(price).Floor().IntPart()
}

// CanAfford reports whether qty shares at the given price, plus the
// estimated commission, fit in the current cash balance.
func (c *Context) CanAfford(quantity int64, price decimal.Decimal) bool {
	qty := decimal.NewFromInt(quantity)
	cost := price.Mul(qty).Add(c.commissionPerShare.Mul(qty))
	return cost.LessThanOrEqual(c.portfolio.cash)
}
