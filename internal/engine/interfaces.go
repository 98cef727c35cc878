package engine

import (
	"backsim/types"
	"context"
	"time"
)

// dataStore supplies time-ordered bars per symbol. Fetching and caching are
// the store's concern; the engine only ever sees finished sequences.
type dataStore interface {
	GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error)
	GetBars(ctx context.Context, assetID int, ticker string, tf types.Timeframe, start, end time.Time) ([]types.Bar, error)
}

// Strategy is the full capability set a strategy may implement. Embed
// NopStrategy to supply no-op defaults for hooks you do not need.
type Strategy interface {
	// OnStart runs once before the first bar. Returning an error aborts
	// the run before any bar is processed.
	OnStart(ctx *Context) error

	// OnBar runs for every bar in merged order. Orders submitted here are
	// resolved no earlier than the next bar for their symbol.
	OnBar(ctx *Context, bar types.Bar)

	// OnFill runs for every fill, before the strategy sees the bar the
	// fill executed against.
	OnFill(ctx *Context, fill types.Fill)

	// OnStop runs once after the last bar, including on early termination.
	OnStop(ctx *Context)
}

// NopStrategy implements every hook as a no-op.
type NopStrategy struct{}

func (NopStrategy) OnStart(*Context) error        { return nil }
func (NopStrategy) OnBar(*Context, types.Bar)     {}
func (NopStrategy) OnFill(*Context, types.Fill)   {}
func (NopStrategy) OnStop(*Context)               {}

// broker is the execution capability the engine loop depends on. SimBroker
// is the backtest implementation; a live order-routing implementation can be
// substituted without touching the loop or the strategy-facing Context.
type broker interface {
	Submit(order *types.Order) (string, error)
	Cancel(orderID string) bool
	OpenOrders() []*types.Order
	Resolve(bar types.Bar, view types.PortfolioView) ([]types.Fill, []*types.Order)
}
