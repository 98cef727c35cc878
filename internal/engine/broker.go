package engine

import (
	"backsim/types"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveQuantity = errors.New("order quantity must be positive")
	ErrOrderResubmitted    = errors.New("order already submitted")
)

var oneHundred = decimal.NewFromInt(100)

// SimBroker is the backtest execution simulator. It owns in-flight orders
// from submission until they resolve into a Fill or a terminal rejection;
// it never touches portfolio state.
//
// Fill model: a market order submitted during bar N resolves against the
// first bar for its symbol timestamped strictly after submission, at that
// bar's open adjusted by slippage. Buys pay open*(1+slippage), sells
// receive open*(1-slippage). Commission is a flat per-share rate.
type SimBroker struct {
	commissionPerShare decimal.Decimal
	slippagePercent    decimal.Decimal
	allowShortSelling  bool

	pending []*types.Order // submission order, resolved FIFO
	orders  map[string]*types.Order
}

func NewSimBroker(commissionPerShare, slippagePercent decimal.Decimal, allowShortSelling bool) *SimBroker {
	return &SimBroker{
		commissionPerShare: commissionPerShare,
		slippagePercent:    slippagePercent,
		allowShortSelling:  allowShortSelling,
		orders:             make(map[string]*types.Order),
	}
}

// Submit accepts an order into the pending book and assigns its id.
// Non-positive quantities are a caller bug and fail fast.
func (b *SimBroker) Submit(order *types.Order) (string, error) {
	if order.Quantity <= 0 {
		return "", fmt.Errorf("%w: %d", ErrNonPositiveQuantity, order.Quantity)
	}
	if order.Status != types.OrderCreated {
		return "", fmt.Errorf("%w: %s is %s", ErrOrderResubmitted, order.ID, order.Status)
	}
	order.ID = uuid.NewString()
	order.Status = types.OrderSubmitted
	b.orders[order.ID] = order
	b.pending = append(b.pending, order)
	return order.ID, nil
}

// Cancel moves a still-pending order to the terminal Cancelled status.
// Returns false if the order is unknown or already terminal.
func (b *SimBroker) Cancel(orderID string) bool {
	order, ok := b.orders[orderID]
	if !ok || order.Status.Terminal() {
		return false
	}
	order.Status = types.OrderCancelled
	b.removePending(order)
	return true
}

// OpenOrders returns the orders still waiting to resolve, in submission
// order.
func (b *SimBroker) OpenOrders() []*types.Order {
	out := make([]*types.Order, len(b.pending))
	copy(out, b.pending)
	return out
}

// Order looks up an order by id.
func (b *SimBroker) Order(orderID string) (*types.Order, bool) {
	order, ok := b.orders[orderID]
	return order, ok
}

// Resolve fills or rejects every pending order eligible against the given
// bar. Orders are walked FIFO; cash and held-quantity checks run against a
// running balance seeded from the portfolio view so a sequence of orders in
// the same bar cannot overspend. Rejections are terminal and returned for
// diagnostics; they produce no fill and leave portfolio state untouched.
func (b *SimBroker) Resolve(bar types.Bar, view types.PortfolioView) ([]types.Fill, []*types.Order) {
	var fills []types.Fill
	var rejected []*types.Order

	remainingCash := view.Cash
	heldQty := int64(0)
	if pos, ok := view.Positions[bar.Symbol]; ok {
		heldQty = pos.Quantity
	}

	keep := b.pending[:0]
	for _, order := range b.pending {
		if order.Symbol != bar.Symbol || !bar.Timestamp.After(order.SubmittedAt) {
			keep = append(keep, order)
			continue
		}

		qty := decimal.NewFromInt(order.Quantity)
		slip := bar.Open.Mul(b.slippagePercent).Div(oneHundred)
		commission := b.commissionPerShare.Mul(qty)

		switch order.Side {
		case types.SideTypeBuy:
			fillPrice := bar.Open.Add(slip)
			cost := fillPrice.Mul(qty).Add(commission)
			if cost.GreaterThan(remainingCash) {
				order.Status = types.OrderRejected
				order.RejectReason = "insufficient cash"
				rejected = append(rejected, order)
				continue
			}
			remainingCash = remainingCash.Sub(cost)
			heldQty += order.Quantity
			order.Status = types.OrderFilled
			fills = append(fills, types.NewFill(
				order.ID, order.Symbol, order.Side, order.Quantity,
				fillPrice, commission, slip, bar.Timestamp,
			))

		case types.SideTypeSell:
			if !b.allowShortSelling && order.Quantity > heldQty {
				order.Status = types.OrderRejected
				order.RejectReason = "insufficient held quantity"
				rejected = append(rejected, order)
				continue
			}
			fillPrice := bar.Open.Sub(slip)
			proceeds := fillPrice.Mul(qty).Sub(commission)
			remainingCash = remainingCash.Add(proceeds)
			heldQty -= order.Quantity
			order.Status = types.OrderFilled
			fills = append(fills, types.NewFill(
				order.ID, order.Symbol, order.Side, order.Quantity,
				fillPrice, commission, slip, bar.Timestamp,
			))
		}
	}
	b.pending = keep

	return fills, rejected
}

func (b *SimBroker) removePending(order *types.Order) {
	for i, o := range b.pending {
		if o.ID == order.ID {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}
