package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill records the execution of an order: one fill per filled order, fills
// are all-or-nothing. Slippage is the per-share price adjustment that was
// applied on top of the bar open.
type Fill struct {
	OrderID    string
	Symbol     string
	Side       Side
	Quantity   int64
	Price      decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal
	Time       time.Time
}

func NewFill(orderID, symbol string, side Side, qty int64, price, commission, slippage decimal.Decimal, at time.Time) Fill {
	return Fill{
		OrderID:    orderID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Slippage:   slippage,
		Time:       at,
	}
}
