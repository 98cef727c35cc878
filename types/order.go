package types

import (
	"time"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	TypeMarket OrderType = "MARKET"

	OrderCreated   OrderStatus = "ORDER_CREATED"
	OrderSubmitted OrderStatus = "ORDER_SUBMITTED"
	OrderFilled    OrderStatus = "ORDER_FILLED"
	OrderRejected  OrderStatus = "ORDER_REJECTED"
	OrderCancelled OrderStatus = "ORDER_CANCELLED"
)

// Terminal reports whether the status ends the order lifecycle. A terminal
// order is never mutated again.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderRejected || s == OrderCancelled
}

// Order is a request to trade a whole number of shares at market. Quantity
// is always positive; Side carries the direction. The broker owns the order
// from submission until it reaches a terminal status.
type Order struct {
	ID           string
	Symbol       string
	Side         Side
	Quantity     int64
	Type         OrderType
	Status       OrderStatus
	SubmittedAt  time.Time
	RejectReason string
}

func NewOrder(symbol string, side Side, quantity int64, createdAt time.Time) *Order {
	return &Order{
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
		Type:        TypeMarket,
		Status:      OrderCreated,
		SubmittedAt: createdAt,
	}
}
