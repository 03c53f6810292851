package models

import "time"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusClosed   OrderStatus = "closed"
	OrderStatusCanceled OrderStatus = "canceled"
	OrderStatusExpired  OrderStatus = "expired"
	OrderStatusRejected OrderStatus = "rejected"
)

// Accepted: только open/closed считаются принятыми биржей.
func (s OrderStatus) Accepted() bool {
	return s == OrderStatusOpen || s == OrderStatusClosed
}

type Order struct {
	ID        string
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Amount    float64
	Price     float64
	Status    OrderStatus
	Filled    float64
	Remaining float64
	Timestamp time.Time
	Fee       float64
}

type Ticker struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Last      float64
	High      float64
	Low       float64
	Volume    float64
	Timestamp time.Time
}

type Balance struct {
	Currency string
	Free     float64
	Used     float64
	Total    float64
}
