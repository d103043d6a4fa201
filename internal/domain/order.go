package domain

import (
	"fmt"
	"regexp"
	"time"
)

// OrderSide indicates the direction of an order. Sell-short is a distinct
// side because the risk ledger gates it differently from a plain sell.
type OrderSide string

const (
	OrderSideBuy       OrderSide = "buy"
	OrderSideSell      OrderSide = "sell"
	OrderSideSellShort OrderSide = "sell_short"
)

// IsSell reports whether the side moves inventory out (sell or sell-short).
func (s OrderSide) IsSell() bool {
	return s == OrderSideSell || s == OrderSideSellShort
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "new"
	OrderStatusPartial  OrderStatus = "partial"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusRejected OrderStatus = "rejected"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Terminal reports whether the status ends the order's lifecycle.
// An order reaches exactly one terminal status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusRejected, OrderStatusCanceled:
		return true
	}
	return false
}

var instrumentRegex = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// ValidInstrument reports whether the symbol is a well-formed instrument code.
func ValidInstrument(symbol string) bool {
	return instrumentRegex.MatchString(symbol)
}

// Order represents a single simulated order and its fill state. The ID is
// assigned by the matching engine's allocator; everything else is fixed at
// construction except Status, Executed and Average, which matching mutates
// in place.
type Order struct {
	ID         int64
	Instrument string
	Side       OrderSide
	Status     OrderStatus
	Quantity   int64   // requested quantity, always positive
	Price      int64   // limit price in cents, 0 means match at any price
	Executed   int64   // cumulative filled quantity
	Average    float64 // volume-weighted average fill price in cents
	Owner      string  // owning strategy identifier
	CreatedAt  time.Time
}

// NewOrder validates the request and returns an order in status new with no
// ID assigned. Invalid input fails fast with a ValidationError.
func NewOrder(instrument string, side OrderSide, quantity, price int64, owner string) (*Order, error) {
	if !ValidInstrument(instrument) {
		return nil, &ValidationError{
			Message: fmt.Sprintf("instrument must match ^[A-Z0-9]{1,12}$, got %q", instrument),
		}
	}
	switch side {
	case OrderSideBuy, OrderSideSell, OrderSideSellShort:
	default:
		return nil, &ValidationError{
			Message: fmt.Sprintf("unknown order side: %q, must be one of: buy, sell, sell_short", side),
		}
	}
	if quantity <= 0 {
		return nil, &ValidationError{Message: "quantity must be a positive integer"}
	}
	if price < 0 {
		return nil, &ValidationError{Message: "price must be zero (market) or positive"}
	}
	if owner == "" {
		return nil, &ValidationError{Message: "owner must not be empty"}
	}
	return &Order{
		Instrument: instrument,
		Side:       side,
		Status:     OrderStatusNew,
		Quantity:   quantity,
		Price:      price,
		Owner:      owner,
	}, nil
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.Executed
}

// Market reports whether the order matches at any price.
func (o *Order) Market() bool {
	return o.Price == 0
}

// ApplyFill records a fill increment at the given price, maintaining the
// running volume-weighted average and the status machine. The quantity must
// be positive and must not exceed the remaining quantity.
func (o *Order) ApplyFill(quantity, price int64) error {
	if o.Status.Terminal() {
		return ErrOrderNotFillable
	}
	if quantity <= 0 || quantity > o.Remaining() {
		return ErrInvalidFill
	}
	o.Average = (o.Average*float64(o.Executed) + float64(quantity)*float64(price)) /
		float64(o.Executed+quantity)
	o.Executed += quantity
	if o.Executed == o.Quantity {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartial
	}
	return nil
}
