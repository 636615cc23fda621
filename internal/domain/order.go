package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// remember to add new statuses to validOrderStatuses and, if reachable, to nextOrderStatus
const (
	OrderStatusWaitingShipper OrderStatus = "WaitingShipper"
	OrderStatusToReceive      OrderStatus = "ToReceive"
	OrderStatusCompleted      OrderStatus = "Completed"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusWaitingShipper: {},
	OrderStatusToReceive:      {},
	OrderStatusCompleted:      {},
}

// nextOrderStatus is the whole state machine: each status has at most one successor.
// Completed has none.
var nextOrderStatus = map[OrderStatus]OrderStatus{
	OrderStatusWaitingShipper: OrderStatusToReceive,
	OrderStatusToReceive:      OrderStatusCompleted,
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", fmt.Errorf("order status %q: %w", s, ErrInvalidInput)
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	next, ok := nextOrderStatus[s]
	return ok && next == to
}

func (s OrderStatus) IsTerminal() bool {
	_, ok := nextOrderStatus[s]
	return !ok
}

type PaymentMethod string

const (
	PaymentMethodMomo PaymentMethod = "Momo"
	PaymentMethodCOD  PaymentMethod = "COD"
)

func ToPaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodMomo, PaymentMethodCOD:
		return m, nil
	}

	return "", fmt.Errorf("payment method %q: %w", s, ErrInvalidInput)
}

type OrderDetail struct {
	ID      int64
	OrderID int64
	// ProductID is nil once the referenced product has been deleted from the catalog.
	ProductID   *int64
	ProductName string
	Quantity    int
	Discount    decimal.Decimal
	// Price is the product price captured when the order was placed.
	Price decimal.Decimal
}

type Order struct {
	ID            int64
	CustomerID    string
	ShipperID     string
	ShipAddress   string
	Status        OrderStatus
	PaymentMethod PaymentMethod
	Details       []OrderDetail

	// Customer and Shipper are populated on reads; Shipper stays nil until pickup.
	Customer *User
	Shipper  *User

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderFilter has AND semantics across non-empty fields.
type OrderFilter struct {
	CustomerID string
	ShipperID  string
	Status     OrderStatus
}
