package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "created"
	OrderEventPickedUp  OrderEventType = "picked_up"
	OrderEventCompleted OrderEventType = "completed"
	OrderEventDeleted   OrderEventType = "deleted"
)

type OrderEvent struct {
	Type          OrderEventType `json:"type"`
	OrderID       int64          `json:"orderId"`
	CustomerID    string         `json:"customerId"`
	CustomerEmail string         `json:"customerEmail"`
	ShipperID     string         `json:"shipperId,omitempty"`
	Status        OrderStatus    `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
}
