package model

import (
	"fmt"
	"time"
)

// OrderStatus is the processing stage of a laundry order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPickedUp       OrderStatus = "picked_up"
	OrderWashing        OrderStatus = "washing"
	OrderDrying         OrderStatus = "drying"
	OrderFolding        OrderStatus = "folding"
	OrderReady          OrderStatus = "ready"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
)

// Label returns the display name of the status.
func (s OrderStatus) Label() string {
	switch s {
	case OrderPending:
		return "Pending"
	case OrderConfirmed:
		return "Confirmed"
	case OrderPickedUp:
		return "Picked Up"
	case OrderWashing:
		return "Washing"
	case OrderDrying:
		return "Drying"
	case OrderFolding:
		return "Folding"
	case OrderReady:
		return "Ready for Delivery"
	case OrderOutForDelivery:
		return "Out for Delivery"
	case OrderDelivered:
		return "Delivered"
	default:
		return string(s)
	}
}

// Progression is one automatic status step: an order that has sat in From
// for at least After moves to To.
type Progression struct {
	From  OrderStatus
	To    OrderStatus
	After time.Duration
}

// OrderProgressions is the automatic status pipeline of a laundry order.
var OrderProgressions = []Progression{
	{OrderPending, OrderConfirmed, 5 * time.Minute},
	{OrderConfirmed, OrderPickedUp, 10 * time.Minute},
	{OrderPickedUp, OrderWashing, 15 * time.Minute},
	{OrderWashing, OrderDrying, 20 * time.Minute},
	{OrderDrying, OrderFolding, 15 * time.Minute},
	{OrderFolding, OrderReady, 10 * time.Minute},
	{OrderReady, OrderOutForDelivery, 5 * time.Minute},
	{OrderOutForDelivery, OrderDelivered, 10 * time.Minute},
}

// Order is a laundry order owned by a user of the development server.
type Order struct {
	ID          int64       `db:"id" json:"id"`
	OrderNumber string      `db:"order_number" json:"order_number"`
	UserID      string      `db:"user_id" json:"user_id"`
	Status      OrderStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// FormatOrderNumber builds the customer-facing order number, e.g. LP00421019.
func FormatOrderNumber(id int64, at time.Time) string {
	return fmt.Sprintf("LP%04d%s", id, at.Format("0102"))
}
