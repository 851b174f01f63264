package models

import "errors"

type OrderStatus string

// remember to add new statuses to validOrderStatuses and orderStatusOrder
const (
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusOnRoute   OrderStatus = "on_route"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var ErrInvalidOrderStatus = errors.New("invalid order status")

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusReceived:  {},
	OrderStatusConfirmed: {},
	OrderStatusPreparing: {},
	OrderStatusOnRoute:   {},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// lifecycle order, used for listings and aggregate counts
var orderStatusOrder = []OrderStatus{
	OrderStatusReceived,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusOnRoute,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", ErrInvalidOrderStatus
}

func OrderStatuses() []OrderStatus {
	result := make([]OrderStatus, len(orderStatusOrder))
	copy(result, orderStatusOrder)
	return result
}
