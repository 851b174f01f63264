// Package events publishes order lifecycle events for downstream consumers
// such as delivery routing and reporting.
package events

import (
	"context"
	"time"

	"go-giftshop/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	ID             string             `json:"id"`
	Type           string             `json:"type"`
	OrderNumber    string             `json:"orderNumber"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previousStatus,omitempty"`
	Branch         string             `json:"branch,omitempty"`
	Total          decimal.Decimal    `json:"total"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

func OrderCreated(order models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		ID:          uuid.NewString(),
		Type:        TypeOrderCreated,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Branch:      order.Branch,
		Total:       order.Total,
		OccurredAt:  at,
	}
}

func OrderStatusChanged(order models.Order, previous models.OrderStatus, at time.Time) OrderEvent {
	e := OrderCreated(order, at)
	e.Type = TypeOrderStatusChanged
	e.PreviousStatus = previous
	return e
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
