package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-giftshop/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closes int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closes++
	return nil
}

func TestKafkaPublisherPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "giftshop.orders"}

	order := models.Order{
		OrderNumber: "DD-250214-00003",
		Status:      models.OrderStatusOnRoute,
		Total:       decimal.RequireFromString("801.00"),
	}
	at := time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(t.Context(), OrderStatusChanged(order, models.OrderStatusPreparing, at)))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "DD-250214-00003", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeOrderStatusChanged, string(msg.Headers[0].Value))

	var got OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, models.OrderStatusOnRoute, got.Status)
	assert.Equal(t, models.OrderStatusPreparing, got.PreviousStatus)
	assert.True(t, order.Total.Equal(got.Total))
	assert.NotEmpty(t, got.ID)
}

func TestKafkaPublisherClose(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "giftshop.orders"}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closes)

	err := p.Publish(t.Context(), OrderCreated(models.Order{OrderNumber: "x"}, time.Now()))
	assert.ErrorIs(t, err, ErrPublisherClosed)
}
