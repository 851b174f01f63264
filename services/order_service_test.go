package services_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"go-giftshop/events"
	"go-giftshop/models"
	"go-giftshop/ordernumber"
	"go-giftshop/port"
	"go-giftshop/repository/memrepo"
	"go-giftshop/services"
	"go-giftshop/utils"
)

var testNow = time.Date(2025, 2, 14, 15, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMailer struct {
	mu   sync.Mutex
	sent []utils.Message
}

func (m *recordingMailer) Send(_ context.Context, msg utils.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	store     *memrepo.Store
	service   *services.OrderService
	publisher *recordingPublisher
	mailer    *recordingMailer
	emails    *utils.EmailService
	placed    prometheus.Counter
	rose      models.Product
	tulip     models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     memrepo.New(),
		publisher: &recordingPublisher{},
		mailer:    &recordingMailer{},
		placed:    prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_placed_total"}),
	}
	f.emails = utils.NewEmailService(f.mailer, "tienda@example.com", currency.MXN)

	clock := func() time.Time { return testNow }
	allocator := ordernumber.New(f.store, ordernumber.WithClock(clock))

	f.service = services.NewOrderService(f.store.Port(), allocator, f.publisher, f.emails,
		services.WithClock(clock),
		services.WithPlacedCounter(f.placed),
	)

	ctx := t.Context()
	f.rose = models.Product{Name: "Ramo de rosas", Slug: "ramo-de-rosas", Price: decimal.RequireFromString("450.50"), Images: []string{"rosas.jpg"}, IsActive: true}
	f.tulip = models.Product{Name: "Tulipanes", Slug: "tulipanes", Price: decimal.RequireFromString("300"), IsActive: true}
	require.NoError(t, f.store.InsertProduct(ctx, &f.rose))
	require.NoError(t, f.store.InsertProduct(ctx, &f.tulip))

	return f
}

func checkoutInput(lines ...services.LineInput) services.PlaceOrderInput {
	return services.PlaceOrderInput{
		Customer: models.Customer{Name: gofakeit.Name(), Email: "Ana@Example.com", Phone: gofakeit.Phone()},
		Delivery: models.Delivery{RecipientName: gofakeit.Name(), Address: gofakeit.Street()},
		Items:    lines,
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	order, err := f.service.PlaceOrder(ctx, checkoutInput(
		services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: 1},
		services.LineInput{ProductID: f.tulip.ID.Hex(), Quantity: 2},
		services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: 1},
	))
	require.NoError(t, err)
	f.emails.Wait()

	assert.Equal(t, "DD-250214-00001", order.OrderNumber)
	assert.Equal(t, models.OrderStatusReceived, order.Status)
	assert.Equal(t, "ana@example.com", order.Customer.Email)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "rosas.jpg", order.Items[0].Image)
	assert.True(t, decimal.RequireFromString("1501").Equal(order.Total), order.Total.String())

	stored, err := f.store.GetOrderByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(stored.Total))

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeOrderCreated, f.publisher.events[0].Type)
	assert.Len(t, f.mailer.sent, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.placed))

	second, err := f.service.PlaceOrder(ctx, checkoutInput(services.LineInput{ProductID: f.tulip.ID.Hex(), Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "DD-250214-00002", second.OrderNumber)
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	coupon := models.Coupon{Code: "AMOR10", DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(10), IsActive: true, MaxUses: 1}
	require.NoError(t, f.store.InsertCoupon(ctx, &coupon))

	in := checkoutInput(services.LineInput{ProductID: f.tulip.ID.Hex(), Quantity: 1})
	in.CouponCode = " amor10 "

	order, err := f.service.PlaceOrder(ctx, in)
	require.NoError(t, err)
	f.emails.Wait()

	assert.Equal(t, "AMOR10", order.CouponCode)
	assert.True(t, decimal.NewFromInt(30).Equal(order.Discount))
	assert.True(t, decimal.NewFromInt(270).Equal(order.Total))

	redeemed, err := f.store.GetCoupon(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, redeemed.UsedCount)

	_, err = f.service.PlaceOrder(ctx, in)
	assert.True(t, services.IsValidation(err), err)
	f.emails.Wait()
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)

	inactive := models.Product{Name: "Agotado", Slug: "agotado", Price: decimal.NewFromInt(1), IsActive: false}
	require.NoError(t, f.store.InsertProduct(t.Context(), &inactive))

	tests := []struct {
		name   string
		mutate func(in *services.PlaceOrderInput)
	}{
		{name: "no items", mutate: func(in *services.PlaceOrderInput) { in.Items = nil }},
		{name: "zero quantity", mutate: func(in *services.PlaceOrderInput) { in.Items[0].Quantity = 0 }},
		{name: "quantity over limit", mutate: func(in *services.PlaceOrderInput) { in.Items[0].Quantity = models.MaxQuantity + 1 }},
		{name: "merged lines over limit", mutate: func(in *services.PlaceOrderInput) {
			in.Items[0].Quantity = 500
			in.Items = append(in.Items, services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: 500})
		}},
		{name: "merged lines overflow", mutate: func(in *services.PlaceOrderInput) {
			in.Items[0].Quantity = math.MaxInt
			in.Items = append(in.Items, services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: math.MaxInt})
		}},
		{name: "bad product id", mutate: func(in *services.PlaceOrderInput) { in.Items[0].ProductID = "nope" }},
		{name: "inactive product", mutate: func(in *services.PlaceOrderInput) { in.Items[0].ProductID = inactive.ID.Hex() }},
		{name: "bad email", mutate: func(in *services.PlaceOrderInput) { in.Customer.Email = "ana" }},
		{name: "missing address", mutate: func(in *services.PlaceOrderInput) { in.Delivery.Address = " " }},
		{name: "unknown coupon", mutate: func(in *services.PlaceOrderInput) { in.CouponCode = "NOPE" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := checkoutInput(services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: 1})
			tt.mutate(&in)

			_, err := f.service.PlaceOrder(t.Context(), in)
			assert.True(t, services.IsValidation(err), err)
		})
	}

	orders, _, err := f.store.ListOrders(t.Context(), models.OrderFilter{}, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	order, err := f.service.PlaceOrder(ctx, checkoutInput(services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: 1}))
	require.NoError(t, err)
	f.emails.Wait()

	updated, err := f.service.UpdateStatus(ctx, order.OrderNumber, "on_route")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusOnRoute, updated.Status)

	_, err = f.service.UpdateStatus(ctx, order.OrderNumber, "on_route")
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, events.TypeOrderStatusChanged, f.publisher.events[1].Type)
	assert.Equal(t, models.OrderStatusReceived, f.publisher.events[1].PreviousStatus)

	_, err = f.service.UpdateStatus(ctx, order.OrderNumber, "shipped")
	assert.True(t, services.IsValidation(err))

	_, err = f.service.UpdateStatus(ctx, "DD-000000-00000", "confirmed")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestUpdateItems(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	order, err := f.service.PlaceOrder(ctx, checkoutInput(services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: 2}))
	require.NoError(t, err)
	f.emails.Wait()

	// rose leaves the catalog; its snapshot survives the edit
	require.NoError(t, f.store.DeleteProduct(ctx, f.rose.ID))

	updated, err := f.service.UpdateItems(ctx, order.OrderNumber, []services.LineInput{
		{ProductID: f.rose.ID.Hex(), Quantity: 1},
		{ProductID: f.tulip.ID.Hex(), Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assert.True(t, decimal.RequireFromString("750.50").Equal(updated.Total), updated.Total.String())

	_, err = f.service.UpdateStatus(ctx, order.OrderNumber, "delivered")
	require.NoError(t, err)

	_, err = f.service.UpdateItems(ctx, order.OrderNumber, []services.LineInput{{ProductID: f.tulip.ID.Hex(), Quantity: 1}})
	assert.True(t, services.IsValidation(err))
}

func TestListOrdersStatusCounts(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	for i := 0; i < 3; i++ {
		_, err := f.service.PlaceOrder(ctx, checkoutInput(services.LineInput{ProductID: f.rose.ID.Hex(), Quantity: 1}))
		require.NoError(t, err)
	}
	f.emails.Wait()

	_, err := f.service.UpdateStatus(ctx, "DD-250214-00002", "confirmed")
	require.NoError(t, err)

	page, err := f.service.ListOrders(ctx, models.OrderFilter{Status: models.OrderStatusReceived}, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Orders, 2)
	assert.EqualValues(t, 2, page.StatusCounts[models.OrderStatusReceived])
	assert.EqualValues(t, 1, page.StatusCounts[models.OrderStatusConfirmed])
	assert.EqualValues(t, 0, page.StatusCounts[models.OrderStatusCancelled])
	assert.Len(t, page.StatusCounts, len(models.OrderStatuses()))
}

type failingOrders struct {
	port.OrderRepository
}

func (failingOrders) CountOrders(context.Context, models.OrderFilter) (int64, error) {
	return 0, errors.New("count failed")
}

func TestListOrdersPropagatesCountError(t *testing.T) {
	store := memrepo.New()
	repos := store.Port()
	repos.Orders = failingOrders{OrderRepository: store}

	svc := services.NewOrderService(repos, ordernumber.New(store), events.NopPublisher{}, nil)

	_, err := svc.ListOrders(t.Context(), models.OrderFilter{}, 1)
	assert.ErrorContains(t, err, "count failed")
}
