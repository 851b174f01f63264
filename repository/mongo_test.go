package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"go-giftshop/models"
	"go-giftshop/port"
	"go-giftshop/repository"
)

type storeSuite struct {
	suite.Suite

	container *mongodb.MongoDBContainer
	client    *mongo.Client
	db        *mongo.Database
	store     port.Store
}

// entry point to run the tests in the suite
func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	suite.Run(t, new(storeSuite))
}

// before all tests in the suite
func (suite *storeSuite) SetupSuite() {
	ctx := suite.T().Context()

	var err error
	suite.container, err = mongodb.Run(ctx, "mongo:7")
	suite.Require().NoError(err)

	uri, err := suite.container.ConnectionString(ctx)
	suite.Require().NoError(err)

	suite.client, err = repository.Connect(ctx, uri)
	suite.Require().NoError(err)

	suite.db = suite.client.Database("giftshop_test")
	suite.Require().NoError(repository.EnsureIndexes(ctx, suite.db))

	suite.store = repository.NewStore(suite.db)
}

// after all tests in the suite
func (suite *storeSuite) TearDownSuite() {
	ctx := context.Background()

	if suite.client != nil {
		suite.NoError(suite.client.Disconnect(ctx))
	}
	if suite.container != nil {
		suite.NoError(testcontainers.TerminateContainer(suite.container))
	}
}

// before each test
func (suite *storeSuite) SetupTest() {
	suite.Require().NoError(suite.db.Drop(suite.T().Context()))
	suite.Require().NoError(repository.EnsureIndexes(suite.T().Context(), suite.db))
}

func (suite *storeSuite) TestLatestOrderNumber() {
	t := suite.T()
	ctx := t.Context()

	for _, number := range []string{"DD-250101-00003", "DD-250102-00001", "DD-250102-00007", "XX-250102-00009"} {
		order := randomOrder()
		order.OrderNumber = number
		require.NoError(t, suite.store.Orders.InsertOrder(ctx, &order))
	}

	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "greatest in day", prefix: "DD-250102-", want: "DD-250102-00007"},
		{name: "other day", prefix: "DD-250101-", want: "DD-250101-00003"},
		{name: "no orders for day", prefix: "DD-250103-", want: ""},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			got, err := suite.store.Orders.LatestOrderNumber(ctx, tt.prefix)
			require.NoError(suite.T(), err)
			assert.Equal(suite.T(), tt.want, got)
		})
	}
}

func (suite *storeSuite) TestInsertOrderDuplicateNumber() {
	t := suite.T()
	ctx := t.Context()

	first := randomOrder()
	require.NoError(t, suite.store.Orders.InsertOrder(ctx, &first))

	second := randomOrder()
	second.OrderNumber = first.OrderNumber
	err := suite.store.Orders.InsertOrder(ctx, &second)
	assert.ErrorIs(t, err, port.ErrConflict)
}

func (suite *storeSuite) TestOrderRoundTrip() {
	t := suite.T()
	ctx := t.Context()

	order := randomOrder()
	require.NoError(t, suite.store.Orders.InsertOrder(ctx, &order))

	got, err := suite.store.Orders.GetOrderByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)

	assertOrder(t, order, got)

	_, err = suite.store.Orders.GetOrderByNumber(ctx, "DD-000000-00000")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func (suite *storeSuite) TestListOrdersFilter() {
	t := suite.T()
	ctx := t.Context()

	day := time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)

	a := randomOrder()
	a.Customer.Name = "Ana Torres"
	a.CreatedAt = day
	b := randomOrder()
	b.Status = models.OrderStatusDelivered
	b.CreatedAt = day.Add(24 * time.Hour)
	c := randomOrder()
	c.Delivery.RecipientName = "Lupita (mamá)"
	c.CreatedAt = day.Add(-24 * time.Hour)

	for _, o := range []*models.Order{&a, &b, &c} {
		require.NoError(t, suite.store.Orders.InsertOrder(ctx, o))
	}

	from := day.Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	tests := []struct {
		name   string
		filter models.OrderFilter
		want   []string
	}{
		{name: "no filter newest first", want: []string{b.OrderNumber, a.OrderNumber, c.OrderNumber}},
		{name: "status", filter: models.OrderFilter{Status: models.OrderStatusDelivered}, want: []string{b.OrderNumber}},
		{name: "search customer case insensitive", filter: models.OrderFilter{Search: "ana tor"}, want: []string{a.OrderNumber}},
		{name: "search with regex chars", filter: models.OrderFilter{Search: "(mamá)"}, want: []string{c.OrderNumber}},
		{name: "date range", filter: models.OrderFilter{DateFrom: &from, DateTo: &to}, want: []string{a.OrderNumber}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			orders, total, err := suite.store.Orders.ListOrders(ctx, tt.filter, 1)
			require.NoError(suite.T(), err)

			numbers := make([]string, 0, len(orders))
			for _, o := range orders {
				numbers = append(numbers, o.OrderNumber)
			}
			assert.Equal(suite.T(), tt.want, numbers)
			assert.EqualValues(suite.T(), len(tt.want), total)
		})
	}
}

func (suite *storeSuite) TestProductSales() {
	t := suite.T()
	ctx := t.Context()

	productID := primitive.NewObjectID()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		o := randomOrder()
		o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		o.Items = append(o.Items, models.OrderItem{
			ProductID: productID,
			Name:      "Ramo de rosas",
			Quantity:  i + 1,
			UnitPrice: decimal.RequireFromString("450.50"),
		})
		o.Totals()
		require.NoError(t, suite.store.Orders.InsertOrder(ctx, &o))
	}

	cancelled := randomOrder()
	cancelled.Status = models.OrderStatusCancelled
	cancelled.Items = []models.OrderItem{{ProductID: productID, Quantity: 10, UnitPrice: decimal.NewFromInt(1)}}
	cancelled.Totals()
	require.NoError(t, suite.store.Orders.InsertOrder(ctx, &cancelled))

	report, err := suite.store.Orders.ProductSales(ctx, productID, 2)
	require.NoError(t, err)

	require.Len(t, report.Sales, 2)
	assert.Equal(t, 3, report.Sales[0].Quantity)
	assert.Equal(t, 2, report.Sales[1].Quantity)
	assert.Equal(t, 6, report.TotalQuantity)
	assert.True(t, decimal.RequireFromString("2703").Equal(report.TotalAmount), report.TotalAmount.String())

	empty, err := suite.store.Orders.ProductSales(ctx, primitive.NewObjectID(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Sales)
	assert.Zero(t, empty.TotalQuantity)
}

func (suite *storeSuite) TestRedeemCoupon() {
	t := suite.T()
	ctx := t.Context()

	limited := models.Coupon{Code: "AMOR10", DiscountType: models.DiscountPercentage, Value: decimal.NewFromInt(10), IsActive: true, MaxUses: 2}
	unlimited := models.Coupon{Code: "MAMA", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(50), IsActive: true}
	require.NoError(t, suite.store.Coupons.InsertCoupon(ctx, &limited))
	require.NoError(t, suite.store.Coupons.InsertCoupon(ctx, &unlimited))

	for i := 1; i <= 2; i++ {
		c, err := suite.store.Coupons.RedeemCoupon(ctx, limited.ID)
		require.NoError(t, err)
		assert.Equal(t, i, c.UsedCount)
	}

	_, err := suite.store.Coupons.RedeemCoupon(ctx, limited.ID)
	assert.ErrorIs(t, err, models.ErrCouponExhausted)

	for i := 0; i < 5; i++ {
		_, err := suite.store.Coupons.RedeemCoupon(ctx, unlimited.ID)
		require.NoError(t, err)
	}

	_, err = suite.store.Coupons.RedeemCoupon(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, port.ErrNotFound)

	dup := models.Coupon{Code: "AMOR10", DiscountType: models.DiscountFixed, Value: decimal.NewFromInt(1)}
	assert.ErrorIs(t, suite.store.Coupons.InsertCoupon(ctx, &dup), port.ErrConflict)
}

func (suite *storeSuite) TestUpdateCategoryRefreshesProducts() {
	t := suite.T()
	ctx := t.Context()

	category := models.Category{Name: "Rosas", Slug: "rosas"}
	require.NoError(t, suite.store.Categories.InsertCategory(ctx, &category))

	product := models.Product{Name: "Docena", Slug: "docena", Price: decimal.NewFromInt(700), CategoryID: category.ID, CategorySlug: "rosas", IsActive: true}
	require.NoError(t, suite.store.Products.InsertProduct(ctx, &product))

	category.Slug = "rosas-rojas"
	require.NoError(t, suite.store.Categories.UpdateCategory(ctx, category))

	got, err := suite.store.Products.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "rosas-rojas", got.CategorySlug)

	products, total, err := suite.store.Products.ListProducts(ctx, models.ProductFilter{CategorySlug: "rosas-rojas", OnlyActive: true}, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, products, 1)

	n, err := suite.store.Products.CountProductsInCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func (suite *storeSuite) TestSubscriberToggle() {
	t := suite.T()
	ctx := t.Context()

	sub := models.EmailSubscriber{Email: gofakeit.Email(), IsActive: true, SubscribedAt: time.Now().UTC()}
	require.NoError(t, suite.store.Subscribers.InsertSubscriber(ctx, &sub))

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, suite.store.Subscribers.SetSubscriberActive(ctx, sub.ID, false, "", at))

	got, err := suite.store.Subscribers.GetSubscriberByEmail(ctx, sub.Email)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.UnsubscribedAt)

	require.NoError(t, suite.store.Subscribers.SetSubscriberActive(ctx, sub.ID, true, "Rosa", at))

	got, err = suite.store.Subscribers.GetSubscriberByEmail(ctx, sub.Email)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.UnsubscribedAt)
	assert.Equal(t, "Rosa", got.Name)

	active := true
	subs, total, err := suite.store.Subscribers.ListSubscribers(ctx, &active, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, subs, 1)
}

func (suite *storeSuite) TestActiveCountdowns() {
	t := suite.T()
	ctx := t.Context()

	now := time.Now().UTC()
	later := models.Countdown{Title: "Día de las madres", TargetDate: now.Add(48 * time.Hour), IsActive: true}
	sooner := models.Countdown{Title: "San Valentín", TargetDate: now.Add(time.Hour), IsActive: true}
	past := models.Countdown{Title: "Navidad", TargetDate: now.Add(-time.Hour), IsActive: true}
	hidden := models.Countdown{Title: "Oculto", TargetDate: now.Add(time.Hour), IsActive: false}

	for _, c := range []*models.Countdown{&later, &sooner, &past, &hidden} {
		require.NoError(t, suite.store.Countdowns.InsertCountdown(ctx, c))
	}

	got, err := suite.store.Countdowns.ActiveCountdowns(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sooner.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
}

func (suite *storeSuite) TestDecimalStoredAsDecimal128() {
	t := suite.T()
	ctx := t.Context()

	product := models.Product{Name: "Tulipanes", Slug: "tulipanes", Price: decimal.RequireFromString("0.10")}
	require.NoError(t, suite.store.Products.InsertProduct(ctx, &product))

	var raw bson.Raw
	require.NoError(t, suite.db.Collection("products").FindOne(ctx, bson.M{"_id": product.ID}).Decode(&raw))

	_, ok := raw.Lookup("price").Decimal128OK()
	assert.True(t, ok)
}

func randomOrder() models.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)

	o := models.Order{
		OrderNumber: fmt.Sprintf("DD-%s-%05d", now.Format("060102"), gofakeit.Number(1, 99999)),
		Status:      models.OrderStatusReceived,
		Customer: models.Customer{
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
			Phone: gofakeit.Phone(),
		},
		Delivery: models.Delivery{
			RecipientName:  gofakeit.Name(),
			RecipientPhone: gofakeit.Phone(),
			Address:        gofakeit.Street(),
		},
		Items: []models.OrderItem{{
			ProductID: primitive.NewObjectID(),
			Name:      gofakeit.ProductName(),
			Quantity:  gofakeit.Number(1, 5),
			UnitPrice: decimal.NewFromFloat(gofakeit.Price(100, 1000)).Round(2),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Totals()
	return o
}

func assertOrder(t *testing.T, expected, actual models.Order) {
	t.Helper()

	decimalComparer := cmp.Comparer(func(x, y decimal.Decimal) bool {
		return x.Equal(y)
	})

	diff := cmp.Diff(expected, actual, decimalComparer, cmpopts.EquateEmpty())
	assert.Empty(t, diff)
}
