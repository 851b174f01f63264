package memrepo_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-giftshop/models"
	"go-giftshop/port"
	"go-giftshop/repository/memrepo"
)

var (
	_ port.CategoryRepository   = (*memrepo.Store)(nil)
	_ port.ProductRepository    = (*memrepo.Store)(nil)
	_ port.OrderRepository      = (*memrepo.Store)(nil)
	_ port.ReviewRepository     = (*memrepo.Store)(nil)
	_ port.CouponRepository     = (*memrepo.Store)(nil)
	_ port.CountdownRepository  = (*memrepo.Store)(nil)
	_ port.SubscriberRepository = (*memrepo.Store)(nil)
)

func TestLatestOrderNumber(t *testing.T) {
	ctx := t.Context()
	store := memrepo.New()

	for _, n := range []string{"DD-250102-00001", "DD-250102-00012", "DD-250101-00099"} {
		require.NoError(t, store.InsertOrder(ctx, &models.Order{OrderNumber: n}))
	}

	got, err := store.LatestOrderNumber(ctx, "DD-250102-")
	require.NoError(t, err)
	assert.Equal(t, "DD-250102-00012", got)

	got, err = store.LatestOrderNumber(ctx, "DD-250103-")
	require.NoError(t, err)
	assert.Empty(t, got)

	err = store.InsertOrder(ctx, &models.Order{OrderNumber: "DD-250102-00001"})
	assert.ErrorIs(t, err, port.ErrConflict)
}

func TestOrderIsolation(t *testing.T) {
	ctx := t.Context()
	store := memrepo.New()

	order := models.Order{
		OrderNumber: "DD-250102-00001",
		Items:       []models.OrderItem{{Name: "Rosas", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	}
	require.NoError(t, store.InsertOrder(ctx, &order))

	order.Items[0].Name = "changed"

	got, err := store.GetOrderByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "Rosas", got.Items[0].Name)
}

func TestListProductsOrderingAndPaging(t *testing.T) {
	ctx := t.Context()
	store := memrepo.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < models.PageSize+5; i++ {
		p := models.Product{
			Slug:      primitive.NewObjectID().Hex(),
			Name:      "Arreglo",
			IsActive:  i != 3,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.InsertProduct(ctx, &p))
	}
	featured := models.Product{Slug: "destacado", Name: "Arreglo especial", IsActive: true, IsFeatured: true, CreatedAt: base}
	require.NoError(t, store.InsertProduct(ctx, &featured))

	first, total, err := store.ListProducts(ctx, models.ProductFilter{OnlyActive: true}, 1)
	require.NoError(t, err)
	assert.EqualValues(t, models.PageSize+5, total)
	assert.Len(t, first, models.PageSize)
	assert.Equal(t, featured.ID, first[0].ID)

	second, _, err := store.ListProducts(ctx, models.ProductFilter{OnlyActive: true}, 2)
	require.NoError(t, err)
	assert.Len(t, second, 5)

	beyond, _, err := store.ListProducts(ctx, models.ProductFilter{OnlyActive: true}, 9)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	huge, _, err := store.ListProducts(ctx, models.ProductFilter{OnlyActive: true}, math.MaxInt/models.PageSize+2)
	require.NoError(t, err)
	assert.Empty(t, huge)

	searched, total, err := store.ListProducts(ctx, models.ProductFilter{Search: "ESPECIAL"}, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, featured.ID, searched[0].ID)
}

func TestRedeemCoupon(t *testing.T) {
	ctx := t.Context()
	store := memrepo.New()

	coupon := models.Coupon{Code: "UNO", MaxUses: 1, IsActive: true}
	require.NoError(t, store.InsertCoupon(ctx, &coupon))

	redeemed, err := store.RedeemCoupon(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, redeemed.UsedCount)

	_, err = store.RedeemCoupon(ctx, coupon.ID)
	assert.ErrorIs(t, err, models.ErrCouponExhausted)

	_, err = store.RedeemCoupon(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, port.ErrNotFound)

	coupon.Description = "edited"
	require.NoError(t, store.UpdateCoupon(ctx, coupon))
	got, err := store.GetCoupon(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)
}
