package repository

import (
	"context"
	"errors"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type couponRepository struct {
	collection *mongo.Collection
}

func NewCoupon(db *mongo.Database) port.CouponRepository {
	return &couponRepository{collection: db.Collection(couponsCollection)}
}

func (r *couponRepository) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	coupons, err := findAll[models.Coupon](ctx, r.collection, bson.D{}, opts)
	if err != nil {
		return nil, mapErr("list coupons", err)
	}
	return coupons, nil
}

func (r *couponRepository) GetCoupon(ctx context.Context, id primitive.ObjectID) (models.Coupon, error) {
	var coupon models.Coupon
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&coupon); err != nil {
		return models.Coupon{}, mapErr("get coupon", err)
	}
	return coupon, nil
}

func (r *couponRepository) GetCouponByCode(ctx context.Context, code string) (models.Coupon, error) {
	var coupon models.Coupon
	if err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&coupon); err != nil {
		return models.Coupon{}, mapErr("get coupon by code", err)
	}
	return coupon, nil
}

func (r *couponRepository) InsertCoupon(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID.IsZero() {
		coupon.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, coupon); err != nil {
		return mapErr("insert coupon", err)
	}
	return nil
}

// UpdateCoupon rewrites the editable fields. used_count is left alone so a
// concurrent redemption is never lost.
func (r *couponRepository) UpdateCoupon(ctx context.Context, coupon models.Coupon) error {
	update := bson.M{"$set": bson.M{
		"code":          coupon.Code,
		"description":   coupon.Description,
		"discount_type": coupon.DiscountType,
		"value":         coupon.Value,
		"min_subtotal":  coupon.MinSubtotal,
		"is_active":     coupon.IsActive,
		"starts_at":     coupon.StartsAt,
		"expires_at":    coupon.ExpiresAt,
		"max_uses":      coupon.MaxUses,
		"updated_at":    coupon.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": coupon.ID}, update)
	if err != nil {
		return mapErr("update coupon", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("update coupon", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *couponRepository) DeleteCoupon(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr("delete coupon", err)
	}
	if res.DeletedCount == 0 {
		return mapErr("delete coupon", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *couponRepository) RedeemCoupon(ctx context.Context, id primitive.ObjectID) (models.Coupon, error) {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"max_uses": bson.M{"$lte": 0}},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var coupon models.Coupon
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&coupon)
	if err == nil {
		return coupon, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Coupon{}, mapErr("redeem coupon", err)
	}

	// no match: either the coupon is gone or its limit is reached
	if _, err := r.GetCoupon(ctx, id); err != nil {
		return models.Coupon{}, err
	}
	return models.Coupon{}, models.ErrCouponExhausted
}
