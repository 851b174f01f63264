package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go-giftshop/models"
	"go-giftshop/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	categoriesCollection  = "categories"
	productsCollection    = "products"
	ordersCollection      = "orders"
	reviewsCollection     = "reviews"
	couponsCollection     = "coupons"
	countdownsCollection  = "countdowns"
	subscribersCollection = "subscribers"
)

// Connect opens a client with the decimal-aware registry and pings it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetRegistry(NewRegistry())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("client.Ping: %w", err)
	}

	return client, nil
}

// NewStore builds every Mongo-backed repository over db.
func NewStore(db *mongo.Database) port.Store {
	return port.Store{
		Categories:  NewCategory(db),
		Products:    NewProduct(db),
		Orders:      NewOrder(db),
		Reviews:     NewReview(db),
		Coupons:     NewCoupon(db),
		Countdowns:  NewCountdown(db),
		Subscribers: NewSubscriber(db),
	}
}

// EnsureIndexes creates the indexes the repositories rely on. The unique ones
// back the conflict signals: order numbers, slugs, coupon codes and
// subscriber emails. Idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		ordersCollection: {
			{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "items.product_id", Value: 1}}},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		couponsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique},
		},
		countdownsCollection: {
			{Keys: bson.D{{Key: "target_date", Value: 1}}},
		},
		subscribersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
	}

	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}

	return nil
}

// mapErr translates driver signals into port sentinel errors.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, port.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, port.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pageOptions(page int) *options.FindOptions {
	return options.Find().
		SetSkip(int64((models.ClampPage(page) - 1) * models.PageSize)).
		SetLimit(models.PageSize)
}

func containsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make([]T, 0)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}
