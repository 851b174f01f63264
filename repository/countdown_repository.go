package repository

import (
	"context"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type countdownRepository struct {
	collection *mongo.Collection
}

func NewCountdown(db *mongo.Database) port.CountdownRepository {
	return &countdownRepository{collection: db.Collection(countdownsCollection)}
}

func (r *countdownRepository) ListCountdowns(ctx context.Context) ([]models.Countdown, error) {
	opts := options.Find().SetSort(bson.D{{Key: "target_date", Value: 1}})

	countdowns, err := findAll[models.Countdown](ctx, r.collection, bson.D{}, opts)
	if err != nil {
		return nil, mapErr("list countdowns", err)
	}
	return countdowns, nil
}

func (r *countdownRepository) ActiveCountdowns(ctx context.Context, now time.Time) ([]models.Countdown, error) {
	filter := bson.M{
		"is_active":   true,
		"target_date": bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "target_date", Value: 1}})

	countdowns, err := findAll[models.Countdown](ctx, r.collection, filter, opts)
	if err != nil {
		return nil, mapErr("active countdowns", err)
	}
	return countdowns, nil
}

func (r *countdownRepository) InsertCountdown(ctx context.Context, countdown *models.Countdown) error {
	if countdown.ID.IsZero() {
		countdown.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, countdown); err != nil {
		return mapErr("insert countdown", err)
	}
	return nil
}

func (r *countdownRepository) UpdateCountdown(ctx context.Context, countdown models.Countdown) error {
	update := bson.M{"$set": bson.M{
		"title":       countdown.Title,
		"description": countdown.Description,
		"target_date": countdown.TargetDate,
		"link_url":    countdown.LinkURL,
		"is_active":   countdown.IsActive,
		"updated_at":  countdown.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": countdown.ID}, update)
	if err != nil {
		return mapErr("update countdown", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("update countdown", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *countdownRepository) DeleteCountdown(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr("delete countdown", err)
	}
	if res.DeletedCount == 0 {
		return mapErr("delete countdown", mongo.ErrNoDocuments)
	}
	return nil
}
