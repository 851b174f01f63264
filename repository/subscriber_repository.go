package repository

import (
	"context"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type subscriberRepository struct {
	collection *mongo.Collection
}

func NewSubscriber(db *mongo.Database) port.SubscriberRepository {
	return &subscriberRepository{collection: db.Collection(subscribersCollection)}
}

func (r *subscriberRepository) GetSubscriberByEmail(ctx context.Context, email string) (models.EmailSubscriber, error) {
	var subscriber models.EmailSubscriber
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&subscriber); err != nil {
		return models.EmailSubscriber{}, mapErr("get subscriber", err)
	}
	return subscriber, nil
}

func (r *subscriberRepository) InsertSubscriber(ctx context.Context, subscriber *models.EmailSubscriber) error {
	if subscriber.ID.IsZero() {
		subscriber.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, subscriber); err != nil {
		return mapErr("insert subscriber", err)
	}
	return nil
}

func (r *subscriberRepository) SetSubscriberActive(ctx context.Context, id primitive.ObjectID, active bool, name string, at time.Time) error {
	var update bson.M
	if active {
		set := bson.M{"is_active": true, "subscribed_at": at}
		if name != "" {
			set["name"] = name
		}
		update = bson.M{"$set": set, "$unset": bson.M{"unsubscribed_at": ""}}
	} else {
		update = bson.M{"$set": bson.M{"is_active": false, "unsubscribed_at": at}}
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapErr("set subscriber active", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("set subscriber active", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *subscriberRepository) ListSubscribers(ctx context.Context, active *bool, page int) ([]models.EmailSubscriber, int64, error) {
	query := bson.D{}
	if active != nil {
		query = append(query, bson.E{Key: "is_active", Value: *active})
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapErr("count subscribers", err)
	}

	opts := pageOptions(page).SetSort(bson.D{{Key: "subscribed_at", Value: -1}})

	subscribers, err := findAll[models.EmailSubscriber](ctx, r.collection, query, opts)
	if err != nil {
		return nil, 0, mapErr("list subscribers", err)
	}
	return subscribers, total, nil
}
