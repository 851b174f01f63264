package repository

import (
	"context"

	"go-giftshop/models"
	"go-giftshop/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reviewRepository struct {
	collection *mongo.Collection
}

func NewReview(db *mongo.Database) port.ReviewRepository {
	return &reviewRepository{collection: db.Collection(reviewsCollection)}
}

func (r *reviewRepository) ListReviews(ctx context.Context, filter models.ReviewFilter, page int) ([]models.Review, int64, error) {
	query := bson.D{}
	if filter.ProductID != nil {
		query = append(query, bson.E{Key: "product_id", Value: *filter.ProductID})
	}
	if filter.IsApproved != nil {
		query = append(query, bson.E{Key: "is_approved", Value: *filter.IsApproved})
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapErr("count reviews", err)
	}

	opts := pageOptions(page).SetSort(bson.D{{Key: "created_at", Value: -1}})

	reviews, err := findAll[models.Review](ctx, r.collection, query, opts)
	if err != nil {
		return nil, 0, mapErr("list reviews", err)
	}
	return reviews, total, nil
}

func (r *reviewRepository) InsertReview(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, review); err != nil {
		return mapErr("insert review", err)
	}
	return nil
}

func (r *reviewRepository) SetReviewApproval(ctx context.Context, id primitive.ObjectID, approved bool) (models.Review, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var review models.Review
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_approved": approved}},
		opts,
	).Decode(&review)
	if err != nil {
		return models.Review{}, mapErr("set review approval", err)
	}
	return review, nil
}

func (r *reviewRepository) DeleteReview(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr("delete review", err)
	}
	if res.DeletedCount == 0 {
		return mapErr("delete review", mongo.ErrNoDocuments)
	}
	return nil
}
