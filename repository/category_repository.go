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

type categoryRepository struct {
	collection *mongo.Collection
	products   *mongo.Collection
}

func NewCategory(db *mongo.Database) port.CategoryRepository {
	return &categoryRepository{
		collection: db.Collection(categoriesCollection),
		products:   db.Collection(productsCollection),
	}
}

func (r *categoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	categories, err := findAll[models.Category](ctx, r.collection, bson.D{}, opts)
	if err != nil {
		return nil, mapErr("list categories", err)
	}
	return categories, nil
}

func (r *categoryRepository) GetCategory(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	var category models.Category
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&category); err != nil {
		return models.Category{}, mapErr("get category", err)
	}
	return category, nil
}

func (r *categoryRepository) GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error) {
	var category models.Category
	if err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&category); err != nil {
		return models.Category{}, mapErr("get category by slug", err)
	}
	return category, nil
}

func (r *categoryRepository) InsertCategory(ctx context.Context, category *models.Category) error {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, category); err != nil {
		return mapErr("insert category", err)
	}
	return nil
}

// UpdateCategory also refreshes the slug copied onto the category's products.
func (r *categoryRepository) UpdateCategory(ctx context.Context, category models.Category) error {
	update := bson.M{"$set": bson.M{
		"name":        category.Name,
		"slug":        category.Slug,
		"description": category.Description,
		"updated_at":  category.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": category.ID}, update)
	if err != nil {
		return mapErr("update category", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("update category", mongo.ErrNoDocuments)
	}

	_, err = r.products.UpdateMany(ctx,
		bson.M{"category_id": category.ID},
		bson.M{"$set": bson.M{"category_slug": category.Slug}},
	)
	if err != nil {
		return mapErr("update product category slugs", err)
	}
	return nil
}

func (r *categoryRepository) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr("delete category", err)
	}
	if res.DeletedCount == 0 {
		return mapErr("delete category", mongo.ErrNoDocuments)
	}
	return nil
}
