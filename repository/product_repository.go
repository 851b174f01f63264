package repository

import (
	"context"

	"go-giftshop/models"
	"go-giftshop/port"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type productRepository struct {
	collection *mongo.Collection
}

func NewProduct(db *mongo.Database) port.ProductRepository {
	return &productRepository{collection: db.Collection(productsCollection)}
}

func productFilterToBSON(filter models.ProductFilter) bson.D {
	query := bson.D{}

	if filter.OnlyActive {
		query = append(query, bson.E{Key: "is_active", Value: true})
	}
	if filter.CategorySlug != "" {
		query = append(query, bson.E{Key: "category_slug", Value: filter.CategorySlug})
	}
	if filter.Search != "" {
		re := containsInsensitive(filter.Search)
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}})
	}

	return query
}

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter, page int) ([]models.Product, int64, error) {
	query := productFilterToBSON(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapErr("count products", err)
	}

	opts := pageOptions(page).SetSort(bson.D{
		{Key: "is_featured", Value: -1},
		{Key: "created_at", Value: -1},
	})

	products, err := findAll[models.Product](ctx, r.collection, query, opts)
	if err != nil {
		return nil, 0, mapErr("list products", err)
	}
	return products, total, nil
}

func (r *productRepository) GetProduct(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var product models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return models.Product{}, mapErr("get product", err)
	}
	return product, nil
}

func (r *productRepository) GetProductBySlug(ctx context.Context, slug string) (models.Product, error) {
	var product models.Product
	if err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&product); err != nil {
		return models.Product{}, mapErr("get product by slug", err)
	}
	return product, nil
}

func (r *productRepository) CountProductsInCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"category_id": categoryID})
	if err != nil {
		return 0, mapErr("count products in category", err)
	}
	return n, nil
}

func (r *productRepository) InsertProduct(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		return mapErr("insert product", err)
	}
	return nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product models.Product) error {
	update := bson.M{"$set": bson.M{
		"name":          product.Name,
		"slug":          product.Slug,
		"description":   product.Description,
		"price":         product.Price,
		"images":        product.Images,
		"category_id":   product.CategoryID,
		"category_slug": product.CategorySlug,
		"is_active":     product.IsActive,
		"is_featured":   product.IsFeatured,
		"updated_at":    product.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return mapErr("update product", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("update product", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr("delete product", err)
	}
	if res.DeletedCount == 0 {
		return mapErr("delete product", mongo.ErrNoDocuments)
	}
	return nil
}
