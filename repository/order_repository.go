package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go-giftshop/models"
	"go-giftshop/port"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrder(db *mongo.Database) port.OrderRepository {
	return &orderRepository{collection: db.Collection(ordersCollection)}
}

func orderFilterToBSON(filter models.OrderFilter) bson.D {
	query := bson.D{}

	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: filter.Status})
	}
	if filter.Branch != "" {
		query = append(query, bson.E{Key: "branch", Value: filter.Branch})
	}
	if filter.Search != "" {
		re := containsInsensitive(filter.Search)
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.M{"order_number": re},
			bson.M{"customer.name": re},
			bson.M{"customer.email": re},
			bson.M{"customer.phone": re},
			bson.M{"delivery.recipient_name": re},
		}})
	}

	created := bson.M{}
	if filter.DateFrom != nil {
		created["$gte"] = *filter.DateFrom
	}
	if filter.DateTo != nil {
		created["$lt"] = *filter.DateTo
	}
	if len(created) > 0 {
		query = append(query, bson.E{Key: "created_at", Value: created})
	}

	return query
}

func (r *orderRepository) LatestOrderNumber(ctx context.Context, prefix string) (string, error) {
	filter := bson.M{"order_number": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order_number", Value: -1}}).
		SetProjection(bson.M{"order_number": 1})

	var latest struct {
		OrderNumber string `bson:"order_number"`
	}
	err := r.collection.FindOne(ctx, filter, opts).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", mapErr("latest order number", err)
	}
	return latest.OrderNumber, nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		return mapErr("insert order", err)
	}
	return nil
}

func (r *orderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"order_number": orderNumber}).Decode(&order); err != nil {
		return models.Order{}, mapErr("get order", err)
	}
	return order, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter models.OrderFilter, page int) ([]models.Order, int64, error) {
	query := orderFilterToBSON(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapErr("count orders", err)
	}

	opts := pageOptions(page).SetSort(bson.D{{Key: "created_at", Value: -1}})

	orders, err := findAll[models.Order](ctx, r.collection, query, opts)
	if err != nil {
		return nil, 0, mapErr("list orders", err)
	}
	return orders, total, nil
}

func (r *orderRepository) CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, orderFilterToBSON(filter))
	if err != nil {
		return 0, mapErr("count orders", err)
	}
	return n, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderNumber string, status models.OrderStatus, at time.Time) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": at}}

	res, err := r.collection.UpdateOne(ctx, bson.M{"order_number": orderNumber}, update)
	if err != nil {
		return mapErr("update order status", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("update order status", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *orderRepository) UpdateOrderItems(ctx context.Context, order models.Order) error {
	update := bson.M{"$set": bson.M{
		"items":      order.Items,
		"subtotal":   order.Subtotal,
		"discount":   order.Discount,
		"total":      order.Total,
		"updated_at": order.UpdatedAt,
	}}

	res, err := r.collection.UpdateOne(ctx, bson.M{"order_number": order.OrderNumber}, update)
	if err != nil {
		return mapErr("update order items", err)
	}
	if res.MatchedCount == 0 {
		return mapErr("update order items", mongo.ErrNoDocuments)
	}
	return nil
}

// ProductSales lists the most recent non-cancelled order lines for a product
// together with totals over all of them.
func (r *orderRepository) ProductSales(ctx context.Context, productID primitive.ObjectID, limit int) (models.SalesReport, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"items.product_id": productID,
			"status":           bson.M{"$ne": models.OrderStatusCancelled},
		}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$match", Value: bson.M{"items.product_id": productID}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$facet", Value: bson.M{
			"recent": bson.A{
				bson.M{"$limit": limit},
				bson.M{"$project": bson.M{
					"_id":          0,
					"order_number": 1,
					"status":       1,
					"quantity":     "$items.quantity",
					"unit_price":   "$items.unit_price",
					"line_total":   "$items.line_total",
					"sold_at":      "$created_at",
				}},
			},
			"totals": bson.A{
				bson.M{"$group": bson.M{
					"_id":      nil,
					"quantity": bson.M{"$sum": "$items.quantity"},
					"amount":   bson.M{"$sum": "$items.line_total"},
				}},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return models.SalesReport{}, mapErr("aggregate product sales", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Recent []models.Sale `bson:"recent"`
		Totals []struct {
			Quantity int             `bson:"quantity"`
			Amount   decimal.Decimal `bson:"amount"`
		} `bson:"totals"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return models.SalesReport{}, mapErr("decode product sales", err)
	}

	report := models.SalesReport{Sales: []models.Sale{}, TotalAmount: decimal.Zero}
	if len(facets) == 0 {
		return report, nil
	}
	if facets[0].Recent != nil {
		report.Sales = facets[0].Recent
	}
	if len(facets[0].Totals) > 0 {
		report.TotalQuantity = facets[0].Totals[0].Quantity
		report.TotalAmount = facets[0].Totals[0].Amount
	}
	return report, nil
}
