package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageSize is the fixed page size of every paginated listing.
const PageSize = 20

// MaxPage is the highest page a listing will seek to. Larger requests get
// this page, which keeps the skip offset far from integer overflow.
const MaxPage = 100_000

// ClampPage bounds page to [1, MaxPage].
func ClampPage(page int) int {
	return min(max(page, 1), MaxPage)
}

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Slug         string             `bson:"slug" json:"slug"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Price        decimal.Decimal    `bson:"price" json:"price"`
	Images       []string           `bson:"images,omitempty" json:"images,omitempty"`
	CategoryID   primitive.ObjectID `bson:"category_id" json:"categoryId"`
	CategorySlug string             `bson:"category_slug" json:"categorySlug"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	IsFeatured   bool               `bson:"is_featured" json:"isFeatured"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// MainImage is the image snapshotted into carts and orders.
func (p Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type ProductFilter struct {
	CategorySlug string
	Search       string
	OnlyActive   bool
}
