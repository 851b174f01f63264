package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ProductID  primitive.ObjectID `bson:"product_id" json:"productId"`
	AuthorName string             `bson:"author_name" json:"authorName"`
	Rating     int                `bson:"rating" json:"rating"`
	Comment    string             `bson:"comment" json:"comment"`
	IsApproved bool               `bson:"is_approved" json:"isApproved"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}

// ReviewFilter selects reviews for listing; nil fields are ignored
type ReviewFilter struct {
	ProductID  *primitive.ObjectID
	IsApproved *bool
}
