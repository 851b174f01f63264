package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Countdown is a timed promotion shown on the storefront until TargetDate.
type Countdown struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TargetDate  time.Time          `bson:"target_date" json:"targetDate"`
	LinkURL     string             `bson:"link_url,omitempty" json:"linkUrl,omitempty"`
	IsActive    bool               `bson:"is_active" json:"isActive"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}
