package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmailSubscriber struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email          string             `bson:"email" json:"email"`
	Name           string             `bson:"name,omitempty" json:"name,omitempty"`
	IsActive       bool               `bson:"is_active" json:"isActive"`
	SubscribedAt   time.Time          `bson:"subscribed_at" json:"subscribedAt"`
	UnsubscribedAt *time.Time         `bson:"unsubscribed_at,omitempty" json:"unsubscribedAt,omitempty"`
}
