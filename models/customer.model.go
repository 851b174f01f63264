package models

import "time"

// Customer is the person placing the order
type Customer struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone" json:"phone"`
}

// Delivery describes who receives the gift and when
type Delivery struct {
	RecipientName  string     `bson:"recipient_name" json:"recipientName"`
	RecipientPhone string     `bson:"recipient_phone" json:"recipientPhone"`
	Address        string     `bson:"address" json:"address"`
	Date           *time.Time `bson:"date,omitempty" json:"date,omitempty"`
	TimeSlot       string     `bson:"time_slot,omitempty" json:"timeSlot,omitempty"`
	CardMessage    string     `bson:"card_message,omitempty" json:"cardMessage,omitempty"`
}
