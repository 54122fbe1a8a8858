package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle represents a car the owner records trips with.
type Vehicle struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Make      string             `bson:"make,omitempty" json:"make,omitempty"`
	Model     string             `bson:"model,omitempty" json:"model,omitempty"`
	Year      int                `bson:"year,omitempty" json:"year,omitempty"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// NewVehicle creates an active vehicle with the given display name.
func NewVehicle(name string) *Vehicle {
	return &Vehicle{
		ID:        primitive.NewObjectID(),
		Name:      name,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}
