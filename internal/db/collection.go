package db

import (
	"context"
	"errors"

	"github.com/ukydev/drive-passport/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a looked-up document does not exist.
var ErrNotFound = errors.New("not found")

// State keys persisted in the app_state collection. These live outside the
// entity collections so they survive independently of trip documents.
const (
	StateKeyActiveTrip     = "active_trip_id"
	StateKeyDefaultVehicle = "default_vehicle_id"
)

// TripCollection defines the interface for trip storage operations.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip *models.Trip) error
	UpdateTrip(ctx context.Context, trip *models.Trip) error
	DeleteTrip(ctx context.Context, id primitive.ObjectID) error
	DeleteAllTrips(ctx context.Context) error
	FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	FindTrips(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Trip, error)
	ClearVehicleRefs(ctx context.Context, vehicleID string) error
}

// VehicleCollection defines the interface for vehicle storage operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicles(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, vehicle *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error
	DeleteAllVehicles(ctx context.Context) error
}

// StateStore defines durable key-value state kept outside the entity
// collections (active trip pointer, default vehicle).
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
