package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/drive-passport/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConnectMongo_BadURI(t *testing.T) {
	os.Setenv("MONGO_URI", "mongodb://bad:uri")
	defer os.Unsetenv("MONGO_URI")
	client, err := ConnectMongo()
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestMongoTripCollection_NilCollection(t *testing.T) {
	coll := &MongoTripCollection{Collection: nil}
	ctx := context.Background()
	trip := models.NewTrip(time.Now(), 40.7, -74.0)

	assert.Error(t, coll.InsertTrip(ctx, trip))
	assert.Error(t, coll.UpdateTrip(ctx, trip))
	assert.Error(t, coll.DeleteTrip(ctx, trip.ID))
	assert.Error(t, coll.DeleteAllTrips(ctx))
	assert.Error(t, coll.ClearVehicleRefs(ctx, trip.ID.Hex()))

	_, err := coll.FindTripByID(ctx, trip.ID)
	assert.Error(t, err)
	_, err = coll.FindTrips(ctx, bson.M{})
	assert.Error(t, err)
}

func TestMongoVehicleCollection_NilCollection(t *testing.T) {
	coll := &MongoVehicleCollection{Collection: nil}
	ctx := context.Background()
	vehicle := models.NewVehicle("Daily Driver")

	assert.Error(t, coll.InsertVehicle(ctx, vehicle))
	assert.Error(t, coll.UpdateVehicle(ctx, vehicle.ID.Hex(), vehicle))
	assert.Error(t, coll.DeleteVehicle(ctx, vehicle.ID.Hex()))
	assert.Error(t, coll.DeleteAllVehicles(ctx))

	_, err := coll.FindVehicles(ctx, bson.M{})
	assert.Error(t, err)
	_, err = coll.FindVehicleByID(ctx, vehicle.ID.Hex())
	assert.Error(t, err)
}

func TestMongoStateStore_NilCollection(t *testing.T) {
	store := &MongoStateStore{Collection: nil}
	ctx := context.Background()

	_, err := store.Get(ctx, StateKeyActiveTrip)
	assert.Error(t, err)
	assert.Error(t, store.Set(ctx, StateKeyActiveTrip, primitive.NewObjectID().Hex()))
	assert.Error(t, store.Delete(ctx, StateKeyActiveTrip))
}

// Integration test (requires running MongoDB)
func TestTripRoundTrip_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "drive_passport_test"
	}
	coll := &MongoTripCollection{Collection: client.Database(dbName).Collection("trips")}
	ctx := context.Background()

	trip := models.NewTrip(time.Now().UTC().Truncate(time.Millisecond), 40.7128, -74.0060)
	if err := trip.SetRouteCoordinates([]models.Location{{Lat: 40.7128, Lon: -74.0060}}); err != nil {
		t.Fatalf("failed to encode route: %v", err)
	}
	if err := coll.InsertTrip(ctx, trip); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	defer coll.DeleteTrip(ctx, trip.ID)

	got, err := coll.FindTripByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	assert.Equal(t, trip.ID, got.ID)
	assert.True(t, got.IsInProgress())
	assert.Len(t, got.RouteCoordinates(), 1)
}
