package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// stateDoc is the shape of one key-value entry in the app_state collection.
type stateDoc struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// MongoStateStore implements StateStore on a dedicated app_state collection,
// keeping process-wide preferences out of the entity collections.
type MongoStateStore struct {
	Collection *mongo.Collection
}

// Get returns the stored value for key, or ErrNotFound.
func (s *MongoStateStore) Get(ctx context.Context, key string) (string, error) {
	if s.Collection == nil {
		return "", fmt.Errorf("mongo collection is nil")
	}
	var doc stateDoc
	err := s.Collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrNotFound
		}
		return "", err
	}
	return doc.Value, nil
}

// Set durably writes value under key, creating the entry if needed.
func (s *MongoStateStore) Set(ctx context.Context, key, value string) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := s.Collection.ReplaceOne(
		ctx,
		bson.M{"_id": key},
		stateDoc{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	return err
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *MongoStateStore) Delete(ctx context.Context, key string) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := s.Collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
