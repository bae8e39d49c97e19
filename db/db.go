package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	Users     = "users"
	Events    = "events"
	Feedbacks = "feedbacks"
)

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// run on every boot.
func EnsureIndexes(ctx context.Context, d *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		Users: {
			{Keys: bson.D{{Key: "clerk_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("clerk_id_unique")},
		},
		Feedbacks: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("user_event_unique")},
			{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		Events: {
			{Keys: bson.D{{Key: "organizer_id", Value: 1}}},
			{Keys: bson.D{{Key: "attendees", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
	}
	for coll, models := range specs {
		names, err := d.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		log.Printf("db: indexes on %s: %v", coll, names)
	}
	return nil
}
