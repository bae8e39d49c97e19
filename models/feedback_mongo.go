package models

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoFeedbackRepo struct{ col *mongo.Collection }

func NewMongoFeedbackRepository(col *mongo.Collection) FeedbackRepository {
	return &mongoFeedbackRepo{col}
}

func (r *mongoFeedbackRepo) Create(ctx context.Context, f *Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, f)
	if err != nil {
		// unique (user_id, event_id) index
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		f.ID = oid
	}
	return nil
}

func (r *mongoFeedbackRepo) Get(ctx context.Context, userID, eventID string) (Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var f Feedback
	err := r.col.FindOne(ctx, bson.M{"user_id": userID, "event_id": eventID}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Feedback{}, ErrNotFound
		}
		return Feedback{}, fmt.Errorf("find feedback: %w", err)
	}
	return f, nil
}

func (r *mongoFeedbackRepo) ListByEvent(ctx context.Context, eventID string) ([]Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	defer cur.Close(ctx)

	out := []Feedback{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}
	return out, nil
}
