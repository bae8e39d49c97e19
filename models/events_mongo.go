package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 5 * time.Second

type mongoEventRepo struct {
	col *mongo.Collection
}

func NewMongoEventRepository(col *mongo.Collection) EventRepository {
	return &mongoEventRepo{col: col}
}

func (r *mongoEventRepo) find(ctx context.Context, filter bson.M) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cur.Close(ctx)

	out := []Event{}
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		e.Normalize()
		out = append(out, e)
	}
	return out, cur.Err()
}

func (r *mongoEventRepo) GetAll(ctx context.Context) ([]Event, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoEventRepo) GetByOrganizer(ctx context.Context, organizerID string) ([]Event, error) {
	return r.find(ctx, bson.M{"organizer_id": organizerID})
}

func (r *mongoEventRepo) GetAttendedBy(ctx context.Context, userID string) ([]Event, error) {
	return r.find(ctx, bson.M{"attendees": userID})
}

func (r *mongoEventRepo) GetByID(ctx context.Context, id string) (Event, error) {
	oid, err := ParseID(id)
	if err != nil {
		return Event{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var e Event
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("find event %s: %w", id, err)
	}
	e.Normalize()
	return e, nil
}

func (r *mongoEventRepo) Create(ctx context.Context, e *Event) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// $addToSet refuses to operate on a null field, so the sets must exist as arrays.
	e.Normalize()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid
	}
	return nil
}

func (r *mongoEventRepo) UpdateImages(ctx context.Context, id string, patch ImagePatch) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	set := bson.M{}
	if patch.ImageURL != nil {
		set["image_url"] = *patch.ImageURL
	}
	if patch.BannerImage != nil {
		set["banner_image"] = *patch.BannerImage
	}
	if patch.GalleryImages != nil {
		gallery := *patch.GalleryImages
		if gallery == nil {
			gallery = []string{}
		}
		set["gallery_images"] = gallery
	}
	if len(set) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update images %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoEventRepo) ApplyRegistration(ctx context.Context, id, userID, sessionID string) (bool, error) {
	oid, err := ParseID(id)
	if err != nil {
		return false, err
	}

	// The membership checks live in the filter so the store evaluates them
	// and applies the update as one step; a concurrent winner makes this a no-op.
	filter := bson.M{"_id": oid, "attendees": bson.M{"$ne": userID}}
	add := bson.M{"attendees": userID}
	if sessionID != "" {
		filter["payment_sessions"] = bson.M{"$ne": sessionID}
		add["payment_sessions"] = sessionID
	}
	update := bson.M{
		"$addToSet": add,
		"$inc":      bson.M{"attendee_count": 1},
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("apply registration %s: %w", id, err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("count event %s: %w", id, err)
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *mongoEventRepo) AddComment(ctx context.Context, id string, c Comment) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"comments": c}})
	if err != nil {
		return fmt.Errorf("add comment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoEventRepo) DeleteComment(ctx context.Context, id, commentID string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "comments.id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"id": commentID}}})
	if err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
