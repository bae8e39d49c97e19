package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoUserRepo struct{ col *mongo.Collection }

func NewMongoUserRepository(col *mongo.Collection) UserRepository { return &mongoUserRepo{col} }

// Create relies on the unique clerk_id index, so two concurrent inserts for
// the same identity resolve to one document and one ErrDuplicate.
func (r *mongoUserRepo) Create(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (r *mongoUserRepo) GetByClerkID(ctx context.Context, clerkID string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u User
	if err := r.col.FindOne(ctx, bson.M{"clerk_id": clerkID}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *mongoUserRepo) TouchLastLogin(ctx context.Context, clerkID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"clerk_id": clerkID}, bson.M{"$set": bson.M{"last_login": at}})
	if err != nil {
		return fmt.Errorf("touch last_login: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
