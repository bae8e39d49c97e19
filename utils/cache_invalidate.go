package utils

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Key prefixes shared with middlewares.ResponseCache.
const (
	EventsListPrefix = "cache:events:list:"
	EventsItemPrefix = "cache:events:item:"
)

// EventItemKey is the cache key of GET /api/events/:event_id. Hex ids are
// lower-cased so every spelling of one event shares a key.
func EventItemKey(id string) string {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		id = oid.Hex()
	}
	return EventsItemPrefix + id
}

type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

// PurgeEventsList drops every cached event list (all events and per-organizer lists).
func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) {
	iter := ci.rdb.Scan(ctx, 0, EventsListPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		_ = ci.rdb.Del(ctx, iter.Val()).Err()
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: purge events list: %v", err)
	}
}

func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) {
	if err := ci.rdb.Del(ctx, EventItemKey(id)).Err(); err != nil {
		log.Printf("cache: purge event %s: %v", id, err)
	}
}
