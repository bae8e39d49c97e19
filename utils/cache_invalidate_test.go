package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCacheInvalidator_Purge(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	rdb.Set(ctx, EventsListPrefix+"all", "x", time.Minute)
	rdb.Set(ctx, EventsListPrefix+"organizer:org_1", "x", time.Minute)
	rdb.Set(ctx, EventItemKey("a"), "x", time.Minute)
	rdb.Set(ctx, EventItemKey("b"), "x", time.Minute)

	inv := NewCacheInvalidator(rdb)
	inv.PurgeEventsList(ctx)
	inv.PurgeEventItem(ctx, "a")

	if mr.Exists(EventsListPrefix+"all") || mr.Exists(EventsListPrefix+"organizer:org_1") {
		t.Fatal("list keys should be gone")
	}
	if mr.Exists(EventItemKey("a")) {
		t.Fatal("item a should be gone")
	}
	if !mr.Exists(EventItemKey("b")) {
		t.Fatal("item b must survive")
	}
}

func TestEventItemKey(t *testing.T) {
	const id = "65f2d1e8a2b4a73d8e3b4b12"
	if got, want := EventItemKey("65F2D1E8A2B4A73D8E3B4B12"), EventsItemPrefix+id; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := EventItemKey("not-hex"); got != EventsItemPrefix+"not-hex" {
		t.Fatalf("non-hex ids are kept as given, got %q", got)
	}
}
