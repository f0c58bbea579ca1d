package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "sg")
	return store, rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func testSession() *Session {
	now := time.Now()
	return &Session{
		ID:         "sid-1",
		UserID:     "u-1",
		RememberMe: true,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(time.Hour).Unix(),
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.ID != sess.ID || got.UserID != sess.UserID || !got.RememberMe {
		t.Fatalf("unexpected session round trip: %+v", got)
	}
	if got.ExpiresAt != sess.ExpiresAt {
		t.Fatalf("expected expiry %d, got %d", sess.ExpiresAt, got.ExpiresAt)
	}
}

func TestGetMissingSession(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()

	_, err := store.Get(context.Background(), "no-such-session")
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil for missing session, got %v", err)
	}
}

func TestGetExpiredBlobDeletesSession(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession()
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil for expired session, got %v", err)
	}

	exists, err := rdb.Exists(ctx, store.Key(sess.ID)).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 0 {
		t.Fatal("expected expired session key to be deleted on read")
	}
}

func TestDeleteIdempotentCounterAndIndex(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected session count 0, got %d", count)
	}

	members, err := rdb.SMembers(ctx, store.userKey(sess.UserID)).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no user index members, got %v", members)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, id := range []string{"sid-a", "sid-b", "sid-c"} {
		sess := testSession()
		sess.ID = id
		if err := store.Save(ctx, sess, time.Hour); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	other := testSession()
	other.ID = "sid-other"
	other.UserID = "u-2"
	if err := store.Save(ctx, other, time.Hour); err != nil {
		t.Fatalf("save other user session: %v", err)
	}

	if err := store.DeleteAllForUser(ctx, "u-1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	ids, err := store.ActiveSessionIDs(ctx, "u-1")
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no sessions for u-1, got %v", ids)
	}

	// The other user's session survives.
	if _, err := store.Get(ctx, "sid-other"); err != nil {
		t.Fatalf("expected u-2 session to survive: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected session count 1, got %d", count)
	}

	exists, err := rdb.Exists(ctx, store.userKey("u-1")).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 0 {
		t.Fatal("expected u-1 index set to be removed")
	}
}

func TestCountNeverNegative(t *testing.T) {
	store, rdb, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	sess := testSession()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	// Session key expires underneath the index entry.
	if err := rdb.Del(ctx, store.Key(sess.ID)).Err(); err != nil {
		t.Fatalf("del: %v", err)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete after expiry: %v", err)
	}
	if err := store.DeleteAllForUser(ctx, sess.UserID); err != nil {
		t.Fatalf("delete all after expiry: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count < 0 {
		t.Fatalf("session counter went negative: %d", count)
	}
}
