package account

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestResetStore(t *testing.T) (*ResetTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewResetTokenStore(rdb), mr
}

func TestResetTokenStore_SaveConsume(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	token, err := generateResetToken()
	if err != nil {
		t.Fatalf("generateResetToken: %v", err)
	}

	if err := store.Save(ctx, hashResetToken(token), 42, 30*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	id, ok, err := store.Consume(ctx, hashResetToken(token))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !ok {
		t.Fatal("expected the token to resolve")
	}
	if id != 42 {
		t.Errorf("expected account id 42, got %d", id)
	}
}

func TestResetTokenStore_OneTimeUse(t *testing.T) {
	store, _ := newTestResetStore(t)
	ctx := context.Background()

	hash := hashResetToken("some-token")
	if err := store.Save(ctx, hash, 7, 30*time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, ok, err := store.Consume(ctx, hash); err != nil || !ok {
		t.Fatalf("first consume should succeed, got ok=%v err=%v", ok, err)
	}

	_, ok, err := store.Consume(ctx, hash)
	if err != nil {
		t.Fatalf("second Consume: %v", err)
	}
	if ok {
		t.Error("token must be single-use")
	}
}

func TestResetTokenStore_UnknownToken(t *testing.T) {
	store, _ := newTestResetStore(t)

	_, ok, err := store.Consume(context.Background(), hashResetToken("never-issued"))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ok {
		t.Error("unknown token must not resolve")
	}
}

func TestResetTokenStore_Expiry(t *testing.T) {
	store, mr := newTestResetStore(t)
	ctx := context.Background()

	hash := hashResetToken("short-lived")
	if err := store.Save(ctx, hash, 9, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Consume(ctx, hash)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ok {
		t.Error("expired token must not resolve")
	}
}
