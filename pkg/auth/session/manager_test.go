package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/config"
	redisclient "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/redis"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis, *redisclient.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	client := redisclient.NewFromClient(raw)

	manager, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, mr, client
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisclient.NewFromClient(redislib.NewClient(&redislib.Options{Addr: mr.Addr()}))
	if _, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}); err == nil {
		t.Fatal("expected refresh ttl validation error")
	}
	if _, err := NewManager(nil, config.JWTConfig{}); err == nil {
		t.Fatal("expected nil client error")
	}
}

func TestManagerGenerateAndRotate(t *testing.T) {
	manager, mr, client := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	accessID := "access-123"
	token, err := manager.Generate(ctx, accessID, userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ttl := mr.TTL(client.AccessSessionKey(accessID)); ttl != time.Hour {
		t.Fatalf("expected refresh ttl 1h, got %v", ttl)
	}

	if _, _, err := manager.Rotate(ctx, accessID, userID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, accessID, uuid.New(), token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected mismatched user to fail, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, accessID, userID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if mr.Exists(client.AccessSessionKey(accessID)) {
		t.Fatalf("old access key left behind")
	}
	ok, err := manager.HasSession(ctx, newAccessID)
	if err != nil || !ok {
		t.Fatalf("expected new session, ok=%v err=%v", ok, err)
	}
	if newToken == token {
		t.Fatalf("expected a fresh refresh token")
	}

	if _, _, err := manager.Rotate(ctx, accessID, userID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected replayed rotation to fail, got %v", err)
	}
}

func TestManagerRevoke(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "access-1", uuid.New()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := manager.Revoke(ctx, "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err := manager.HasSession(ctx, "access-1")
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatal("expected session to be gone")
	}
	if err := manager.Revoke(ctx, " "); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}
