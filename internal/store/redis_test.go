package store

import (
	"context"
	"os"
	"testing"
	"time"
)

// Runs only when LOSTFOUND_TEST_REDIS points at a disposable Redis instance.
func TestRedisTokens(t *testing.T) {
	addr := os.Getenv("LOSTFOUND_TEST_REDIS")
	if addr == "" {
		t.Skip("LOSTFOUND_TEST_REDIS not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	tokens := &RedisTokens{Client: client, Sealer: testSealer(t), TTL: time.Minute}
	sid := "test-" + time.Now().Format("150405.000000")

	if err := tokens.Put(ctx, sid, "api-token"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := tokens.Get(ctx, sid)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "api-token" {
		t.Errorf("expected 'api-token', got %q", got)
	}

	if err := tokens.Delete(ctx, sid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = tokens.Get(ctx, sid)
	if got != "" {
		t.Errorf("expected empty token after delete, got %q", got)
	}
}
