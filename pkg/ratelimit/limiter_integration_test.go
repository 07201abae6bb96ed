//go:build integration

package ratelimit

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}
	return client, cleanup
}

func TestLimiter_Integration_SharedState(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	// two processes paging the same API
	a := NewLimiter(client, "api.example.com", DefaultOptions(), logger)
	b := NewLimiter(client, "api.example.com", DefaultOptions(), logger)
	other := NewLimiter(client, "other.example.com", DefaultOptions(), logger)

	headers := http.Header{}
	headers.Set(HeaderRemaining, "0")
	headers.Set(HeaderReset, "20")
	if err := a.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	if allowed, _, err := b.Allow(ctx); err != nil || allowed {
		t.Errorf("Expected the second limiter to see the exhausted budget, allowed=%v err=%v", allowed, err)
	}
	if allowed, _, err := other.Allow(ctx); err != nil || !allowed {
		t.Errorf("Expected other scopes to be unaffected, allowed=%v err=%v", allowed, err)
	}

	ttl, err := client.TTL(ctx, Key("api.example.com")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 22*time.Second {
		t.Errorf("Expected state to expire with the window, TTL=%v", ttl)
	}
}
