package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/kantei/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on disabled client = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on disabled client = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	cfg := APIRateLimit("127.0.0.1", 5, 10)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != cfg.Limit {
		t.Errorf("Expected remaining = %d, got %d", cfg.Limit, remaining)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")

	if err := cache.Set(context.Background(), "key", "value", TTLShort); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
}

func TestAPIRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		perSecond float64
		burst     int
		wantLimit int
	}{
		{"burst above rate", 20, 40, 40},
		{"rate above burst", 50, 10, 50},
		{"floor at one", 0.2, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := APIRateLimit("10.0.0.1", tt.perSecond, tt.burst)
			if cfg.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", cfg.Limit, tt.wantLimit)
			}
			if cfg.Key != "api:10.0.0.1" || cfg.Window != time.Second {
				t.Errorf("unexpected config %+v", cfg)
			}
		})
	}
}

func TestAppraisalKey(t *testing.T) {
	got := AppraisalKey("abc123", "0123456789abcdef0123")
	if got != "appraisal:0123456789ab:abc123" {
		t.Errorf("got %q", got)
	}
	if AppraisalKey("r", "short") != "appraisal:short:r" {
		t.Error("short config hash should be kept whole")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	if testing.Short() || os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	client, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	cache := NewCache(client, "kantei-test")
	ctx := context.Background()
	type payload struct{ Value int64 }

	if err := cache.Set(ctx, "roundtrip", payload{Value: 42}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var got payload
	found, err := cache.Get(ctx, "roundtrip", &got)
	if err != nil || !found || got.Value != 42 {
		t.Errorf("Get() = %v, %v, %+v", found, err, got)
	}
	_ = cache.Delete(ctx, "roundtrip")
}
