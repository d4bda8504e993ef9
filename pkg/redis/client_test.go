package redis

import (
	"context"
	"testing"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/config"
)

func configRedis(url, addr string) config.RedisConfig {
	return config.RedisConfig{URL: url, Address: addr}
}

func TestBuildKeySkipsEmptyParts(t *testing.T) {
	c := &Client{}
	if got := c.IdempotencyKey("", "abc"); got != "bd:idempotency:abc" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.IdempotencyKey("scope", "abc"); got != "bd:idempotency:scope:abc" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.CounterKey("reservations"); got != "bd:counter:reservations" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(configRedis("", "")); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
	opts, err := optionsFromConfig(configRedis("redis://localhost:6379/2", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 {
		t.Fatalf("expected db 2 from url, got %d", opts.DB)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	c := &Client{}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}
