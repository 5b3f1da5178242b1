// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package settings

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

// testClient returns a Valkey client for tests, skipping when no server is
// reachable.
func testClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func TestStore_GetSet(t *testing.T) {
	s := NewStore(testClient(t))
	ctx := context.Background()

	if val, err := s.Get(ctx, KeyModelBody); err != nil || val != "" {
		t.Errorf("unset key: val=%q err=%v", val, err)
	}

	if err := s.Set(ctx, KeyModelBody, "openrouter/auto"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, err := s.Get(ctx, KeyModelBody)
	if err != nil || val != "openrouter/auto" {
		t.Errorf("Get after Set: val=%q err=%v", val, err)
	}
}

func TestStore_SeedDoesNotClobber(t *testing.T) {
	s := NewStore(testClient(t))
	ctx := context.Background()

	if err := s.Set(ctx, KeyConverterURL, "http://edited:4000"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err := s.Seed(ctx, map[string]string{
		KeyConverterURL: "http://localhost:3001",
		KeyModelOutline: "openrouter/auto",
		KeyLeonardoKey:  "", // empty values are never written
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if val, _ := s.Get(ctx, KeyConverterURL); val != "http://edited:4000" {
		t.Errorf("seed clobbered edited value: %q", val)
	}
	if val, _ := s.Get(ctx, KeyModelOutline); val != "openrouter/auto" {
		t.Errorf("seed did not fill unset key: %q", val)
	}
	if val, _ := s.Get(ctx, KeyLeonardoKey); val != "" {
		t.Errorf("empty seed value was written: %q", val)
	}
}

func TestStore_All(t *testing.T) {
	s := NewStore(testClient(t))
	ctx := context.Background()

	if err := s.Set(ctx, KeyImageProvider, "stability"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != len(Keys()) {
		t.Errorf("All: got %d keys, want %d", len(all), len(Keys()))
	}
	if all[KeyImageProvider] != "stability" {
		t.Errorf("All missing set value: %q", all[KeyImageProvider])
	}
}

func TestIsSecret(t *testing.T) {
	if !IsSecret(KeyOpenRouterKey) || !IsSecret(KeyWPAppPassword) {
		t.Error("credential keys not marked secret")
	}
	if IsSecret(KeyModelBody) || IsSecret(KeyWPSiteURL) {
		t.Error("non-credential keys marked secret")
	}
}
