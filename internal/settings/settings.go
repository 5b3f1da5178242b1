// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package settings stores the authoring tool's runtime settings (API keys,
// model selections, WordPress connection) in Valkey so they survive
// restarts and are editable from the UI. Environment values seed missing
// keys on startup.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces setting keys in Valkey.
const keyPrefix = "settings:"

// Known setting names.
const (
	KeyOpenRouterKey = "openrouter_api_key"
	KeyModelOutline  = "model_outline"
	KeyModelBody     = "model_body"
	KeyImageProvider = "image_provider"
	KeyStabilityKey  = "stability_api_key"
	KeyLeonardoKey   = "leonardo_api_key"
	KeyConverterURL  = "converter_url"
	KeyWPSiteURL     = "wp_site_url"
	KeyWPUsername    = "wp_username"
	KeyWPAppPassword = "wp_app_password"
	KeyWPConnected   = "wp_connected"
)

// Keys lists all known setting names in display order.
func Keys() []string {
	return []string{
		KeyOpenRouterKey, KeyModelOutline, KeyModelBody,
		KeyImageProvider, KeyStabilityKey, KeyLeonardoKey,
		KeyConverterURL,
		KeyWPSiteURL, KeyWPUsername, KeyWPAppPassword, KeyWPConnected,
	}
}

// secretKeys never leave the server unmasked.
var secretKeys = map[string]bool{
	KeyOpenRouterKey: true,
	KeyStabilityKey:  true,
	KeyLeonardoKey:   true,
	KeyWPAppPassword: true,
}

// IsSecret reports whether a setting holds a credential.
func IsSecret(key string) bool { return secretKeys[key] }

// Connect creates a Valkey client and verifies the connection with a ping.
func Connect(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", addr)
	return client, nil
}

// Store is the Valkey-backed settings store.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the stored value for a key, or "" when unset.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("settings get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value. Settings have no TTL.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("settings set %s: %w", key, err)
	}
	return nil
}

// All returns every known setting. Unset keys come back as "".
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(Keys()))
	for _, key := range Keys() {
		val, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

// Seed writes each value only when the key is currently unset, so values
// edited through the UI are never clobbered by environment defaults.
func (s *Store) Seed(ctx context.Context, values map[string]string) error {
	for key, val := range values {
		if val == "" {
			continue
		}
		ok, err := s.client.SetNX(ctx, keyPrefix+key, val, 0).Result()
		if err != nil {
			return fmt.Errorf("settings seed %s: %w", key, err)
		}
		if ok {
			slog.Debug("settings seeded from environment", "key", key)
		}
	}
	return nil
}
