// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imagegen generates blog images for the three article slots
// through pluggable text-to-image providers.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNoAPIKey means the selected provider has no key configured. It is
	// returned before any network I/O.
	ErrNoAPIKey = errors.New("imagegen: no API key configured")

	// ErrPollTimeout means an async generation job did not finish within
	// the polling ceiling.
	ErrPollTimeout = errors.New("imagegen: generation polling timed out")

	// ErrGenerationFailed means the provider reported the job as failed.
	ErrGenerationFailed = errors.New("imagegen: generation failed")

	// ErrNoImages means every slot failed; the article proceeds without
	// images only when the caller decides so.
	ErrNoImages = errors.New("imagegen: no images were generated")

	// ErrUnknownProvider is returned by Registry.Get for unregistered names.
	ErrUnknownProvider = errors.New("imagegen: unknown provider")
)

// Provider turns a text prompt into one image and returns it as a reference
// the article can embed directly, either a data URL or a remote URL.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
