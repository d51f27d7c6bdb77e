// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"time"

	"github.com/phumiphatauk/tinystore/pkg/cache"
)

const (
	lookupCacheSize = 10000
	lookupCacheTTL  = 5 * time.Minute
)

type cacheEntry struct {
	identity   *Identity
	credential *Credential
}

// Manager fronts a CredentialStore with a TTL lookup cache keyed by
// access key. Negative results are not cached.
type Manager struct {
	store CredentialStore
	cache *cache.Cache[*cacheEntry]
}

// NewManager creates a manager over the given store.
func NewManager(store CredentialStore) *Manager {
	return &Manager{
		store: store,
		cache: cache.New[*cacheEntry](
			cache.WithMaxSize[*cacheEntry](lookupCacheSize),
			cache.WithExpiry[*cacheEntry](lookupCacheTTL),
		),
	}
}

// LookupByAccessKey resolves an access key to its identity and credential.
// Disabled identities and inactive credentials resolve to not found.
func (m *Manager) LookupByAccessKey(ctx context.Context, accessKey string) (*Identity, *Credential, bool) {
	if entry, ok := m.cache.Get(accessKey); ok {
		return entry.identity, entry.credential, true
	}

	identity, cred, err := m.store.GetUserByAccessKey(ctx, accessKey)
	if err != nil {
		return nil, nil, false
	}
	if identity.Disabled || !cred.IsActive() {
		return nil, nil, false
	}

	m.cache.Set(accessKey, &cacheEntry{identity: identity, credential: cred})
	return identity, cred, true
}

// Invalidate drops a cached access key, forcing the next lookup to hit
// the store.
func (m *Manager) Invalidate(accessKey string) {
	m.cache.Delete(accessKey)
}

// Store returns the underlying credential store.
func (m *Manager) Store() CredentialStore {
	return m.store
}

// Close releases the manager's cache resources.
func (m *Manager) Close() {
	m.cache.Stop()
}
