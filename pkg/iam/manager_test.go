// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, identities ...*Identity) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	for _, id := range identities {
		require.NoError(t, store.CreateUser(context.Background(), id))
	}
	m := NewManager(store)
	t.Cleanup(m.Close)
	return m, store
}

func TestManagerLookupByAccessKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t, testIdentity("alice", "AKALICE"))

	identity, cred, found := m.LookupByAccessKey(ctx, "AKALICE")
	require.True(t, found)
	assert.Equal(t, "alice", identity.Name)
	assert.Equal(t, "secret-AKALICE", cred.SecretKey)

	_, _, found = m.LookupByAccessKey(ctx, "AKUNKNOWN")
	assert.False(t, found)
}

func TestManagerCachesLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestManager(t, testIdentity("bob", "AKBOB"))

	_, _, found := m.LookupByAccessKey(ctx, "AKBOB")
	require.True(t, found)

	// The cached entry outlives deletion until invalidated.
	require.NoError(t, store.DeleteUser(ctx, "bob"))
	_, _, found = m.LookupByAccessKey(ctx, "AKBOB")
	assert.True(t, found)

	m.Invalidate("AKBOB")
	_, _, found = m.LookupByAccessKey(ctx, "AKBOB")
	assert.False(t, found)
}

func TestManagerNegativeResultsNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newTestManager(t)

	_, _, found := m.LookupByAccessKey(ctx, "AKLATE")
	require.False(t, found)

	require.NoError(t, store.CreateUser(ctx, testIdentity("late", "AKLATE")))
	_, _, found = m.LookupByAccessKey(ctx, "AKLATE")
	assert.True(t, found)
}

func TestManagerRejectsDisabledAndInactive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	disabled := testIdentity("ghost", "AKGHOST")
	disabled.Disabled = true

	inactive := testIdentity("retired", "AKRETIRED")
	inactive.Credentials[0].Status = StatusInactive

	past := time.Now().Add(-time.Hour)
	expired := testIdentity("expired", "AKEXPIRED")
	expired.Credentials[0].ExpiresAt = &past

	m, _ := newTestManager(t, disabled, inactive, expired)

	for _, accessKey := range []string{"AKGHOST", "AKRETIRED", "AKEXPIRED"} {
		_, _, found := m.LookupByAccessKey(ctx, accessKey)
		assert.False(t, found, accessKey)
	}
}

func TestManagerStoreAccessor(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	m := NewManager(store)
	defer m.Close()

	assert.Same(t, store, m.Store())
}
