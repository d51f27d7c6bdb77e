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

func testIdentity(name, accessKey string) *Identity {
	return &Identity{
		Name: name,
		Credentials: []*Credential{{
			AccessKey: accessKey,
			SecretKey: "secret-" + accessKey,
			Status:    StatusActive,
			CreatedAt: time.Now().UTC(),
		}},
	}
}

// forEachStore runs the conformance subtests against both store
// implementations.
func forEachStore(t *testing.T, fn func(t *testing.T, store CredentialStore)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, NewMemoryStore())
	})
	t.Run("file", func(t *testing.T) {
		t.Parallel()
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		fn(t, store)
	})
}

func TestStoreUserLifecycle(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, store CredentialStore) {
		ctx := context.Background()

		require.NoError(t, store.CreateUser(ctx, testIdentity("alice", "AKALICE")))
		assert.ErrorIs(t, store.CreateUser(ctx, testIdentity("alice", "AKOTHER")), ErrUserAlreadyExists)

		identity, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Name)
		require.Len(t, identity.Credentials, 1)
		assert.Equal(t, "AKALICE", identity.Credentials[0].AccessKey)

		_, err = store.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, ErrUserNotFound)

		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, users)

		require.NoError(t, store.DeleteUser(ctx, "alice"))
		_, err = store.GetUser(ctx, "alice")
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, store.DeleteUser(ctx, "alice"), ErrUserNotFound)
	})
}

func TestStoreAccessKeyLookup(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, store CredentialStore) {
		ctx := context.Background()

		require.NoError(t, store.CreateUser(ctx, testIdentity("bob", "AKBOB")))

		identity, cred, err := store.GetUserByAccessKey(ctx, "AKBOB")
		require.NoError(t, err)
		assert.Equal(t, "bob", identity.Name)
		assert.Equal(t, "secret-AKBOB", cred.SecretKey)

		_, _, err = store.GetUserByAccessKey(ctx, "AKUNKNOWN")
		assert.ErrorIs(t, err, ErrAccessKeyNotFound)

		// Deleting the user drops the access key index entry.
		require.NoError(t, store.DeleteUser(ctx, "bob"))
		_, _, err = store.GetUserByAccessKey(ctx, "AKBOB")
		assert.ErrorIs(t, err, ErrAccessKeyNotFound)
	})
}

func TestStoreAccessKeyManagement(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, store CredentialStore) {
		ctx := context.Background()

		require.NoError(t, store.CreateUser(ctx, testIdentity("carol", "AKCAROL1")))

		second := &Credential{
			AccessKey: "AKCAROL2",
			SecretKey: "secret-AKCAROL2",
			Status:    StatusActive,
		}
		require.NoError(t, store.CreateAccessKey(ctx, "carol", second))
		assert.ErrorIs(t, store.CreateAccessKey(ctx, "nobody", second), ErrUserNotFound)

		identity, cred, err := store.GetUserByAccessKey(ctx, "AKCAROL2")
		require.NoError(t, err)
		assert.Equal(t, "carol", identity.Name)
		assert.Equal(t, "AKCAROL2", cred.AccessKey)

		require.NoError(t, store.DeleteAccessKey(ctx, "carol", "AKCAROL1"))
		_, _, err = store.GetUserByAccessKey(ctx, "AKCAROL1")
		assert.ErrorIs(t, err, ErrAccessKeyNotFound)

		assert.ErrorIs(t, store.DeleteAccessKey(ctx, "carol", "AKCAROL1"), ErrAccessKeyNotFound)

		identity, err = store.GetUser(ctx, "carol")
		require.NoError(t, err)
		require.Len(t, identity.Credentials, 1)
		assert.Equal(t, "AKCAROL2", identity.Credentials[0].AccessKey)
	})
}

func TestStoreUpdateUserReindexes(t *testing.T) {
	t.Parallel()
	forEachStore(t, func(t *testing.T, store CredentialStore) {
		ctx := context.Background()

		require.NoError(t, store.CreateUser(ctx, testIdentity("dave", "AKOLD")))

		updated := testIdentity("dave", "AKNEW")
		require.NoError(t, store.UpdateUser(ctx, updated))

		_, _, err := store.GetUserByAccessKey(ctx, "AKOLD")
		assert.ErrorIs(t, err, ErrAccessKeyNotFound)

		identity, _, err := store.GetUserByAccessKey(ctx, "AKNEW")
		require.NoError(t, err)
		assert.Equal(t, "dave", identity.Name)

		assert.ErrorIs(t, store.UpdateUser(ctx, testIdentity("nobody", "AKX")), ErrUserNotFound)
	})
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, testIdentity("erin", "AKERIN")))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	identity, cred, err := reopened.GetUserByAccessKey(ctx, "AKERIN")
	require.NoError(t, err)
	assert.Equal(t, "erin", identity.Name)
	assert.Equal(t, "secret-AKERIN", cred.SecretKey)

	users, err := reopened.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"erin"}, users)
}
