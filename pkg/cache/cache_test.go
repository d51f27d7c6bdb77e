// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	t.Parallel()
	c := New[string]()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, 1, c.Size())

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()
	c := New[int](WithExpiry[int](20 * time.Millisecond))
	defer c.Stop()

	c.Set("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entries are not returned")
}

func TestCacheMaxSizeEviction(t *testing.T) {
	t.Parallel()
	c := New[int](WithMaxSize[int](2))

	c.Set("old", 1)
	time.Sleep(time.Millisecond)
	c.Set("mid", 2)
	time.Sleep(time.Millisecond)

	// Touch "old" so "mid" becomes the eviction candidate.
	_, ok := c.Get("old")
	require.True(t, ok)

	c.Set("new", 3)
	assert.Equal(t, 2, c.Size())

	_, ok = c.Get("mid")
	assert.False(t, ok, "least recently accessed entry is evicted")
	_, ok = c.Get("old")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestCacheGetOrLoad(t *testing.T) {
	t.Parallel()

	t.Run("loads on miss and caches", func(t *testing.T) {
		t.Parallel()
		loads := 0
		c := New[string](WithLoadFunc[string](func(_ context.Context, key string) (string, error) {
			loads++
			return "loaded:" + key, nil
		}))

		v, err := c.GetOrLoad(context.Background(), "k")
		require.NoError(t, err)
		assert.Equal(t, "loaded:k", v)

		v, err = c.GetOrLoad(context.Background(), "k")
		require.NoError(t, err)
		assert.Equal(t, "loaded:k", v)
		assert.Equal(t, 1, loads, "second read comes from the cache")
	})

	t.Run("load errors are not cached", func(t *testing.T) {
		t.Parallel()
		loadErr := errors.New("store unavailable")
		c := New[string](WithLoadFunc[string](func(_ context.Context, _ string) (string, error) {
			return "", loadErr
		}))

		_, err := c.GetOrLoad(context.Background(), "k")
		assert.ErrorIs(t, err, loadErr)
		assert.Equal(t, 0, c.Size())
	})

	t.Run("no load func returns zero value", func(t *testing.T) {
		t.Parallel()
		c := New[string]()
		v, err := c.GetOrLoad(context.Background(), "k")
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}

func TestCacheCleanupRemovesExpired(t *testing.T) {
	t.Parallel()
	c := New[int](WithExpiry[int](15 * time.Millisecond))
	defer c.Stop()

	c.Set("k", 1)
	require.Equal(t, 1, c.Size())

	assert.Eventually(t, func() bool { return c.Size() == 0 },
		500*time.Millisecond, 10*time.Millisecond,
		"background cleanup drops expired entries")
}
