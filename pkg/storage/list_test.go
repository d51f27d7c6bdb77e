// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPage(t *testing.T) {
	t.Parallel()

	// Callers pass sorted keys.
	sorted := []string{
		"a.txt",
		"photos/2023/feb.jpg",
		"photos/2023/jan.jpg",
		"photos/2024/mar.jpg",
		"photos/index.txt",
		"videos/clip.mp4",
		"zebra.txt",
	}

	t.Run("no delimiter returns plain page", func(t *testing.T) {
		t.Parallel()
		pageKeys, prefixes, truncated, next := ListPage(sorted, ListOptions{MaxKeys: 100})
		assert.Equal(t, sorted, pageKeys)
		assert.Empty(t, prefixes)
		assert.False(t, truncated)
		assert.Empty(t, next)
	})

	t.Run("prefix filters keys", func(t *testing.T) {
		t.Parallel()
		pageKeys, _, truncated, _ := ListPage(sorted, ListOptions{Prefix: "photos/", MaxKeys: 100})
		assert.Equal(t, []string{
			"photos/2023/feb.jpg",
			"photos/2023/jan.jpg",
			"photos/2024/mar.jpg",
			"photos/index.txt",
		}, pageKeys)
		assert.False(t, truncated)
	})

	t.Run("delimiter rolls up common prefixes", func(t *testing.T) {
		t.Parallel()
		pageKeys, prefixes, truncated, _ := ListPage(sorted, ListOptions{Delimiter: "/", MaxKeys: 100})
		assert.Equal(t, []string{"a.txt", "zebra.txt"}, pageKeys)
		assert.Equal(t, []string{"photos/", "videos/"}, prefixes)
		assert.False(t, truncated)
	})

	t.Run("prefix and delimiter", func(t *testing.T) {
		t.Parallel()
		pageKeys, prefixes, _, _ := ListPage(sorted, ListOptions{Prefix: "photos/", Delimiter: "/", MaxKeys: 100})
		assert.Equal(t, []string{"photos/index.txt"}, pageKeys)
		assert.Equal(t, []string{"photos/2023/", "photos/2024/"}, prefixes)
	})

	t.Run("pagination round trips without duplicates", func(t *testing.T) {
		t.Parallel()
		var all []string
		startAfter := ""
		pages := 0
		for {
			pageKeys, prefixes, truncated, next := ListPage(sorted, ListOptions{
				Delimiter:  "/",
				MaxKeys:    1,
				StartAfter: startAfter,
			})
			all = append(all, pageKeys...)
			all = append(all, prefixes...)
			pages++
			require.Less(t, pages, 20, "pagination did not terminate")
			if !truncated {
				break
			}
			require.NotEmpty(t, next)
			startAfter = next
		}
		assert.Equal(t, []string{"a.txt", "photos/", "videos/", "zebra.txt"}, all)
		assert.Equal(t, 4, pages)
	})

	t.Run("resume after common prefix skips its keys", func(t *testing.T) {
		t.Parallel()
		pageKeys, prefixes, truncated, _ := ListPage(sorted, ListOptions{
			Delimiter:  "/",
			MaxKeys:    100,
			StartAfter: "photos/",
		})
		assert.Equal(t, []string{"zebra.txt"}, pageKeys)
		assert.Equal(t, []string{"videos/"}, prefixes)
		assert.False(t, truncated)
	})

	t.Run("zero max keys yields empty untruncated page", func(t *testing.T) {
		t.Parallel()
		pageKeys, prefixes, truncated, next := ListPage(sorted, ListOptions{MaxKeys: 0})
		assert.Empty(t, pageKeys)
		assert.Empty(t, prefixes)
		assert.False(t, truncated)
		assert.Empty(t, next)
	})

	t.Run("truncation only when more items exist", func(t *testing.T) {
		t.Parallel()
		pageKeys, _, truncated, next := ListPage(sorted, ListOptions{
			MaxKeys:    len(sorted),
			StartAfter: "",
		})
		assert.Len(t, pageKeys, len(sorted))
		assert.False(t, truncated)
		assert.Empty(t, next)
	})
}

func TestContinuationToken(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		token := EncodeContinuationToken("photos/2023/")
		require.NotEmpty(t, token)
		got, err := DecodeContinuationToken(token)
		require.NoError(t, err)
		assert.Equal(t, "photos/2023/", got)
	})

	t.Run("empty token decodes to empty", func(t *testing.T) {
		t.Parallel()
		got, err := DecodeContinuationToken("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeContinuationToken("not!base64!!")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
