// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   *Range
		ok     bool
	}{
		{"bounded", "bytes=0-499", &Range{Start: 0, End: 499}, true},
		{"open ended", "bytes=500-", &Range{Start: 500, End: -1}, true},
		{"suffix", "bytes=-200", &Range{Start: 200, End: -1, Suffix: true}, true},
		{"missing unit", "0-499", nil, false},
		{"multi range", "bytes=0-1,5-9", nil, false},
		{"inverted", "bytes=500-100", nil, false},
		{"not numbers", "bytes=a-b", nil, false},
		{"bare dash", "bytes=-", nil, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseRange(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeResolve(t *testing.T) {
	t.Parallel()

	const size = 1000

	t.Run("bounded range", func(t *testing.T) {
		t.Parallel()
		offset, length, err := (&Range{Start: 0, End: 499}).Resolve(size)
		require.NoError(t, err)
		assert.Equal(t, int64(0), offset)
		assert.Equal(t, int64(500), length)
	})

	t.Run("end clamped to object size", func(t *testing.T) {
		t.Parallel()
		offset, length, err := (&Range{Start: 900, End: 5000}).Resolve(size)
		require.NoError(t, err)
		assert.Equal(t, int64(900), offset)
		assert.Equal(t, int64(100), length)
	})

	t.Run("open ended reads to end", func(t *testing.T) {
		t.Parallel()
		offset, length, err := (&Range{Start: 750, End: -1}).Resolve(size)
		require.NoError(t, err)
		assert.Equal(t, int64(750), offset)
		assert.Equal(t, int64(250), length)
	})

	t.Run("suffix range", func(t *testing.T) {
		t.Parallel()
		offset, length, err := (&Range{Start: 200, End: -1, Suffix: true}).Resolve(size)
		require.NoError(t, err)
		assert.Equal(t, int64(800), offset)
		assert.Equal(t, int64(200), length)
	})

	t.Run("suffix longer than object serves whole object", func(t *testing.T) {
		t.Parallel()
		offset, length, err := (&Range{Start: 5000, End: -1, Suffix: true}).Resolve(size)
		require.NoError(t, err)
		assert.Equal(t, int64(0), offset)
		assert.Equal(t, int64(size), length)
	})

	t.Run("start beyond size is unsatisfiable", func(t *testing.T) {
		t.Parallel()
		_, _, err := (&Range{Start: size, End: -1}).Resolve(size)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("zero suffix is unsatisfiable", func(t *testing.T) {
		t.Parallel()
		_, _, err := (&Range{Start: 0, End: -1, Suffix: true}).Resolve(size)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}
