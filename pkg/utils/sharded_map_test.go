package utils

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedMapBasicOperations(t *testing.T) {
	t.Parallel()
	sm := NewShardedMap[int]()

	_, ok := sm.Load("missing")
	assert.False(t, ok)

	sm.Store("a", 1)
	v, ok := sm.Load("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	sm.Store("a", 2)
	v, _ = sm.Load("a")
	assert.Equal(t, 2, v)

	sm.Delete("a")
	_, ok = sm.Load("a")
	assert.False(t, ok)

	// Deleting a missing key is a no-op.
	sm.Delete("a")
}

func TestShardedMapLoadOrStore(t *testing.T) {
	t.Parallel()
	sm := NewShardedMap[string]()

	v, loaded := sm.LoadOrStore("k", "first")
	assert.False(t, loaded)
	assert.Equal(t, "first", v)

	v, loaded = sm.LoadOrStore("k", "second")
	assert.True(t, loaded)
	assert.Equal(t, "first", v)
}

func TestShardedMapLenAndKeys(t *testing.T) {
	t.Parallel()
	sm := NewShardedMap[int]()

	for i := 0; i < 100; i++ {
		sm.Store(fmt.Sprintf("key-%d", i), i)
	}
	assert.Equal(t, 100, sm.Len())
	assert.Len(t, sm.Keys(), 100)
}

func TestShardedMapRange(t *testing.T) {
	t.Parallel()
	sm := NewShardedMap[int]()
	sm.Store("a", 1)
	sm.Store("b", 2)
	sm.Store("c", 3)

	sum := 0
	sm.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	assert.Equal(t, 6, sum)

	// Early termination stops after the first entry.
	visited := 0
	sm.Range(func(_ string, _ int) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestShardedMapDeleteIf(t *testing.T) {
	t.Parallel()
	sm := NewShardedMap[int]()
	for i := 0; i < 10; i++ {
		sm.Store(fmt.Sprintf("key-%d", i), i)
	}

	deleted := sm.DeleteIf(func(_ string, v int) bool { return v%2 == 0 })
	assert.Equal(t, 5, deleted)
	assert.Equal(t, 5, sm.Len())

	_, ok := sm.Load("key-0")
	assert.False(t, ok)
	_, ok = sm.Load("key-1")
	assert.True(t, ok)
}

func TestShardedMapConcurrentAccess(t *testing.T) {
	t.Parallel()
	sm := NewShardedMap[int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i)
				sm.Store(key, i)
				v, ok := sm.Load(key)
				assert.True(t, ok)
				assert.Equal(t, i, v)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 800, sm.Len())
}
