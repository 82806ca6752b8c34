package cache

import (
	"testing"
	"time"

	"github.com/emberscript/emberc/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bc(n int) *ir.Bytecode {
	return &ir.Bytecode{Main: []ir.Ref{ir.Ref(n)}}
}

func TestSetThenGetHits(t *testing.T) {
	c := NewLRUCache(WithCapacity(4))
	defer c.Close()

	c.Set("a", bc(1), 0)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []ir.Ref{ir.Ref(1)}, got.Main)
	assert.EqualValues(t, 1, c.Stats().Hits)
}

func TestGetOnMissingKeyIsAMiss(t *testing.T) {
	c := NewLRUCache()
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewLRUCache(WithCapacity(2), WithOnEvict(func(key string, _ *ir.Bytecode) {
		evicted = append(evicted, key)
	}))
	defer c.Close()

	c.Set("a", bc(1), 0)
	c.Set("b", bc(2), 0)
	// touch "a" so "b" becomes the least recently used
	c.Get("a")
	c.Set("c", bc(3), 0)

	require.Equal(t, []string{"b"}, evicted)
	_, aStillPresent := c.Get("a")
	assert.True(t, aStillPresent)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestExpiredEntryIsTreatedAsAMiss(t *testing.T) {
	c := NewLRUCache()
	defer c.Close()

	c.Set("a", bc(1), time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := NewLRUCache()
	defer c.Close()

	c.Set("a", bc(1), 0)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestClearEmptiesCacheAndFiresOnEvict(t *testing.T) {
	var evicted []string
	c := NewLRUCache(WithOnEvict(func(key string, _ *ir.Bytecode) {
		evicted = append(evicted, key)
	}))
	defer c.Close()

	c.Set("a", bc(1), 0)
	c.Set("b", bc(2), 0)
	c.Clear()

	assert.ElementsMatch(t, []string{"a", "b"}, evicted)
	assert.EqualValues(t, 0, c.Stats().EntryCount)
}

func TestSourceKeyIsStableAndFingerprintSensitive(t *testing.T) {
	k1 := SourceKey([]byte("let x = 1"), "max_params=8")
	k2 := SourceKey([]byte("let x = 1"), "max_params=8")
	k3 := SourceKey([]byte("let x = 1"), "max_params=16")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestSetOverwritesExistingKeyWithoutGrowingEntryCount(t *testing.T) {
	c := NewLRUCache(WithCapacity(4))
	defer c.Close()

	c.Set("a", bc(1), 0)
	c.Set("a", bc(2), 0)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []ir.Ref{ir.Ref(2)}, got.Main)
	assert.EqualValues(t, 1, c.Stats().EntryCount)
}
