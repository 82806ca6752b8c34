package artifactstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutThenGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := Artifact{Key: "abc", UnitName: "main.ember", Bytecode: []byte{1, 2, 3}, SourceHash: "h1", CompiledAt: time.Unix(0, 0)}
	require.NoError(t, s.Put(ctx, a))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestMemoryStoreGetMissingReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteRemovesEntry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Artifact{Key: "abc"}))
	require.NoError(t, s.Delete(ctx, "abc"))

	_, err := s.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListFiltersByPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Artifact{Key: "main:1"}))
	require.NoError(t, s.Put(ctx, Artifact{Key: "main:2"}))
	require.NoError(t, s.Put(ctx, Artifact{Key: "util:1"}))

	keys, err := s.List(ctx, "main:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main:1", "main:2"}, keys)
}

func TestOpenDefaultsToMemoryStore(t *testing.T) {
	s, err := Open(context.Background(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}
