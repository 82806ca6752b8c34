package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnWriteToWatchedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.ember.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	events := make(chan Event, 4)
	w := New(path, func(e Event) { events <- e }, WithDebounce(20*time.Millisecond))
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"v":1}`), 0644))

	select {
	case e := <-events:
		assert.Equal(t, "main.ember.json", filepath.Base(e.Path))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}

func TestWatcherIgnoresOtherFilesInDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.ember.json")
	other := filepath.Join(dir, "other.ember.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("{}"), 0644))

	events := make(chan Event, 4)
	w := New(path, func(e Event) { events <- e }, WithDebounce(20*time.Millisecond))
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(other, []byte(`{"v":2}`), 0644))

	select {
	case e := <-events:
		t.Fatalf("unexpected event for unrelated file: %+v", e)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDebouncesBurstOfWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.ember.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	var fires int
	done := make(chan struct{}, 8)
	w := New(path, func(e Event) {
		fires++
		done <- struct{}{}
	}, WithDebounce(100*time.Millisecond))
	require.NoError(t, w.Start())
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"v":1}`), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced event")
	}
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, fires)
}
