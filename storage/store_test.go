package storage

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *TTLStore[string] {
	t.Helper()
	return NewTTLStore[string](slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStoreSetGetDelete(t *testing.T) {
	store := newTestStore(t)

	store.Set("a", "alpha", 0)
	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", got)
	assert.Equal(t, 1, store.Len())

	assert.True(t, store.Delete("a"))
	assert.False(t, store.Delete("a"))
	_, ok = store.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestStoreExpires(t *testing.T) {
	store := newTestStore(t)

	store.Set("a", "alpha", 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := store.Get("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, store.Len())
}

func TestStoreResetDefeatsOldTimer(t *testing.T) {
	store := newTestStore(t)

	store.Set("a", "short", 10*time.Millisecond)
	store.Set("a", "long", time.Minute)

	time.Sleep(50 * time.Millisecond)
	got, ok := store.Get("a")
	require.True(t, ok, "the first timer must not evict the replacement entry")
	assert.Equal(t, "long", got)
}

func TestStoreRangeInsertionOrder(t *testing.T) {
	store := newTestStore(t)

	store.Set("c", "3", 0)
	store.Set("a", "1", 0)
	store.Set("b", "2", 0)

	var keys []string
	store.Range(func(key, _ string) bool {
		keys = append(keys, key)
		return true
	})
	assert.Equal(t, []string{"c", "a", "b"}, keys)

	keys = nil
	store.Range(func(key, _ string) bool {
		keys = append(keys, key)
		return false
	})
	assert.Equal(t, []string{"c"}, keys)
}

func TestStoreRangeAllowsMutation(t *testing.T) {
	store := newTestStore(t)

	store.Set("a", "1", 0)
	store.Set("b", "2", 0)

	store.Range(func(key, _ string) bool {
		store.Delete(key)
		return true
	})
	assert.Equal(t, 0, store.Len())
}
