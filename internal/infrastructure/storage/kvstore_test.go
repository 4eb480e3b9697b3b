package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyDigest/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// runKVStoreContract exercises the behaviour every KVStore adapter shares.
func runKVStoreContract(t *testing.T, newStore func(t *testing.T, clock *fakeClock) ports.KVStore) {
	t.Run("missing key", func(t *testing.T) {
		kv := newStore(t, newFakeClock())
		_, err := kv.Get(context.Background(), "nope")
		require.ErrorIs(t, err, ports.ErrKeyNotFound)
	})

	t.Run("put overwrites", func(t *testing.T) {
		ctx := context.Background()
		kv := newStore(t, newFakeClock())

		require.NoError(t, kv.Put(ctx, "k", []byte("v1"), 0))
		require.NoError(t, kv.Put(ctx, "k", []byte("v2"), 0))

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("put if absent keeps first value", func(t *testing.T) {
		ctx := context.Background()
		kv := newStore(t, newFakeClock())

		created, err := kv.PutIfAbsent(ctx, "k", []byte("first"), 0)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = kv.PutIfAbsent(ctx, "k", []byte("second"), 0)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "first", string(got))
	})

	t.Run("ttl expiry", func(t *testing.T) {
		ctx := context.Background()
		clock := newFakeClock()
		kv := newStore(t, clock)

		require.NoError(t, kv.Put(ctx, "short", []byte("x"), time.Hour))
		require.NoError(t, kv.Put(ctx, "forever", []byte("y"), 0))

		keys, err := kv.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"forever", "short"}, keys)

		clock.Advance(2 * time.Hour)

		_, err = kv.Get(ctx, "short")
		require.ErrorIs(t, err, ports.ErrKeyNotFound)

		keys, err = kv.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"forever"}, keys)

		created, err := kv.PutIfAbsent(ctx, "short", []byte("again"), time.Hour)
		require.NoError(t, err)
		assert.True(t, created, "expired entries count as absent")
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		kv := newStore(t, newFakeClock())

		require.NoError(t, kv.Put(ctx, "k", []byte("v"), 0))
		require.NoError(t, kv.Delete(ctx, "k"))
		require.NoError(t, kv.Delete(ctx, "k"))

		_, err := kv.Get(ctx, "k")
		require.ErrorIs(t, err, ports.ErrKeyNotFound)
	})

	t.Run("concurrent put if absent", func(t *testing.T) {
		ctx := context.Background()
		kv := newStore(t, newFakeClock())

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				created, err := kv.PutIfAbsent(ctx, "same", []byte(fmt.Sprintf("writer-%d", i)), 0)
				if err == nil && created {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})
}
