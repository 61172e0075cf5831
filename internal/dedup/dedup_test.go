package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Claim(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)
	ctx := context.Background()

	first, err := s.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, s.Forget(ctx, "evt_1"))
	retry, err := s.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, retry)
}

func TestMemoryStore_Expires(t *testing.T) {
	s := NewMemoryStore(20 * time.Millisecond)
	ctx := context.Background()

	_, err := s.Claim(ctx, "evt_2")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	ok, err := s.Claim(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_ConcurrentClaim(t *testing.T) {
	s := NewMemoryStore(DefaultTTL)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Claim(context.Background(), "evt_3"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
