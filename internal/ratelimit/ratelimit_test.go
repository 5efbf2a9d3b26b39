package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRPM(t *testing.T) {
	tests := []struct {
		name       string
		rpm        int
		burst      int
		wantCap    int
		wantRefill float64
	}{
		{"explicit burst", 60, 5, 5, 1.0},
		{"derived burst", 600, 0, 60, 10.0},
		{"derived burst floors at one", 6, 0, 1, 0.1},
		{"tiny quota", 1, 0, 1, 1.0 / 60.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := FromRPM(tt.rpm, tt.burst)
			assert.Equal(t, tt.wantCap, b.Capacity)
			assert.InDelta(t, tt.wantRefill, b.RefillPerSecond, 1e-9)
		})
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name    string
		budgets map[string]Budget
		wantErr bool
	}{
		{"valid", map[string]Budget{"a": {Capacity: 5, RefillPerSecond: 1}}, false},
		{"zero refill", map[string]Budget{"a": {Capacity: 5, RefillPerSecond: 0}}, true},
		{"negative refill", map[string]Budget{"a": {Capacity: 5, RefillPerSecond: -1}}, true},
		{"zero capacity", map[string]Budget{"a": {Capacity: 0, RefillPerSecond: 1}}, true},
		{"empty", map[string]Budget{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.budgets)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAcquireUnknownProvider(t *testing.T) {
	r, err := NewRegistry(map[string]Budget{"a": {Capacity: 1, RefillPerSecond: 1}})
	require.NoError(t, err)

	err = r.Acquire(context.Background(), "nope")
	assert.Error(t, err)
	assert.Equal(t, float64(-1), r.Tokens("nope"))
}

func TestAcquireDrainsCapacityThenBlocks(t *testing.T) {
	// 2 tokens capacity, 10 tokens/sec refill: two immediate acquires, then
	// the third waits roughly one refill interval.
	r, err := NewRegistry(map[string]Budget{"a": {Capacity: 2, RefillPerSecond: 10}})
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now()
	require.NoError(t, r.Acquire(ctx, "a"))
	require.NoError(t, r.Acquire(ctx, "a"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	start = time.Now()
	require.NoError(t, r.Acquire(ctx, "a"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	r, err := NewRegistry(map[string]Budget{"a": {Capacity: 1, RefillPerSecond: 0.001}})
	require.NoError(t, err)

	require.NoError(t, r.Acquire(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = r.Acquire(ctx, "a")
	assert.Error(t, err)
}

func TestProvidersIsolated(t *testing.T) {
	r, err := NewRegistry(map[string]Budget{
		"slow": {Capacity: 1, RefillPerSecond: 0.001},
		"fast": {Capacity: 10, RefillPerSecond: 100},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Acquire(ctx, "slow"))

	// Draining slow must not affect fast.
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Acquire(ctx, "fast"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTokensNeverExceedCapacityUnderConcurrency(t *testing.T) {
	r, err := NewRegistry(map[string]Budget{"a": {Capacity: 5, RefillPerSecond: 50}})
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Acquire(ctx, "a")
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			tokens := r.Tokens("a")
			assert.LessOrEqual(t, tokens, 5.0)
			return
		default:
			tokens := r.Tokens("a")
			assert.LessOrEqual(t, tokens, 5.0)
			time.Sleep(5 * time.Millisecond)
		}
	}
}
