package parallel

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	// earlier items sleep longer so they complete last
	delays := map[string]time.Duration{
		"a": 40 * time.Millisecond,
		"b": 30 * time.Millisecond,
		"c": 20 * time.Millisecond,
		"d": 10 * time.Millisecond,
		"e": 0,
	}

	got, err := Map(context.Background(), items, 2, func(_ context.Context, s string) (string, error) {
		time.Sleep(delays[s])
		return strings.ToUpper(s), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, got)
}

func TestMap_BoundsInFlight(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	var inFlight, peak atomic.Int64
	got, err := Map(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return n * 2, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i*2, v)
	}
	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.Equal(t, int64(0), inFlight.Load())
}

func TestMap_Empty(t *testing.T) {
	got, err := Map(context.Background(), []int(nil), 4, func(_ context.Context, n int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMap_ZeroLimitRunsSerially(t *testing.T) {
	var inFlight, peak atomic.Int64
	_, err := Map(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, n int) (int, error) {
		if c := inFlight.Add(1); c > peak.Load() {
			peak.Store(c)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), peak.Load())
}

func TestMap_FailFast(t *testing.T) {
	boom := errors.New("boom")
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var calls, running atomic.Int64
	got, err := Map(context.Background(), items, 2, func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		running.Add(1)
		defer running.Add(-1)
		if n == 1 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		return n, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
	assert.Less(t, calls.Load(), int64(len(items)))
	// nothing keeps running after Map returns
	assert.Equal(t, int64(0), running.Load())
}

func TestMap_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
