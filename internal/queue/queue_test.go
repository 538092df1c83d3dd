package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestEnqueueImmediateIsReady(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "demo", map[string]string{"k": "v"}, 0))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestDelayedTaskPromotesAfterDue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "demo", nil, 5*time.Minute))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)

	moved, err := q.PromoteDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, moved)

	moved, err = q.PromoteDue(ctx, time.Now().Add(6*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestPromoteDueMovesEachTaskOnce(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "demo", nil, time.Second))
	due := time.Now().Add(time.Minute)

	moved, err := q.PromoteDue(ctx, due)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	moved, err = q.PromoteDue(ctx, due)
	require.NoError(t, err)
	assert.Equal(t, 0, moved)
}

func TestWorkersDispatchToHandler(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	q.Register("demo", func(ctx context.Context, payload json.RawMessage) error {
		var p map[string]string
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, p["id"])
		if len(got) == 2 {
			close(done)
		}
		mu.Unlock()
		return nil
	})

	require.NoError(t, q.Enqueue(ctx, "demo", map[string]string{"id": "a"}, 0))
	require.NoError(t, q.Enqueue(ctx, "demo", map[string]string{"id": "b"}, 0))

	go func() { _ = q.Run(ctx, 2) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handlers never ran")
	}
	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b"}, got)
	mu.Unlock()
}

func TestUnknownTaskIsDropped(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "nobody-registered", nil, 0))
	res, err := q.rdb.BRPop(ctx, time.Second, readyKey).Result()
	require.NoError(t, err)
	q.dispatch(ctx, []byte(res[1]))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}
