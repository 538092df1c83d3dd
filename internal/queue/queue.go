package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"tempus/internal/logging"
	"tempus/internal/metrics"
)

const (
	readyKey   = "tempus:queue:ready"
	delayedKey = "tempus:queue:delayed"
)

// Task is one unit of queued work. Payload is handler-defined JSON.
type Task struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one task. A returned error is logged; retry policy is the
// handler's own business via Requeue.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Queue is a redis-backed task queue: a ready list consumed by workers plus a
// delayed sorted set promoted by the dispatcher tick.
type Queue struct {
	rdb      *redis.Client
	handlers map[string]Handler
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb, handlers: make(map[string]Handler)}
}

// Register binds a handler to a task name. Must be called before Run.
func (q *Queue) Register(name string, h Handler) {
	q.handlers[name] = h
}

// Enqueue schedules a task. With delay zero it is immediately runnable;
// otherwise it parks in the delayed set until promoted.
func (q *Queue) Enqueue(ctx context.Context, name string, payload any, delay time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	t := Task{ID: uuid.NewString(), Name: name, Payload: raw}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if delay <= 0 {
		return q.rdb.LPush(ctx, readyKey, b).Err()
	}
	return q.rdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(time.Now().Add(delay).Unix()),
		Member: b,
	}).Err()
}

// PromoteDue moves delayed tasks whose time has come onto the ready list.
// The ZRem check makes each member promote exactly once across dispatchers.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	members, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, m := range members {
		removed, err := q.rdb.ZRem(ctx, delayedKey, m).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, readyKey, m).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// Depth returns the number of ready tasks.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, readyKey).Result()
}

// Run consumes the ready list with n workers until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, workers int) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error { return q.worker(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (q *Queue) worker(ctx context.Context) error {
	for {
		res, err := q.rdb.BRPop(ctx, 2*time.Second, readyKey).Result()
		if err == redis.Nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.L().Errorw("queue pop", "err", err)
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		q.dispatch(ctx, []byte(res[1]))
		if depth, err := q.Depth(ctx); err == nil {
			metrics.QueueDepth.Set(float64(depth))
		}
	}
}

func (q *Queue) dispatch(ctx context.Context, raw []byte) {
	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		logging.L().Errorw("queue decode", "err", err)
		return
	}
	h, ok := q.handlers[t.Name]
	if !ok {
		logging.L().Warnw("queue unknown task", "task", t.Name)
		return
	}
	start := time.Now()
	if err := h(ctx, t.Payload); err != nil {
		logging.L().Errorw("task failed", "task", t.Name, "id", t.ID, "err", err)
	}
	metrics.ObserveTask(t.Name, start)
}
