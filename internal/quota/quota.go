package quota

import (
	"context"
	"math"
	"math/rand"
	"time"

	"tempus/internal/metrics"
	"tempus/internal/model"
	"tempus/internal/store"
)

// Limits is the platform's published per-day write budget per action bucket.
var Limits = map[model.Action]int{
	model.ActionFollow:   400,
	model.ActionUnfollow: 500,
	model.ActionLike:     1000,
	model.ActionPost:     100,
}

// SafetyMargin shaves the published limits so the engine never rides the
// platform's exact edge.
const SafetyMargin = 0.95

// PauseThreshold is the used fraction at which callers should slow down.
const PauseThreshold = 0.80

// Ceiling is the enforced per-day maximum for an action bucket.
func Ceiling(a model.Action) int {
	limit, ok := Limits[a.QuotaBucket()]
	if !ok {
		return 0
	}
	return int(math.Floor(float64(limit) * SafetyMargin))
}

// Usage describes one bucket's consumption for a day.
type Usage struct {
	Action  model.Action `json:"action"`
	Used    int          `json:"used"`
	Ceiling int          `json:"ceiling"`
	Percent float64      `json:"percent"`
}

// Tracker enforces daily action budgets on top of the counter store.
type Tracker struct {
	counters *store.QuotaCounters
	now      func() time.Time
}

func NewTracker(counters *store.QuotaCounters) *Tracker {
	return &Tracker{counters: counters, now: time.Now}
}

// TryConsume reserves one unit of the action's bucket for today. A false
// return means the budget is spent; the caller must not perform the action.
func (t *Tracker) TryConsume(ctx context.Context, ownerID string, action model.Action) (bool, error) {
	day := model.QuotaDay(t.now())
	ok, err := t.counters.TryConsume(ctx, ownerID, day, action, Ceiling(action))
	if err != nil {
		return false, err
	}
	if !ok {
		metrics.QuotaDenials.WithLabelValues(string(action.QuotaBucket())).Inc()
	}
	return ok, nil
}

// Remaining returns how many units of the bucket are left today.
func (t *Tracker) Remaining(ctx context.Context, ownerID string, action model.Action) (int, error) {
	day := model.QuotaDay(t.now())
	q, err := t.counters.Get(ctx, ownerID, day)
	if err != nil {
		return 0, err
	}
	left := Ceiling(action) - q.Count(action)
	if left < 0 {
		left = 0
	}
	return left, nil
}

// ShouldPause reports whether any bucket has crossed the slow-down threshold
// for the owner today. A soft breaker: callers defer new work rather than
// failing what is already in flight.
func (t *Tracker) ShouldPause(ctx context.Context, ownerID string) (bool, error) {
	day := model.QuotaDay(t.now())
	q, err := t.counters.Get(ctx, ownerID, day)
	if err != nil {
		return false, err
	}
	for a := range Limits {
		ceiling := Ceiling(a)
		if ceiling == 0 {
			continue
		}
		if float64(q.Count(a))/float64(ceiling) >= PauseThreshold {
			return true, nil
		}
	}
	return false, nil
}

// Report returns today's usage across every bucket.
func (t *Tracker) Report(ctx context.Context, ownerID string) ([]Usage, error) {
	day := model.QuotaDay(t.now())
	q, err := t.counters.Get(ctx, ownerID, day)
	if err != nil {
		return nil, err
	}
	buckets := []model.Action{model.ActionFollow, model.ActionUnfollow, model.ActionLike, model.ActionPost}
	out := make([]Usage, 0, len(buckets))
	for _, a := range buckets {
		c := Ceiling(a)
		used := q.Count(a)
		pct := 0.0
		if c > 0 {
			pct = float64(used) / float64(c) * 100
		}
		out = append(out, Usage{Action: a, Used: used, Ceiling: c, Percent: pct})
	}
	return out, nil
}

// delayRanges paces consecutive engagement actions so automated activity does
// not look like a burst. Seconds, inclusive lower bound.
var delayRanges = map[model.Action][2]int{
	model.ActionFollow:   {60, 180},
	model.ActionUnfollow: {30, 120},
	model.ActionLike:     {15, 60},
	model.ActionRetweet:  {30, 120},
	model.ActionReply:    {60, 300},
	model.ActionPost:     {30, 120},
}

// ActionDelay returns a randomized pause to insert after performing action.
func ActionDelay(action model.Action, rng *rand.Rand) time.Duration {
	r, ok := delayRanges[action]
	if !ok {
		r = [2]int{30, 120}
	}
	secs := r[0] + rng.Intn(r[1]-r[0]+1)
	return time.Duration(secs) * time.Second
}
