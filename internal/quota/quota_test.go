package quota

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempus/internal/model"
	"tempus/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewTracker(st.Quota), st
}

func seedCounter(t *testing.T, st *store.Store, owner string, day string, mutate func(*model.QuotaCounter)) {
	t.Helper()
	q := &model.QuotaCounter{ID: uuid.NewString(), OwnerID: owner, Day: day}
	mutate(q)
	require.NoError(t, st.DB.Create(q).Error)
}

func TestCeilingAppliesSafetyMargin(t *testing.T) {
	assert.Equal(t, 380, Ceiling(model.ActionFollow))
	assert.Equal(t, 475, Ceiling(model.ActionUnfollow))
	assert.Equal(t, 950, Ceiling(model.ActionLike))
	assert.Equal(t, 95, Ceiling(model.ActionPost))
	// Retweets and replies draw from the post bucket.
	assert.Equal(t, 95, Ceiling(model.ActionRetweet))
	assert.Equal(t, 95, Ceiling(model.ActionReply))
}

func TestTryConsumeStopsAtCeiling(t *testing.T) {
	tr, st := newTestTracker(t)
	ctx := context.Background()
	day := model.QuotaDay(time.Now())
	seedCounter(t, st, "owner", day, func(q *model.QuotaCounter) { q.Follows = 379 })

	ok, err := tr.TryConsume(ctx, "owner", model.ActionFollow)
	require.NoError(t, err)
	assert.True(t, ok)

	remaining, err := tr.Remaining(ctx, "owner", model.ActionFollow)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	ok, err = tr.TryConsume(ctx, "owner", model.ActionFollow)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.Quota.Get(ctx, "owner", day)
	require.NoError(t, err)
	assert.Equal(t, 380, got.Follows)
}

func TestTryConsumeCreatesDayRow(t *testing.T) {
	tr, st := newTestTracker(t)
	ctx := context.Background()

	ok, err := tr.TryConsume(ctx, "fresh", model.ActionLike)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.Quota.Get(ctx, "fresh", model.QuotaDay(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
}

func TestTryConsumeIsolatesOwnersAndDays(t *testing.T) {
	tr, st := newTestTracker(t)
	ctx := context.Background()
	yesterday := model.QuotaDay(time.Now().AddDate(0, 0, -1))
	seedCounter(t, st, "a", yesterday, func(q *model.QuotaCounter) { q.Posts = 95 })

	ok, err := tr.TryConsume(ctx, "a", model.ActionPost)
	require.NoError(t, err)
	assert.True(t, ok, "yesterday's spend must not count against today")

	ok, err = tr.TryConsume(ctx, "b", model.ActionPost)
	require.NoError(t, err)
	assert.True(t, ok, "owners must not share budgets")
}

func TestShouldPauseAtThreshold(t *testing.T) {
	tr, st := newTestTracker(t)
	ctx := context.Background()
	day := model.QuotaDay(time.Now())
	// 80% of the like ceiling of 950 is 760.
	seedCounter(t, st, "owner", day, func(q *model.QuotaCounter) { q.Likes = 759 })

	pause, err := tr.ShouldPause(ctx, "owner")
	require.NoError(t, err)
	assert.False(t, pause)

	ok, err := tr.TryConsume(ctx, "owner", model.ActionLike)
	require.NoError(t, err)
	assert.True(t, ok)

	pause, err = tr.ShouldPause(ctx, "owner")
	require.NoError(t, err)
	assert.True(t, pause, "one bucket over threshold pauses the owner")
}

func TestReportCoversEveryBucket(t *testing.T) {
	tr, st := newTestTracker(t)
	ctx := context.Background()
	day := model.QuotaDay(time.Now())
	seedCounter(t, st, "owner", day, func(q *model.QuotaCounter) {
		q.Follows = 38
		q.Posts = 95
	})

	report, err := tr.Report(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, report, 4)
	byAction := map[model.Action]Usage{}
	for _, u := range report {
		byAction[u.Action] = u
	}
	assert.InDelta(t, 10.0, byAction[model.ActionFollow].Percent, 0.01)
	assert.InDelta(t, 100.0, byAction[model.ActionPost].Percent, 0.01)
	assert.Equal(t, 0, byAction[model.ActionLike].Used)
}

func TestActionDelayWithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ranges := map[model.Action][2]time.Duration{
		model.ActionFollow:   {60 * time.Second, 180 * time.Second},
		model.ActionUnfollow: {30 * time.Second, 120 * time.Second},
		model.ActionLike:     {15 * time.Second, 60 * time.Second},
		model.ActionRetweet:  {30 * time.Second, 120 * time.Second},
		model.ActionReply:    {60 * time.Second, 300 * time.Second},
	}
	for action, bounds := range ranges {
		for i := 0; i < 50; i++ {
			d := ActionDelay(action, rng)
			assert.GreaterOrEqual(t, d, bounds[0], "action %s", action)
			assert.LessOrEqual(t, d, bounds[1], "action %s", action)
		}
	}
}
