package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempus/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func makePost(t *testing.T, st *Store, mutate func(*model.Post)) *model.Post {
	t.Helper()
	p := &model.Post{
		ID:           uuid.NewString(),
		OwnerID:      "owner",
		Content:      "content",
		ScheduledFor: time.Now().Add(-time.Minute),
		Status:       model.PostPending,
		MaxRetries:   3,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, st.Posts.Create(context.Background(), p))
	return p
}

func TestClaimPostingTakesPostOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := makePost(t, st, nil)
	now := time.Now()

	claimed, err := st.Posts.ClaimPosting(ctx, p.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = st.Posts.ClaimPosting(ctx, p.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must lose")

	got, err := st.Posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostPosting, got.Status)
	require.NotNil(t, got.LastAttemptAt)
}

func TestClaimPostingSkipsCancelled(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := makePost(t, st, func(p *model.Post) { p.Status = model.PostCancelled })

	claimed, err := st.Posts.ClaimPosting(ctx, p.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestDueDirectBoundsAndOrders(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	oldest := makePost(t, st, func(p *model.Post) { p.ScheduledFor = now.Add(-3 * time.Hour) })
	makePost(t, st, func(p *model.Post) { p.ScheduledFor = now.Add(-2 * time.Hour) })
	makePost(t, st, func(p *model.Post) { p.ScheduledFor = now.Add(-1 * time.Hour) })
	makePost(t, st, func(p *model.Post) { p.ScheduledFor = now.Add(time.Hour) })
	makePost(t, st, func(p *model.Post) { p.IsCampaignPost = true; p.Status = model.PostAwaitingGeneration })

	due, err := st.Posts.DueDirect(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, oldest.ID, due[0].ID)
}

func TestDueCampaignSelectsPipelineStatuses(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	awaiting := makePost(t, st, func(p *model.Post) {
		p.IsCampaignPost = true
		p.Status = model.PostAwaitingGeneration
	})
	retrying := makePost(t, st, func(p *model.Post) {
		p.IsCampaignPost = true
		p.Status = model.PostRetrying
	})
	makePost(t, st, func(p *model.Post) {
		p.IsCampaignPost = true
		p.Status = model.PostPosted
	})
	makePost(t, st, nil)

	due, err := st.Posts.DueCampaign(ctx, now, 10)
	require.NoError(t, err)
	ids := []string{due[0].ID, due[1].ID}
	assert.ElementsMatch(t, []string{awaiting.ID, retrying.ID}, ids)
}

func TestCancelPendingByCampaignLeavesPublished(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	campaignID := uuid.NewString()

	makePost(t, st, func(p *model.Post) {
		p.CampaignID = campaignID
		p.Status = model.PostAwaitingGeneration
	})
	makePost(t, st, func(p *model.Post) {
		p.CampaignID = campaignID
		p.Status = model.PostRetrying
	})
	posted := makePost(t, st, func(p *model.Post) {
		p.CampaignID = campaignID
		p.Status = model.PostPosted
	})

	n, err := st.Posts.CancelPendingByCampaign(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := st.Posts.Get(ctx, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostPosted, got.Status)
}

func makeTarget(t *testing.T, st *Store, strategyID, identity string, mutate func(*model.EngagementTarget)) *model.EngagementTarget {
	t.Helper()
	tg := &model.EngagementTarget{
		ID:           uuid.NewString(),
		StrategyID:   strategyID,
		Kind:         model.TargetTweet,
		Identity:     identity,
		Status:       model.TargetPending,
		ScheduledFor: time.Now().Add(-time.Minute),
		ShouldLike:   true,
	}
	if mutate != nil {
		mutate(tg)
	}
	created, err := st.Targets.CreateIgnoreDuplicate(context.Background(), tg)
	require.NoError(t, err)
	require.True(t, created)
	return tg
}

func TestTargetIdentityUniquePerStrategy(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	strategyA := uuid.NewString()
	strategyB := uuid.NewString()

	makeTarget(t, st, strategyA, "tweet-1", nil)

	dup := &model.EngagementTarget{
		ID: uuid.NewString(), StrategyID: strategyA, Kind: model.TargetTweet,
		Identity: "tweet-1", Status: model.TargetPending, ScheduledFor: time.Now(),
	}
	created, err := st.Targets.CreateIgnoreDuplicate(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created, "same identity in one strategy must not duplicate")

	other := &model.EngagementTarget{
		ID: uuid.NewString(), StrategyID: strategyB, Kind: model.TargetTweet,
		Identity: "tweet-1", Status: model.TargetPending, ScheduledFor: time.Now(),
	}
	created, err = st.Targets.CreateIgnoreDuplicate(ctx, other)
	require.NoError(t, err)
	assert.True(t, created, "another strategy may target the same tweet")
}

func TestDuePendingOrdersByPriorityThenSchedule(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	strategyID := uuid.NewString()
	now := time.Now()

	follow := makeTarget(t, st, strategyID, "acct", func(tg *model.EngagementTarget) {
		tg.Priority = 2
		tg.ScheduledFor = now.Add(-3 * time.Hour)
	})
	older := makeTarget(t, st, strategyID, "tw-old", func(tg *model.EngagementTarget) {
		tg.Priority = 1
		tg.ScheduledFor = now.Add(-2 * time.Hour)
	})
	newer := makeTarget(t, st, strategyID, "tw-new", func(tg *model.EngagementTarget) {
		tg.Priority = 1
		tg.ScheduledFor = now.Add(-time.Hour)
	})
	makeTarget(t, st, strategyID, "tw-future", func(tg *model.EngagementTarget) {
		tg.ScheduledFor = now.Add(time.Hour)
	})

	due, err := st.Targets.DuePending(ctx, strategyID, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, older.ID, due[0].ID)
	assert.Equal(t, newer.ID, due[1].ID)
	assert.Equal(t, follow.ID, due[2].ID)
}

func TestCampaignSettleCountsEveryOutcome(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := &model.Campaign{
		ID: uuid.NewString(), OwnerID: "owner", Name: "launch", Topic: "go",
		Tone: model.ToneCasual, FrequencyPerDay: 1, DurationDays: 2, TotalPosts: 2,
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 0, 2),
		Status: model.CampaignActive,
	}
	require.NoError(t, st.Campaigns.Create(ctx, c))

	// Two workers hold their own copies; settling goes through the row, so
	// neither update is lost.
	copyA, err := st.Campaigns.Get(ctx, c.ID)
	require.NoError(t, err)
	copyB, err := st.Campaigns.Get(ctx, c.ID)
	require.NoError(t, err)

	after, err := st.Campaigns.Settle(ctx, copyA.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, after.PostsPublished)
	assert.Equal(t, model.CampaignActive, after.Status)

	after, err = st.Campaigns.Settle(ctx, copyB.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, after.PostsPublished)
	assert.Equal(t, 1, after.PostsFailed)
	assert.Equal(t, model.CampaignCompleted, after.Status)
}

func TestCampaignSettleLeavesCancelledStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := &model.Campaign{
		ID: uuid.NewString(), OwnerID: "owner", Name: "launch", Topic: "go",
		Tone: model.ToneCasual, FrequencyPerDay: 1, DurationDays: 1, TotalPosts: 1,
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 0, 1),
		Status: model.CampaignCancelled,
	}
	require.NoError(t, st.Campaigns.Create(ctx, c))

	after, err := st.Campaigns.Settle(ctx, c.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, after.PostsPublished)
	assert.Equal(t, model.CampaignCancelled, after.Status, "completion must not revive a cancelled campaign")
}

func TestQuotaTryConsumeAtomicCeiling(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := "2026-08-23"

	granted := 0
	for i := 0; i < 5; i++ {
		ok, err := st.Quota.TryConsume(ctx, "owner", day, model.ActionPost, 3)
		require.NoError(t, err)
		if ok {
			granted++
		}
	}
	assert.Equal(t, 3, granted)

	got, err := st.Quota.Get(ctx, "owner", day)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Posts)
}

func TestQuotaPruneBefore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.DB.Create(&model.QuotaCounter{ID: uuid.NewString(), OwnerID: "o", Day: "2026-08-01"}).Error)
	require.NoError(t, st.DB.Create(&model.QuotaCounter{ID: uuid.NewString(), OwnerID: "o", Day: "2026-08-20"}).Error)

	n, err := st.Quota.PruneBefore(ctx, "2026-08-16")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEngagementLogCountSince(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	strategyID := uuid.NewString()

	for i := 0; i < 3; i++ {
		require.NoError(t, st.Logs.Append(ctx, &model.EngagementLogEntry{
			ID: uuid.NewString(), StrategyID: strategyID, Action: model.ActionLike, Success: true,
		}))
	}
	require.NoError(t, st.Logs.Append(ctx, &model.EngagementLogEntry{
		ID: uuid.NewString(), StrategyID: strategyID, Action: model.ActionLike, Success: false,
	}))

	n, err := st.Logs.CountSince(ctx, strategyID, model.ActionLike, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
