package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostedAndCancelledAreAbsorbing(t *testing.T) {
	for _, s := range []PostStatus{PostPosted, PostCancelled} {
		assert.True(t, s.Terminal())
		for _, next := range []PostStatus{PostPending, PostPosting, PostRetrying, PostFailed, PostPosted, PostCancelled} {
			assert.False(t, s.CanTransitionTo(next), "%s -> %s must be illegal", s, next)
		}
	}
}

func TestFailedAllowsOnlyManualRetry(t *testing.T) {
	assert.False(t, PostFailed.Terminal())
	assert.True(t, PostFailed.CanTransitionTo(PostRetrying))
	assert.False(t, PostFailed.CanTransitionTo(PostPosting))
	assert.False(t, PostFailed.CanTransitionTo(PostCancelled))
}

func TestMarkFailedExhaustsRetryBudget(t *testing.T) {
	p := &Post{Status: PostPosting, RetryCount: 2, MaxRetries: 3}

	require.NoError(t, p.MarkFailed("timeout"))
	assert.Equal(t, PostRetrying, p.Status)
	assert.Equal(t, 3, p.RetryCount)

	p.Status = PostPosting
	require.NoError(t, p.MarkFailed("timeout again"))
	assert.Equal(t, PostFailed, p.Status)
	assert.Equal(t, 3, p.RetryCount)
	assert.GreaterOrEqual(t, p.RetryCount, p.MaxRetries)
}

func TestMarkRateLimitedKeepsRetryCount(t *testing.T) {
	p := &Post{Status: PostPosting, RetryCount: 1, MaxRetries: 3}
	require.NoError(t, p.MarkRateLimited("429"))
	assert.Equal(t, PostRetrying, p.Status)
	assert.Equal(t, 1, p.RetryCount)
}

func TestMarkPostedRecordsOutcome(t *testing.T) {
	now := time.Now()
	p := &Post{Status: PostPosting}
	require.NoError(t, p.MarkPosted("111", []string{"111", "222"}, now))
	assert.Equal(t, PostPosted, p.Status)
	assert.Equal(t, "111", p.PlatformPostID)
	assert.Equal(t, []string{"111", "222"}, p.PlatformIDs)
	require.NotNil(t, p.PostedAt)

	err := p.MarkFailed("too late")
	var illegal *ErrIllegalTransition
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, PostPosted, p.Status)
}

func TestCancelOnlyBeforePosting(t *testing.T) {
	p := &Post{Status: PostPending}
	require.NoError(t, p.Cancel())
	assert.Equal(t, PostCancelled, p.Status)

	p = &Post{Status: PostPosting}
	require.Error(t, p.Cancel())
}

func TestResetForManualRetry(t *testing.T) {
	p := &Post{Status: PostFailed, RetryCount: 3, MaxRetries: 3}
	require.NoError(t, p.ResetForManualRetry())
	assert.Equal(t, PostRetrying, p.Status)

	p = &Post{Status: PostPending}
	require.Error(t, p.ResetForManualRetry())
}

func TestDueRespectsStatusAndSchedule(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Post{Status: PostPending, ScheduledFor: past}).Due(now))
	assert.True(t, (&Post{Status: PostRetrying, ScheduledFor: past}).Due(now))
	assert.True(t, (&Post{Status: PostAwaitingGeneration, ScheduledFor: past}).Due(now))
	assert.False(t, (&Post{Status: PostPending, ScheduledFor: future}).Due(now))
	assert.False(t, (&Post{Status: PostPosted, ScheduledFor: past}).Due(now))
	assert.False(t, (&Post{Status: PostFailed, ScheduledFor: past}).Due(now))
}

func TestCampaignAccounting(t *testing.T) {
	c := &Campaign{Status: CampaignActive, TotalPosts: 2, PostsPublished: 1}
	assert.False(t, c.Complete())
	assert.Equal(t, 1, c.Remaining())
	assert.InDelta(t, 50.0, c.Progress(), 0.001)

	c.PostsFailed = 1
	assert.True(t, c.Complete())
	assert.Equal(t, 0, c.Remaining())
}

func TestCampaignLifecycle(t *testing.T) {
	c := &Campaign{Status: CampaignActive}
	require.NoError(t, c.Pause())
	require.NoError(t, c.Resume())
	require.NoError(t, c.Cancel())
	require.Error(t, c.Resume())
	assert.True(t, c.Status.Terminal())
}

func TestActionQuotaBuckets(t *testing.T) {
	assert.Equal(t, ActionPost, ActionRetweet.QuotaBucket())
	assert.Equal(t, ActionPost, ActionReply.QuotaBucket())
	assert.Equal(t, ActionPost, ActionPost.QuotaBucket())
	assert.Equal(t, ActionFollow, ActionFollow.QuotaBucket())
	assert.Equal(t, ActionLike, ActionLike.QuotaBucket())
}

func TestQuotaCounterCount(t *testing.T) {
	q := &QuotaCounter{Follows: 1, Unfollows: 2, Likes: 3, Posts: 4}
	assert.Equal(t, 1, q.Count(ActionFollow))
	assert.Equal(t, 2, q.Count(ActionUnfollow))
	assert.Equal(t, 3, q.Count(ActionLike))
	assert.Equal(t, 4, q.Count(ActionPost))
	assert.Equal(t, 4, q.Count(ActionRetweet))
	assert.Equal(t, 4, q.Count(ActionReply))
}

func TestStrategyRecordsActionsAndFollowers(t *testing.T) {
	s := &Strategy{Status: StrategyActive, StartingFollowers: 100}
	s.RecordAction(ActionFollow)
	s.RecordAction(ActionLike)
	s.RecordAction(ActionLike)
	assert.Equal(t, 1, s.Totals.Follows)
	assert.Equal(t, 2, s.Totals.Likes)

	s.UpdateFollowers(130)
	assert.Equal(t, 130, s.CurrentFollowers)
	assert.Equal(t, 30, s.FollowersGained)
}

func TestStrategyExpired(t *testing.T) {
	now := time.Now()
	s := &Strategy{EndDate: now.Add(-time.Hour)}
	assert.True(t, s.Expired(now))
	s.EndDate = now.Add(time.Hour)
	assert.False(t, s.Expired(now))
}
