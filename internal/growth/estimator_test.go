package growth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempus/internal/model"
)

func estimatorStrategy(daily model.DailyQuotas, starting, days int, mutate func(*model.Strategy)) *model.Strategy {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := &model.Strategy{
		StartDate:         start,
		EndDate:           start.AddDate(0, 0, days),
		Daily:             daily,
		StartingFollowers: starting,
		NicheKeywords:     []string{"golang"},
		TargetAccounts:    []string{"gopher"},
	}
	if mutate != nil {
		mutate(s)
	}
	return s
}

func TestEstimateResultsCompoundsOverDuration(t *testing.T) {
	daily := model.DailyQuotas{Follows: 100, Likes: 200, Retweets: 10, Replies: 20}
	est := EstimateResults(estimatorStrategy(daily, 1000, 90, nil))

	assert.Greater(t, est.EstimatedNewFollowers, 0)
	assert.Equal(t, 1000+est.EstimatedNewFollowers, est.EstimatedTotalFollowers)
	assert.Greater(t, est.DailyGrowthRate, 0.0)
	assert.Greater(t, est.ConversionRate, 0.0)
	assert.Equal(t, (100+200+10+20)*90, est.TotalEngagements)

	require.Len(t, est.Milestones, 5)
	days := make([]int, len(est.Milestones))
	for i, m := range est.Milestones {
		days[i] = m.Day
	}
	assert.Equal(t, []int{7, 14, 30, 60, 90}, days)
	for i := 1; i < len(est.Milestones); i++ {
		assert.Greater(t, est.Milestones[i].EstimatedFollowers, est.Milestones[i-1].EstimatedFollowers)
		assert.Greater(t, est.Milestones[i].TotalGained, est.Milestones[i-1].TotalGained)
	}

	// follows 100*0.02 + likes 200*0.005 + replies 20*0.03, quality capped at 0.9
	// without reply guidance, compounding only grows it from there.
	minExpected := 3.6 * 0.9 * 90
	assert.GreaterOrEqual(t, est.EstimatedNewFollowers, int(minExpected))
}

func TestEstimateMilestonesCappedAtDuration(t *testing.T) {
	daily := model.DailyQuotas{Follows: 20}
	est := EstimateResults(estimatorStrategy(daily, 500, 10, nil))
	require.Len(t, est.Milestones, 1)
	assert.Equal(t, 7, est.Milestones[0].Day)
}

func TestQualityScoreRewardsCompleteness(t *testing.T) {
	bare := estimatorStrategy(model.DailyQuotas{}, 0, 1, func(s *model.Strategy) {
		s.NicheKeywords = nil
		s.TargetAccounts = nil
	})
	assert.InDelta(t, 0.7, qualityScore(bare), 0.0001)

	full := estimatorStrategy(model.DailyQuotas{}, 0, 1, func(s *model.Strategy) {
		s.ReplyGuidelines = []string{"be kind"}
	})
	assert.InDelta(t, 1.0, qualityScore(full), 0.0001)

	withPrompt := estimatorStrategy(model.DailyQuotas{}, 0, 1, func(s *model.Strategy) {
		s.TargetAccounts = nil
		s.CustomPrompt = "focus on distributed systems"
	})
	assert.InDelta(t, 0.9, qualityScore(withPrompt), 0.0001)
}

func TestEstimateQualityRaisesGrowth(t *testing.T) {
	daily := model.DailyQuotas{Follows: 50, Likes: 100, Replies: 10}
	bare := EstimateResults(estimatorStrategy(daily, 1000, 30, func(s *model.Strategy) {
		s.NicheKeywords = nil
		s.TargetAccounts = nil
	}))
	full := EstimateResults(estimatorStrategy(daily, 1000, 30, func(s *model.Strategy) {
		s.ReplyGuidelines = []string{"be helpful"}
	}))
	assert.Greater(t, full.EstimatedNewFollowers, bare.EstimatedNewFollowers)
	assert.Greater(t, full.EstimatedEngagementRate, bare.EstimatedEngagementRate)
}

func TestEstimateResultsZeroQuotas(t *testing.T) {
	est := EstimateResults(estimatorStrategy(model.DailyQuotas{}, 100, 14, nil))
	assert.Equal(t, 0, est.EstimatedNewFollowers)
	assert.Equal(t, 100, est.EstimatedTotalFollowers)
	assert.Equal(t, 0.0, est.ConversionRate)
	assert.Equal(t, 0, est.TotalEngagements)
}

func TestEstimateResultsHandlesZeroStartingFollowers(t *testing.T) {
	daily := model.DailyQuotas{Follows: 10}
	est := EstimateResults(estimatorStrategy(daily, 0, 7, nil))
	assert.Greater(t, est.EstimatedNewFollowers, 0)
	assert.Greater(t, est.DailyGrowthRate, 0.0)
}
