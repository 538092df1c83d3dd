package growth

import (
	"math"

	"tempus/internal/model"
)

// Follower conversion per action: a follow is most likely to be returned,
// a passive like least.
const (
	followConversion = 0.02
	likeConversion   = 0.005
	replyConversion  = 0.03
)

// Milestone day offsets, capped at the strategy duration.
var milestoneDays = []int{7, 14, 30, 60, 90, 180, 365}

// qualityScore grades strategy completeness in [0.7, 1.0]: a strategy with
// keywords, seed accounts and reply guidance converts better than a bare one.
func qualityScore(s *model.Strategy) float64 {
	q := 0.7
	if len(s.NicheKeywords) > 0 {
		q += 0.1
	}
	if len(s.TargetAccounts) > 0 {
		q += 0.1
	}
	if len(s.ReplyGuidelines) > 0 || s.CustomPrompt != "" {
		q += 0.1
	}
	return math.Min(q, 1.0)
}

// EstimateResults projects follower growth for a strategy. Pure arithmetic,
// no I/O: a per-day new-follower estimate from conversion rates scaled by
// strategy quality, compounded day by day with a mild audience-size bonus.
func EstimateResults(s *model.Strategy) *model.Estimate {
	days := int(math.Ceil(s.EndDate.Sub(s.StartDate).Hours() / 24))
	if days < 1 {
		days = 1
	}
	quality := qualityScore(s)
	dailyBase := (float64(s.Daily.Follows)*followConversion +
		float64(s.Daily.Likes)*likeConversion +
		float64(s.Daily.Replies)*replyConversion) * quality

	followers := float64(s.StartingFollowers)
	milestones := make([]model.Milestone, 0, len(milestoneDays))
	next := 0
	base := s.StartingFollowers
	if base < 1 {
		base = 1
	}
	for day := 1; day <= days; day++ {
		sizeBonus := 1 + followers/10000*0.1
		followers += dailyBase * sizeBonus
		for next < len(milestoneDays) && milestoneDays[next] == day {
			gained := int(math.Round(followers)) - s.StartingFollowers
			milestones = append(milestones, model.Milestone{
				Day:                day,
				EstimatedFollowers: s.StartingFollowers + gained,
				TotalGained:        gained,
				GrowthPercentage:   float64(gained) / float64(base) * 100,
			})
			next++
		}
	}

	gained := int(math.Round(followers)) - s.StartingFollowers
	dailyActions := s.Daily.Follows + s.Daily.Likes + s.Daily.Retweets + s.Daily.Replies + s.Daily.Posts
	conversion := 0.0
	if dailyActions > 0 {
		conversion = dailyBase / float64(dailyActions)
	}
	return &model.Estimate{
		EstimatedNewFollowers:   gained,
		EstimatedTotalFollowers: s.StartingFollowers + gained,
		EstimatedEngagementRate: 3.0 + quality*2.0,
		DailyGrowthRate:         dailyBase / float64(base) * 100,
		TotalEngagements:        dailyActions * days,
		ConversionRate:          conversion,
		Milestones:              milestones,
	}
}
