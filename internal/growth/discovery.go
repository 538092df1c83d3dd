package growth

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"tempus/internal/llm"
	"tempus/internal/logging"
	"tempus/internal/model"
	"tempus/internal/quota"
)

const (
	keywordsPerRun     = 3
	tweetsPerKeyword   = 20
	accountsPerKeyword = 10
	targetAccountsUsed = 10
	followersPerTarget = 30
)

// Engagement-worthiness thresholds for discovered tweets.
const (
	retweetMinLikes    = 100
	retweetMinRetweets = 20
	replyMinLikes      = 50
)

// tweetRelevance scores a tweet by engagement, capped below keyword-account
// certainty.
func tweetRelevance(likes, retweets int) float64 {
	return math.Min(0.9, 0.5+float64(likes+3*retweets)/1000)
}

const (
	keywordAccountRelevance  = 0.7
	followerAccountRelevance = 0.8
)

// Execution ordering: tweet engagements first, then follows.
const (
	priorityTweet   = 1
	priorityAccount = 2
)

// Discover finds new engagement targets for a strategy: engaged tweets from
// keyword search, plus accounts from keyword search and from followers of the
// strategy's target accounts. Duplicates within the strategy are dropped by
// the unique identity index. Returns the number of targets created.
func (s *Service) Discover(ctx context.Context, st *model.Strategy) (int, error) {
	now := s.now()
	slot := NextEngagementSlot(now, st.EngagementStartHour, st.EngagementEndHour, s.rng)
	created := 0

	keywords := st.NicheKeywords
	if len(keywords) > keywordsPerRun {
		keywords = keywords[:keywordsPerRun]
	}

	for _, kw := range keywords {
		tweets, err := s.client.SearchRecentTweets(ctx, kw, tweetsPerKeyword)
		if err != nil {
			logging.L().Warnw("tweet search failed", "keyword", kw, "err", err)
			continue
		}
		for _, tw := range tweets {
			t := &model.EngagementTarget{
				ID:                uuid.NewString(),
				StrategyID:        st.ID,
				Kind:              model.TargetTweet,
				Identity:          tw.ID,
				TweetID:           tw.ID,
				TweetAuthorID:     tw.AuthorID,
				TweetContent:      tw.Text,
				TweetLikeCount:    tw.LikeCount,
				TweetRetweetCount: tw.RetweetCount,
				ShouldLike:        true,
				ShouldRetweet:     tw.LikeCount > retweetMinLikes && tw.RetweetCount > retweetMinRetweets,
				ShouldReply:       tw.LikeCount > replyMinLikes,
				Status:            model.TargetPending,
				ScheduledFor:      slot,
				RelevanceScore:    tweetRelevance(tw.LikeCount, tw.RetweetCount),
				Priority:          priorityTweet,
			}
			if t.ShouldReply {
				s.draftReply(ctx, st, t)
			}
			ok, err := s.store.Targets.CreateIgnoreDuplicate(ctx, t)
			if err != nil {
				return created, err
			}
			if ok {
				created++
				slot = slot.Add(quota.ActionDelay(model.ActionLike, s.rng))
			}
		}
	}

	for _, kw := range keywords {
		users, err := s.client.SearchUsers(ctx, kw, accountsPerKeyword)
		if err != nil {
			logging.L().Warnw("account search failed", "keyword", kw, "err", err)
			continue
		}
		for _, u := range users {
			n, err := s.addAccountTarget(ctx, st, u.ID, u.Username, u.FollowersCount, u.FollowingCount, u.Description, keywordAccountRelevance, slot)
			if err != nil {
				return created, err
			}
			if n {
				created++
				slot = slot.Add(quota.ActionDelay(model.ActionFollow, s.rng))
			}
		}
	}

	accounts := st.TargetAccounts
	if len(accounts) > targetAccountsUsed {
		accounts = accounts[:targetAccountsUsed]
	}
	for _, username := range accounts {
		seed, err := s.client.GetUserByUsername(ctx, username)
		if err != nil {
			logging.L().Warnw("target account lookup failed", "account", username, "err", err)
			continue
		}
		followers, err := s.client.GetFollowers(ctx, seed.ID, followersPerTarget)
		if err != nil {
			logging.L().Warnw("follower listing failed", "account", username, "err", err)
			continue
		}
		for _, u := range followers {
			n, err := s.addAccountTarget(ctx, st, u.ID, u.Username, u.FollowersCount, u.FollowingCount, u.Description, followerAccountRelevance, slot)
			if err != nil {
				return created, err
			}
			if n {
				created++
				slot = slot.Add(quota.ActionDelay(model.ActionFollow, s.rng))
			}
		}
	}

	logging.L().Infow("discovery complete", "strategy", st.ID, "created", created)
	return created, nil
}

func (s *Service) addAccountTarget(ctx context.Context, st *model.Strategy, userID, username string, followers, following int, bio string, relevance float64, slot time.Time) (bool, error) {
	if username == "" {
		return false, nil
	}
	t := &model.EngagementTarget{
		ID:             uuid.NewString(),
		StrategyID:     st.ID,
		Kind:           model.TargetAccount,
		Identity:       username,
		PlatformUserID: userID,
		Username:       username,
		FollowerCount:  followers,
		FollowingCount: following,
		Bio:            bio,
		ShouldFollow:   true,
		Status:         model.TargetPending,
		ScheduledFor:   slot,
		RelevanceScore: relevance,
		Priority:       priorityAccount,
	}
	return s.store.Targets.CreateIgnoreDuplicate(ctx, t)
}

// draftReply pre-writes the reply at discovery time so approval can happen
// before execution. Drafting failure just disables the reply action.
func (s *Service) draftReply(ctx context.Context, st *model.Strategy, t *model.EngagementTarget) {
	text, err := s.generator.DraftReply(ctx, llm.ReplyRequest{
		TweetContent: t.TweetContent,
		TweetAuthor:  t.TweetAuthor,
		Keywords:     st.NicheKeywords,
		Guidelines:   st.ReplyGuidelines,
		CustomPrompt: st.CustomPrompt,
		CharLimit:    st.CharLimit,
	})
	if err != nil {
		logging.L().Warnw("reply draft failed", "tweet", t.TweetID, "err", err)
		t.ShouldReply = false
		return
	}
	t.ReplyText = text
	t.ReplyApproved = !st.RequireReplyApproval
}
