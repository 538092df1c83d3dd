package growth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"tempus/internal/llm"
	"tempus/internal/logging"
	"tempus/internal/metrics"
	"tempus/internal/model"
)

// Minimum gap between two original posts from one strategy.
const contentCooldown = 30 * time.Minute

// maybePostContent publishes one piece of original content for strategies
// that asked for daily posts: at most Daily.Posts per day, never two inside
// the cooldown, always against the post quota bucket. Failures are logged
// and skipped; the next engagement run tries again.
func (s *Service) maybePostContent(ctx context.Context, st *model.Strategy) error {
	if st.Daily.Posts <= 0 || s.generator == nil {
		return nil
	}
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.store.Logs.CountSince(ctx, st.ID, model.ActionPost, dayStart)
	if err != nil {
		return err
	}
	if today >= int64(st.Daily.Posts) {
		return nil
	}
	recent, err := s.store.Logs.CountSince(ctx, st.ID, model.ActionPost, now.Add(-contentCooldown))
	if err != nil {
		return err
	}
	if recent > 0 {
		return nil
	}
	ok, err := s.quota.TryConsume(ctx, st.OwnerID, model.ActionPost)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	text, err := s.generator.GenerateTweet(ctx, llm.TweetRequest{
		Topic:        strings.Join(st.NicheKeywords, ", "),
		Tone:         model.ToneCasual,
		Instructions: st.CustomPrompt,
		CharLimit:    st.CharLimit,
		Sequence:     st.Totals.Posts,
	})
	if err != nil {
		metrics.GenerationFailures.Inc()
		logging.L().Warnw("strategy content generation failed", "strategy", st.ID, "err", err)
		return nil
	}

	id, postErr := s.client.PostTweet(ctx, text, "")
	entry := &model.EngagementLogEntry{
		ID:           uuid.NewString(),
		StrategyID:   st.ID,
		Action:       model.ActionPost,
		Success:      postErr == nil,
		ReplyText:    text,
		ReplyTweetID: id,
	}
	if postErr != nil {
		entry.ErrorMessage = postErr.Error()
		metrics.Engagements.WithLabelValues(string(model.ActionPost), "error").Inc()
		logging.L().Warnw("strategy content post failed", "strategy", st.ID, "err", postErr)
	} else {
		st.RecordAction(model.ActionPost)
		metrics.Engagements.WithLabelValues(string(model.ActionPost), "ok").Inc()
		logging.L().Infow("strategy content posted", "strategy", st.ID, "tweet", id)
	}
	return s.store.Logs.Append(ctx, entry)
}
