package growth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"tempus/internal/logging"
	"tempus/internal/metrics"
	"tempus/internal/model"
	"tempus/internal/xclient"
)

// TaskEngage is the queue task name for one strategy's engagement run.
const TaskEngage = "growth.engage"

// Payload identifies the strategy an engagement run operates on.
type Payload struct {
	StrategyID string `json:"strategy_id"`
}

const quotaDeferDelay = 30 * time.Minute

// HandleEngage runs one engagement batch for a strategy: execute due targets,
// or run discovery when the backlog is empty.
func (s *Service) HandleEngage(ctx context.Context, raw json.RawMessage) error {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	st, err := s.store.Strategies.Get(ctx, payload.StrategyID)
	if err != nil {
		return err
	}
	if st.Status != model.StrategyActive {
		return nil
	}
	now := s.now()
	if st.Expired(now) {
		if err := st.MarkCompleted(); err == nil {
			logging.L().Infow("strategy time box elapsed", "strategy", st.ID)
			return s.store.Strategies.Save(ctx, st)
		}
		return nil
	}

	if me, err := s.client.GetMe(ctx); err == nil {
		st.UpdateFollowers(me.FollowersCount)
	}

	hour := now.Hour()
	if hour < st.EngagementStartHour || hour >= st.EngagementEndHour {
		logging.L().Debugw("outside engagement window", "strategy", st.ID, "hour", hour)
		return s.store.Strategies.Save(ctx, st)
	}

	if err := s.maybePostContent(ctx, st); err != nil {
		return err
	}

	targets, err := s.store.Targets.DuePending(ctx, st.ID, now, s.batch)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		pause, err := s.quota.ShouldPause(ctx, st.OwnerID)
		if err != nil {
			return err
		}
		if pause {
			logging.L().Infow("quota near limit, deferring discovery", "strategy", st.ID)
			return s.store.Strategies.Save(ctx, st)
		}
		if _, err := s.Discover(ctx, st); err != nil {
			return err
		}
		return s.store.Strategies.Save(ctx, st)
	}

	for _, t := range targets {
		stop, err := s.runTarget(ctx, st, t)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return s.store.Strategies.Save(ctx, st)
}

// runTarget executes every flagged action on one target. A quota denial skips
// just that action; a platform rate limit reschedules the target and stops
// the whole batch. Any single success completes the target.
func (s *Service) runTarget(ctx context.Context, st *model.Strategy, t *model.EngagementTarget) (stop bool, err error) {
	now := s.now()
	successes, attempts, denied := 0, 0, 0
	awaitingApproval := false

	type step struct {
		flagged bool
		action  model.Action
		run     func(context.Context) (string, error)
	}
	steps := []step{
		{t.ShouldFollow, model.ActionFollow, func(ctx context.Context) (string, error) {
			userID := t.PlatformUserID
			if userID == "" {
				u, err := s.client.GetUserByUsername(ctx, t.Username)
				if err != nil {
					return "", err
				}
				userID = u.ID
				t.PlatformUserID = u.ID
			}
			return "", s.client.Follow(ctx, userID)
		}},
		{t.ShouldLike, model.ActionLike, func(ctx context.Context) (string, error) {
			return "", s.client.Like(ctx, t.TweetID)
		}},
		{t.ShouldRetweet, model.ActionRetweet, func(ctx context.Context) (string, error) {
			return "", s.client.Retweet(ctx, t.TweetID)
		}},
		{t.ShouldReply, model.ActionReply, func(ctx context.Context) (string, error) {
			return s.client.PostTweet(ctx, t.ReplyText, t.TweetID)
		}},
	}

	for _, step := range steps {
		if !step.flagged {
			continue
		}
		if step.action == model.ActionReply && !t.ReplyApproved {
			awaitingApproval = true
			continue
		}
		ok, err := s.quota.TryConsume(ctx, st.OwnerID, step.action)
		if err != nil {
			return false, err
		}
		if !ok {
			denied++
			continue
		}
		replyID, runErr := step.run(ctx)
		if runErr != nil {
			var rl *xclient.RateLimitError
			if errors.As(runErr, &rl) {
				t.ScheduledFor = now.Add(rl.RetryAfter)
				metrics.Engagements.WithLabelValues(string(step.action), "rate_limited").Inc()
				logging.L().Warnw("engagement rate limited", "strategy", st.ID, "action", step.action, "retry_at", t.ScheduledFor)
				if err := s.store.Targets.Save(ctx, t); err != nil {
					return false, err
				}
				return true, nil
			}
			attempts++
			metrics.Engagements.WithLabelValues(string(step.action), "error").Inc()
			if err := s.appendLog(ctx, st, t, step.action, false, runErr.Error(), ""); err != nil {
				return false, err
			}
			continue
		}
		attempts++
		successes++
		st.RecordAction(step.action)
		metrics.Engagements.WithLabelValues(string(step.action), "ok").Inc()
		if err := s.appendLog(ctx, st, t, step.action, true, "", replyID); err != nil {
			return false, err
		}
	}

	switch {
	case successes > 0:
		t.MarkCompleted(now)
	case attempts > 0:
		t.MarkFailed("no actions succeeded", now)
	case denied > 0:
		// Out of quota today; try again later without burning the target.
		t.ScheduledFor = now.Add(quotaDeferDelay)
	case awaitingApproval:
		// Reply drafted but not approved yet; stay pending.
		t.ScheduledFor = now.Add(quotaDeferDelay)
	default:
		t.MarkSkipped("no actions flagged", now)
	}
	return false, s.store.Targets.Save(ctx, t)
}

func (s *Service) appendLog(ctx context.Context, st *model.Strategy, t *model.EngagementTarget, action model.Action, success bool, errMsg, replyID string) error {
	return s.store.Logs.Append(ctx, &model.EngagementLogEntry{
		ID:             uuid.NewString(),
		StrategyID:     st.ID,
		Action:         action,
		PlatformUserID: t.PlatformUserID,
		Username:       t.Username,
		TweetID:        t.TweetID,
		Success:        success,
		ErrorMessage:   errMsg,
		ReplyText:      t.ReplyText,
		ReplyTweetID:   replyID,
	})
}
