package publish

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"tempus/internal/logging"
	"tempus/internal/metrics"
	"tempus/internal/model"
	"tempus/internal/quota"
	"tempus/internal/store"
	"tempus/internal/xclient"
)

// TaskPublish is the queue task name for publishing one post.
const TaskPublish = "post.publish"

// Payload identifies the post a publish task operates on.
type Payload struct {
	PostID string `json:"post_id"`
}

// Retry pacing when the platform does not dictate one.
const (
	quotaDeferDelay = 30 * time.Minute
	retryBaseDelay  = 5 * time.Minute
)

// Publisher drives posts through the publish state machine.
type Publisher struct {
	store  *store.Store
	client xclient.Client
	quota  *quota.Tracker
	now    func() time.Time
}

func New(st *store.Store, client xclient.Client, q *quota.Tracker) *Publisher {
	return &Publisher{store: st, client: client, quota: q, now: time.Now}
}

// HandlePublish is the queue handler for direct (non-campaign) posts.
func (p *Publisher) HandlePublish(ctx context.Context, raw json.RawMessage) error {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	post, err := p.store.Posts.Get(ctx, payload.PostID)
	if err != nil {
		return err
	}
	return p.Attempt(ctx, post)
}

// Attempt runs one publish attempt. Terminal posts are a no-op: a duplicate
// task for an already-POSTED post succeeds idempotently. Retries are expressed
// by pushing ScheduledFor forward and letting the next due-scan pick the post
// up again.
func (p *Publisher) Attempt(ctx context.Context, post *model.Post) error {
	if post.Status.Terminal() || post.Status == model.PostFailed {
		logging.L().Debugw("publish skipped", "post", post.ID, "status", post.Status)
		return nil
	}
	now := p.now()

	claimed, err := p.store.Posts.ClaimPosting(ctx, post.ID, now)
	if err != nil {
		return err
	}
	if !claimed {
		logging.L().Debugw("publish claim lost", "post", post.ID)
		return nil
	}
	_ = post.MarkPosting(now)

	// Consume after the claim so a lost duplicate task never burns a unit.
	ok, qerr := p.quota.TryConsume(ctx, post.OwnerID, model.ActionPost)
	if qerr != nil || !ok {
		// Budget spent for today; release the claim without burning a retry.
		_ = post.MarkRateLimited("daily post budget exhausted")
		post.ScheduledFor = now.Add(quotaDeferDelay)
		if err := p.store.Posts.Save(ctx, post); err != nil {
			return err
		}
		if qerr != nil {
			return qerr
		}
		logging.L().Infow("post deferred by quota", "post", post.ID, "until", post.ScheduledFor)
		return nil
	}

	attempt := &model.ExecutionLog{
		ID:            uuid.NewString(),
		PostID:        post.ID,
		AttemptNumber: post.RetryCount + 1,
		StartedAt:     now,
	}

	primaryID, threadIDs, postErr := p.send(ctx, post)
	done := p.now()

	switch {
	case postErr == nil:
		_ = post.MarkPosted(primaryID, threadIDs, done)
		attempt.Complete(true, primaryID, "", "", done)
		metrics.PostsPublished.Inc()
	case xclient.IsRateLimit(postErr):
		var rl *xclient.RateLimitError
		errors.As(postErr, &rl)
		_ = post.MarkRateLimited(postErr.Error())
		post.ScheduledFor = done.Add(rl.RetryAfter)
		attempt.Complete(false, "", postErr.Error(), "rate_limited", done)
		metrics.TasksRetried.WithLabelValues(TaskPublish).Inc()
		logging.L().Warnw("publish rate limited", "post", post.ID, "retry_at", post.ScheduledFor)
	default:
		_ = post.MarkFailed(postErr.Error())
		attempt.Complete(false, "", postErr.Error(), "api_error", done)
		if post.Status == model.PostRetrying {
			post.ScheduledFor = done.Add(retryBaseDelay * time.Duration(post.RetryCount))
			metrics.TasksRetried.WithLabelValues(TaskPublish).Inc()
		} else {
			metrics.PostsFailed.Inc()
			logging.L().Errorw("post failed permanently", "post", post.ID, "err", postErr)
		}
	}

	if err := p.store.Posts.Save(ctx, post); err != nil {
		return err
	}
	if err := p.store.Posts.AddLog(ctx, attempt); err != nil {
		return err
	}
	p.settleCampaign(ctx, post)
	return nil
}

// send publishes the post's content: a single tweet, or a reply chain for
// threads. Returns the lead tweet id and, for threads, every id in order.
func (p *Publisher) send(ctx context.Context, post *model.Post) (string, []string, error) {
	if !post.IsThread || len(post.ThreadParts) == 0 {
		id, err := p.client.PostTweet(ctx, post.Content, "")
		return id, nil, err
	}
	ids := make([]string, 0, len(post.ThreadParts))
	prev := ""
	for _, part := range post.ThreadParts {
		id, err := p.client.PostTweet(ctx, part, prev)
		if err != nil {
			if len(ids) > 0 {
				// Partial thread is published; record what made it out.
				post.PlatformIDs = ids
			}
			return "", ids, err
		}
		ids = append(ids, id)
		prev = id
	}
	return ids[0], ids, nil
}

// settleCampaign rolls a terminal outcome up into the parent campaign.
func (p *Publisher) settleCampaign(ctx context.Context, post *model.Post) {
	if !post.IsCampaignPost || post.CampaignID == "" {
		return
	}
	if post.Status != model.PostPosted && post.Status != model.PostFailed {
		return
	}
	c, err := p.store.Campaigns.Settle(ctx, post.CampaignID, post.Status == model.PostPosted)
	if err != nil {
		logging.L().Errorw("campaign settle failed", "campaign", post.CampaignID, "err", err)
		return
	}
	if c.Complete() {
		logging.L().Infow("campaign complete", "campaign", c.ID,
			"published", c.PostsPublished, "failed", c.PostsFailed)
	}
}

// RetryFailed puts a terminally FAILED post back in line for one more
// attempt at the user's request.
func (p *Publisher) RetryFailed(ctx context.Context, postID string) error {
	post, err := p.store.Posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if err := post.ResetForManualRetry(); err != nil {
		return err
	}
	post.ScheduledFor = p.now()
	return p.store.Posts.Save(ctx, post)
}

// Cancel withdraws a post that has not started publishing.
func (p *Publisher) Cancel(ctx context.Context, postID string) error {
	post, err := p.store.Posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if err := post.Cancel(); err != nil {
		return err
	}
	return p.store.Posts.Save(ctx, post)
}
