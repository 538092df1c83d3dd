package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"tempus/internal/llm"
	"tempus/internal/logging"
	"tempus/internal/metrics"
	"tempus/internal/model"
	"tempus/internal/publish"
	"tempus/internal/store"
	"tempus/internal/websearch"
)

// TaskCampaignPost is the queue task name for the generate-and-publish
// pipeline of one campaign post.
const TaskCampaignPost = "campaign.post"

// Payload identifies the campaign post a pipeline task operates on.
type Payload struct {
	PostID string `json:"post_id"`
}

const (
	pausedDefer     = 15 * time.Minute
	generationRetry = 5 * time.Minute
	researchDays    = 7
	researchResults = 5
	recentForPrompt = 5
)

// Service owns campaign lifecycle and the content pipeline.
type Service struct {
	store     *store.Store
	generator llm.Generator
	searcher  websearch.Searcher
	publisher *publish.Publisher
	rng       *rand.Rand
	now       func() time.Time
}

func NewService(st *store.Store, gen llm.Generator, search websearch.Searcher, pub *publish.Publisher) *Service {
	return &Service{
		store:     st,
		generator: gen,
		searcher:  search,
		publisher: pub,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// CreateParams describes a new campaign.
type CreateParams struct {
	OwnerID            string
	Name               string
	Topic              string
	Tone               model.Tone
	FrequencyPerDay    int
	DurationDays       int
	PostingStartHour   int
	PostingEndHour     int
	SearchEnabled      bool
	SearchKeywords     []string
	CustomInstructions string
}

// Create activates a campaign and pre-creates every post slot. Posts start
// empty; content is generated when each one comes due.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Campaign, error) {
	if p.FrequencyPerDay <= 0 || p.DurationDays <= 0 {
		return nil, errors.New("frequency and duration must be positive")
	}
	if p.Topic == "" {
		return nil, errors.New("empty topic")
	}
	if p.Tone == "" {
		p.Tone = model.ToneCasual
	}
	if p.PostingEndHour <= p.PostingStartHour {
		p.PostingStartHour, p.PostingEndHour = 9, 21
	}
	now := s.now()
	c := &model.Campaign{
		ID:                 uuid.NewString(),
		OwnerID:            p.OwnerID,
		Name:               p.Name,
		Topic:              p.Topic,
		Tone:               p.Tone,
		FrequencyPerDay:    p.FrequencyPerDay,
		DurationDays:       p.DurationDays,
		TotalPosts:         p.FrequencyPerDay * p.DurationDays,
		StartDate:          now,
		EndDate:            now.AddDate(0, 0, p.DurationDays),
		PostingStartHour:   p.PostingStartHour,
		PostingEndHour:     p.PostingEndHour,
		Timezone:           "UTC",
		Status:             model.CampaignActive,
		SearchEnabled:      p.SearchEnabled,
		SearchKeywords:     p.SearchKeywords,
		CustomInstructions: p.CustomInstructions,
	}
	if err := s.store.Campaigns.Create(ctx, c); err != nil {
		return nil, err
	}

	slots := TimeSlots(now, c.TotalPosts, p.FrequencyPerDay, p.PostingStartHour, p.PostingEndHour, s.rng, now)
	posts := make([]*model.Post, 0, len(slots))
	for _, slot := range slots {
		posts = append(posts, &model.Post{
			ID:             uuid.NewString(),
			OwnerID:        p.OwnerID,
			CampaignID:     c.ID,
			IsCampaignPost: true,
			ScheduledFor:   slot,
			Status:         model.PostAwaitingGeneration,
			MaxRetries:     3,
		})
	}
	if err := s.store.Posts.CreateBatch(ctx, posts); err != nil {
		return nil, err
	}
	logging.L().Infow("campaign created", "campaign", c.ID, "posts", len(posts))
	return c, nil
}

// HandlePost is the queue handler running one campaign post through
// research, generation, validation and publish.
func (s *Service) HandlePost(ctx context.Context, raw json.RawMessage) error {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	post, err := s.store.Posts.Get(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post.Status.Terminal() || post.Status == model.PostFailed {
		return nil
	}
	c, err := s.store.Campaigns.Get(ctx, post.CampaignID)
	if err != nil {
		return err
	}
	switch c.Status {
	case model.CampaignPaused:
		post.ScheduledFor = s.now().Add(pausedDefer)
		return s.store.Posts.Save(ctx, post)
	case model.CampaignCancelled, model.CampaignCompleted:
		if err := post.Cancel(); err != nil {
			return nil
		}
		return s.store.Posts.Save(ctx, post)
	}

	if !post.ContentGenerated {
		if err := s.generate(ctx, c, post); err != nil {
			return err
		}
		if post.Status == model.PostFailed || post.Status == model.PostRetrying {
			// Generation failed; outcome already persisted.
			return nil
		}
	}
	return s.publisher.Attempt(ctx, post)
}

// generate fills in the post's content. Research failures degrade to
// no-context generation; generation failures consume a retry.
func (s *Service) generate(ctx context.Context, c *model.Campaign, post *model.Post) error {
	research := ""
	if c.SearchEnabled && s.searcher != nil {
		kw := c.SearchKeywords
		if len(kw) > 3 {
			kw = kw[:3]
		}
		query := strings.TrimSpace(c.Topic + " " + strings.Join(kw, " "))
		results, err := s.searcher.SearchNews(ctx, query, researchDays, researchResults)
		if err != nil {
			logging.L().Warnw("research unavailable", "campaign", c.ID, "err", err)
		} else {
			research = websearch.FormatForPrompt(results, 1500)
		}
	}

	previous, err := s.recentContents(ctx, c.ID)
	if err != nil {
		return err
	}
	text, err := s.generator.GenerateTweet(ctx, llm.TweetRequest{
		Topic:        c.Topic,
		Tone:         c.Tone,
		Research:     research,
		Previous:     previous,
		Instructions: c.CustomInstructions,
		CharLimit:    280,
		Sequence:     c.PostsPublished + c.PostsFailed,
	})
	if err != nil {
		metrics.GenerationFailures.Inc()
		_ = post.MarkFailed(err.Error())
		if post.Status == model.PostRetrying {
			post.ScheduledFor = s.now().Add(generationRetry * time.Duration(post.RetryCount))
		}
		if err := s.store.Posts.Save(ctx, post); err != nil {
			return err
		}
		if post.Status == model.PostFailed {
			metrics.PostsFailed.Inc()
			_, err := s.store.Campaigns.Settle(ctx, c.ID, false)
			return err
		}
		return nil
	}
	post.Content = text
	post.ContentGenerated = true
	return s.store.Posts.Save(ctx, post)
}

func (s *Service) recentContents(ctx context.Context, campaignID string) ([]string, error) {
	posts, err := s.store.Posts.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range posts {
		if p.Status == model.PostPosted && p.Content != "" {
			out = append(out, p.Content)
		}
	}
	if len(out) > recentForPrompt {
		out = out[len(out)-recentForPrompt:]
	}
	return out, nil
}

// Pause suspends an active campaign; due posts are skipped until resume.
func (s *Service) Pause(ctx context.Context, id string) error {
	c, err := s.store.Campaigns.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Pause(); err != nil {
		return err
	}
	return s.store.Campaigns.Save(ctx, c)
}

// Resume reactivates a paused campaign.
func (s *Service) Resume(ctx context.Context, id string) error {
	c, err := s.store.Campaigns.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Resume(); err != nil {
		return err
	}
	return s.store.Campaigns.Save(ctx, c)
}

// Cancel stops a campaign and withdraws every post that has not published.
// Already-published posts stay published.
func (s *Service) Cancel(ctx context.Context, id string) (int64, error) {
	c, err := s.store.Campaigns.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := c.Cancel(); err != nil {
		return 0, err
	}
	if err := s.store.Campaigns.Save(ctx, c); err != nil {
		return 0, err
	}
	n, err := s.store.Posts.CancelPendingByCampaign(ctx, id)
	if err != nil {
		return 0, err
	}
	logging.L().Infow("campaign cancelled", "campaign", id, "withdrawn", n)
	return n, nil
}

// Stats is a campaign progress snapshot.
type Stats struct {
	Campaign  *model.Campaign `json:"campaign"`
	Published int             `json:"published"`
	Failed    int             `json:"failed"`
	Remaining int             `json:"remaining"`
	Progress  float64         `json:"progress"`
}

func (s *Service) Stats(ctx context.Context, id string) (*Stats, error) {
	c, err := s.store.Campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Campaign:  c,
		Published: c.PostsPublished,
		Failed:    c.PostsFailed,
		Remaining: c.Remaining(),
		Progress:  c.Progress(),
	}, nil
}
