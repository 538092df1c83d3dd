package growth

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"tempus/internal/llm"
	"tempus/internal/logging"
	"tempus/internal/model"
	"tempus/internal/quota"
	"tempus/internal/store"
	"tempus/internal/xclient"
)

// Service owns growth strategies: discovery, execution, estimates and
// lifecycle.
type Service struct {
	store     *store.Store
	client    xclient.Client
	generator llm.Generator
	quota     *quota.Tracker
	batch     int
	rng       *rand.Rand
	now       func() time.Time
}

func NewService(st *store.Store, client xclient.Client, gen llm.Generator, q *quota.Tracker, batch int) *Service {
	if batch <= 0 {
		batch = 10
	}
	return &Service{
		store:     st,
		client:    client,
		generator: gen,
		quota:     q,
		batch:     batch,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// CreateParams describes a new growth strategy.
type CreateParams struct {
	OwnerID              string
	Name                 string
	DurationDays         int
	Daily                model.DailyQuotas
	NicheKeywords        []string
	TargetAccounts       []string
	EngagementStartHour  int
	EngagementEndHour    int
	RequireReplyApproval bool
	ReplyGuidelines      []string
	CustomPrompt         string
}

// Create activates a strategy, snapshots the starting follower count and
// attaches a growth estimate.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Strategy, error) {
	if p.DurationDays <= 0 {
		return nil, errors.New("duration must be positive")
	}
	if len(p.NicheKeywords) == 0 && len(p.TargetAccounts) == 0 {
		return nil, errors.New("need keywords or target accounts to discover from")
	}
	if p.EngagementEndHour <= p.EngagementStartHour {
		p.EngagementStartHour, p.EngagementEndHour = 9, 22
	}
	now := s.now()
	st := &model.Strategy{
		ID:                   uuid.NewString(),
		OwnerID:              p.OwnerID,
		Name:                 p.Name,
		Status:               model.StrategyActive,
		StartDate:            now,
		EndDate:              now.AddDate(0, 0, p.DurationDays),
		Daily:                p.Daily,
		NicheKeywords:        p.NicheKeywords,
		TargetAccounts:       p.TargetAccounts,
		EngagementStartHour:  p.EngagementStartHour,
		EngagementEndHour:    p.EngagementEndHour,
		Timezone:             "UTC",
		CharLimit:            280,
		RequireReplyApproval: p.RequireReplyApproval,
		ReplyGuidelines:      p.ReplyGuidelines,
		CustomPrompt:         p.CustomPrompt,
	}
	if me, err := s.client.GetMe(ctx); err == nil {
		st.StartingFollowers = me.FollowersCount
		st.CurrentFollowers = me.FollowersCount
	} else {
		logging.L().Warnw("starting follower count unavailable", "err", err)
	}
	st.EstimatedResults = EstimateResults(st)
	if err := s.store.Strategies.Create(ctx, st); err != nil {
		return nil, err
	}
	logging.L().Infow("strategy created", "strategy", st.ID, "keywords", len(st.NicheKeywords))
	return st, nil
}

func (s *Service) Pause(ctx context.Context, id string) error {
	st, err := s.store.Strategies.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := st.Pause(); err != nil {
		return err
	}
	return s.store.Strategies.Save(ctx, st)
}

func (s *Service) Resume(ctx context.Context, id string) error {
	st, err := s.store.Strategies.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := st.Resume(); err != nil {
		return err
	}
	return s.store.Strategies.Save(ctx, st)
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	st, err := s.store.Strategies.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := st.Cancel(); err != nil {
		return err
	}
	return s.store.Strategies.Save(ctx, st)
}

// ApproveReply releases one drafted reply for execution.
func (s *Service) ApproveReply(ctx context.Context, targetID string) error {
	t, err := s.store.Targets.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if !t.ShouldReply || t.ReplyText == "" {
		return errors.New("target has no drafted reply")
	}
	t.ReplyApproved = true
	return s.store.Targets.Save(ctx, t)
}

// Stats is a strategy progress snapshot.
type Stats struct {
	Strategy        *model.Strategy `json:"strategy"`
	PendingTargets  int64           `json:"pending_targets"`
	FollowersGained int             `json:"followers_gained"`
}

func (s *Service) Stats(ctx context.Context, id string) (*Stats, error) {
	st, err := s.store.Strategies.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.Targets.CountPending(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Stats{Strategy: st, PendingTargets: pending, FollowersGained: st.FollowersGained}, nil
}

// NextEngagementSlot returns the next moment inside the engagement window,
// with a little jitter so runs never start at the exact same second.
func NextEngagementSlot(now time.Time, startHour, endHour int, rng *rand.Rand) time.Time {
	jitter := time.Duration(rng.Int63n(int64(5 * time.Minute)))
	hour := now.Hour()
	if hour >= startHour && hour < endHour {
		return now.Add(jitter)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), startHour, 0, 0, 0, now.Location())
	if hour >= endHour {
		next = next.AddDate(0, 0, 1)
	}
	return next.Add(jitter)
}
