package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tempus/internal/campaign"
	"tempus/internal/config"
	"tempus/internal/growth"
	"tempus/internal/logging"
	"tempus/internal/publish"
	"tempus/internal/queue"
	"tempus/internal/store"
)

// Retention windows for the daily housekeeping job.
const (
	quotaRetentionDays = 7
	logRetentionDays   = 30
)

// Scheduler runs the periodic due-scans that feed the task queue. Handlers
// are idempotent, so a post picked up by two consecutive ticks publishes only
// once.
type Scheduler struct {
	cron  *cron.Cron
	store *store.Store
	queue *queue.Queue
	cfg   config.EngineConfig
	now   func() time.Time
}

func New(st *store.Store, q *queue.Queue, cfg config.EngineConfig) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		store: st,
		queue: q,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Start registers the tick jobs and begins scheduling. Stop with Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	postEvery := s.cfg.PostScanEvery
	if postEvery <= 0 {
		postEvery = time.Minute
	}
	growthEvery := s.cfg.GrowthScanEvery
	if growthEvery <= 0 {
		growthEvery = 5 * time.Minute
	}

	s.cron.Schedule(cron.Every(postEvery), cron.FuncJob(func() { s.scanPosts(ctx) }))
	s.cron.Schedule(cron.Every(postEvery), cron.FuncJob(func() { s.promoteDelayed(ctx) }))
	s.cron.Schedule(cron.Every(growthEvery), cron.FuncJob(func() { s.scanStrategies(ctx) }))
	if _, err := s.cron.AddFunc("0 3 * * *", func() { s.housekeeping(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	logging.L().Infow("scheduler started", "post_scan", postEvery, "growth_scan", growthEvery)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// scanPosts enqueues one task per due post: direct posts go straight to
// publish, campaign posts go through the generation pipeline.
func (s *Scheduler) scanPosts(ctx context.Context) {
	now := s.now()
	limit := s.cfg.DueScanLimit
	if limit <= 0 {
		limit = 50
	}

	direct, err := s.store.Posts.DueDirect(ctx, now, limit)
	if err != nil {
		logging.L().Errorw("direct due-scan failed", "err", err)
	}
	for _, p := range direct {
		if err := s.queue.Enqueue(ctx, publish.TaskPublish, publish.Payload{PostID: p.ID}, 0); err != nil {
			logging.L().Errorw("enqueue publish failed", "post", p.ID, "err", err)
		}
	}

	pipeline, err := s.store.Posts.DueCampaign(ctx, now, limit)
	if err != nil {
		logging.L().Errorw("campaign due-scan failed", "err", err)
	}
	for _, p := range pipeline {
		if err := s.queue.Enqueue(ctx, campaign.TaskCampaignPost, campaign.Payload{PostID: p.ID}, 0); err != nil {
			logging.L().Errorw("enqueue campaign post failed", "post", p.ID, "err", err)
		}
	}
}

// scanStrategies enqueues an engagement run for every active strategy.
func (s *Scheduler) scanStrategies(ctx context.Context) {
	strategies, err := s.store.Strategies.ListActive(ctx)
	if err != nil {
		logging.L().Errorw("strategy scan failed", "err", err)
		return
	}
	for _, st := range strategies {
		if err := s.queue.Enqueue(ctx, growth.TaskEngage, growth.Payload{StrategyID: st.ID}, 0); err != nil {
			logging.L().Errorw("enqueue engage failed", "strategy", st.ID, "err", err)
		}
	}
}

func (s *Scheduler) promoteDelayed(ctx context.Context) {
	if _, err := s.queue.PromoteDue(ctx, s.now()); err != nil {
		logging.L().Errorw("delayed promotion failed", "err", err)
	}
}

// housekeeping prunes quota counters and execution history past retention.
func (s *Scheduler) housekeeping(ctx context.Context) {
	now := s.now()
	day := now.AddDate(0, 0, -quotaRetentionDays).UTC().Format("2006-01-02")
	if n, err := s.store.Quota.PruneBefore(ctx, day); err != nil {
		logging.L().Errorw("quota prune failed", "err", err)
	} else if n > 0 {
		logging.L().Infow("quota counters pruned", "rows", n)
	}
	cutoff := now.AddDate(0, 0, -logRetentionDays)
	if n, err := s.store.Posts.PruneLogsBefore(ctx, cutoff); err != nil {
		logging.L().Errorw("execution log prune failed", "err", err)
	} else if n > 0 {
		logging.L().Infow("execution logs pruned", "rows", n)
	}
}
