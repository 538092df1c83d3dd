package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tempus/internal/campaign"
	"tempus/internal/config"
	"tempus/internal/growth"
	"tempus/internal/llm"
	"tempus/internal/logging"
	"tempus/internal/metrics"
	"tempus/internal/model"
	"tempus/internal/publish"
	"tempus/internal/queue"
	"tempus/internal/quota"
	"tempus/internal/scheduler"
	"tempus/internal/store"
	"tempus/internal/websearch"
	"tempus/internal/xclient"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "worker":
		cmdWorker()
	case "post":
		cmdPost()
	case "campaign":
		cmdCampaign()
	case "strategy":
		cmdStrategy()
	case "status":
		cmdStatus()
	case "retry":
		cmdRetry()
	case "approve":
		cmdApprove()
	default:
		printHelp()
	}
}

func printHelp() {
	fmt.Println("Usage: tempus <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./tempus.yaml")
	fmt.Println("  worker      Run the scheduler and task workers")
	fmt.Println("  post        Schedule a tweet or thread")
	fmt.Println("  campaign    Create a content campaign")
	fmt.Println("  strategy    Create a growth strategy")
	fmt.Println("  status      Show today's quota usage")
	fmt.Println("  retry       Re-queue a failed post")
	fmt.Println("  approve     Approve a drafted reply")
}

func fatal(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

type app struct {
	cfg   config.Config
	store *store.Store
}

func openApp(cfgPath string) *app {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(err)
	}
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		fatal(err)
	}
	return &app{cfg: cfg, store: st}
}

func (a *app) client() *xclient.HTTPClient {
	if a.cfg.Credentials.BearerToken == "" {
		fmt.Println("warning: missing X_BEARER_TOKEN; API calls will fail")
	}
	return xclient.NewHTTPClient(a.cfg.Credentials.BearerToken, a.cfg.Credentials.UserToken)
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./tempus.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		fatal(err)
	}
	abs, _ := filepath.Abs(*path)
	fmt.Println("Config written to:", abs)
}

func cmdWorker() {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	cfgPath := fs.String("config", "./tempus.yaml", "config path")
	production := fs.Bool("production", false, "JSON logs")
	_ = fs.Parse(os.Args[2:])

	if err := logging.Init(*production); err != nil {
		fatal(err)
	}
	defer logging.Sync()

	a := openApp(*cfgPath)
	defer a.store.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	defer rdb.Close()

	client := a.client()
	tracker := quota.NewTracker(a.store.Quota)
	generator := llm.New(a.cfg.LLM.BaseURL, a.cfg.LLM.APIKey, a.cfg.LLM.Model)
	searcher := websearch.New(a.cfg.Search.APIKey)

	publisher := publish.New(a.store, client, tracker)
	campaigns := campaign.NewService(a.store, generator, searcher, publisher)
	strategies := growth.NewService(a.store, client, generator, tracker, a.cfg.Engine.EngagementBatch)

	q := queue.New(rdb)
	q.Register(publish.TaskPublish, publisher.HandlePublish)
	q.Register(campaign.TaskCampaignPost, campaigns.HandlePost)
	q.Register(growth.TaskEngage, strategies.HandleEngage)

	metrics.StartServer(a.cfg.MetricsAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(a.store, q, a.cfg.Engine)
	if err := sched.Start(ctx); err != nil {
		fatal(err)
	}
	defer sched.Stop()

	logging.L().Infow("worker up", "workers", a.cfg.Engine.Workers)
	if err := q.Run(ctx, a.cfg.Engine.Workers); err != nil {
		logging.L().Errorw("worker stopped", "err", err)
	}
}

func cmdPost() {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	cfgPath := fs.String("config", "./tempus.yaml", "config path")
	owner := fs.String("owner", "default", "owner id")
	content := fs.String("content", "", "tweet text")
	thread := fs.String("thread", "", "thread parts separated by ||")
	at := fs.String("at", "", "RFC3339 time to post, empty for now")
	_ = fs.Parse(os.Args[2:])

	a := openApp(*cfgPath)
	defer a.store.Close()

	when := time.Now()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fatal(err)
		}
		when = t
	}
	p := &model.Post{
		ID:           uuid.NewString(),
		OwnerID:      *owner,
		Content:      *content,
		ScheduledFor: when,
		Status:       model.PostPending,
		MaxRetries:   3,
	}
	if *thread != "" {
		p.IsThread = true
		p.ThreadParts = strings.Split(*thread, "||")
		if p.Content == "" {
			p.Content = p.ThreadParts[0]
		}
	}
	if p.Content == "" {
		fatal(fmt.Errorf("empty content"))
	}
	if err := a.store.Posts.Create(context.Background(), p); err != nil {
		fatal(err)
	}
	fmt.Println("Post scheduled:", p.ID, "at", p.ScheduledFor.Format(time.RFC3339))
}

func cmdCampaign() {
	fs := flag.NewFlagSet("campaign", flag.ExitOnError)
	cfgPath := fs.String("config", "./tempus.yaml", "config path")
	owner := fs.String("owner", "default", "owner id")
	name := fs.String("name", "", "campaign name")
	topic := fs.String("topic", "", "campaign topic")
	tone := fs.String("tone", "casual", "professional|casual|viral|thought_leadership")
	freq := fs.Int("frequency", 2, "posts per day")
	days := fs.Int("days", 7, "duration in days")
	search := fs.Bool("search", true, "research topics before generating")
	keywords := fs.String("keywords", "", "comma-separated search keywords")
	_ = fs.Parse(os.Args[2:])

	a := openApp(*cfgPath)
	defer a.store.Close()

	svc := campaign.NewService(a.store, nil, nil, nil)
	c, err := svc.Create(context.Background(), campaign.CreateParams{
		OwnerID:          *owner,
		Name:             *name,
		Topic:            *topic,
		Tone:             model.Tone(*tone),
		FrequencyPerDay:  *freq,
		DurationDays:     *days,
		PostingStartHour: a.cfg.Engine.PostingStartHour,
		PostingEndHour:   a.cfg.Engine.PostingEndHour,
		SearchEnabled:    *search,
		SearchKeywords:   splitList(*keywords),
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Campaign %s created: %d posts over %d days\n", c.ID, c.TotalPosts, c.DurationDays)
}

func cmdStrategy() {
	fs := flag.NewFlagSet("strategy", flag.ExitOnError)
	cfgPath := fs.String("config", "./tempus.yaml", "config path")
	owner := fs.String("owner", "default", "owner id")
	name := fs.String("name", "", "strategy name")
	days := fs.Int("days", 30, "duration in days")
	keywords := fs.String("keywords", "", "comma-separated niche keywords")
	accounts := fs.String("accounts", "", "comma-separated target accounts")
	follows := fs.Int("follows", 40, "daily follows")
	likes := fs.Int("likes", 100, "daily likes")
	retweets := fs.Int("retweets", 10, "daily retweets")
	replies := fs.Int("replies", 10, "daily replies")
	approval := fs.Bool("approve-replies", false, "hold drafted replies for approval")
	_ = fs.Parse(os.Args[2:])

	a := openApp(*cfgPath)
	defer a.store.Close()

	svc := growth.NewService(a.store, a.client(), llm.New(a.cfg.LLM.BaseURL, a.cfg.LLM.APIKey, a.cfg.LLM.Model),
		quota.NewTracker(a.store.Quota), a.cfg.Engine.EngagementBatch)
	st, err := svc.Create(context.Background(), growth.CreateParams{
		OwnerID:      *owner,
		Name:         *name,
		DurationDays: *days,
		Daily: model.DailyQuotas{
			Follows: *follows, Likes: *likes, Retweets: *retweets, Replies: *replies,
		},
		NicheKeywords:        splitList(*keywords),
		TargetAccounts:       splitList(*accounts),
		RequireReplyApproval: *approval,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println("Strategy created:", st.ID)
	if est := st.EstimatedResults; est != nil {
		fmt.Printf("Estimated: +%d followers (%.1f%% daily growth)\n", est.EstimatedNewFollowers, est.DailyGrowthRate)
		for _, m := range est.Milestones {
			fmt.Printf("  day %d: %d followers (+%d)\n", m.Day, m.EstimatedFollowers, m.TotalGained)
		}
	}
}

func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fs.String("config", "./tempus.yaml", "config path")
	owner := fs.String("owner", "default", "owner id")
	_ = fs.Parse(os.Args[2:])

	a := openApp(*cfgPath)
	defer a.store.Close()

	report, err := quota.NewTracker(a.store.Quota).Report(context.Background(), *owner)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Quota usage for %s (%s):\n", *owner, model.QuotaDay(time.Now()))
	for _, u := range report {
		marker := ""
		if u.Percent >= quota.PauseThreshold*100 {
			marker = "  <- slow down"
		}
		fmt.Printf("  %-9s %4d / %4d  (%.1f%%)%s\n", u.Action, u.Used, u.Ceiling, u.Percent, marker)
	}
}

func cmdRetry() {
	fs := flag.NewFlagSet("retry", flag.ExitOnError)
	cfgPath := fs.String("config", "./tempus.yaml", "config path")
	postID := fs.String("post", "", "failed post id")
	_ = fs.Parse(os.Args[2:])
	if *postID == "" {
		fatal(fmt.Errorf("missing -post"))
	}

	a := openApp(*cfgPath)
	defer a.store.Close()

	pub := publish.New(a.store, a.client(), quota.NewTracker(a.store.Quota))
	if err := pub.RetryFailed(context.Background(), *postID); err != nil {
		fatal(err)
	}
	fmt.Println("Post queued for retry:", *postID)
}

func cmdApprove() {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	cfgPath := fs.String("config", "./tempus.yaml", "config path")
	targetID := fs.String("target", "", "engagement target id")
	_ = fs.Parse(os.Args[2:])
	if *targetID == "" {
		fatal(fmt.Errorf("missing -target"))
	}

	a := openApp(*cfgPath)
	defer a.store.Close()

	svc := growth.NewService(a.store, a.client(), nil, quota.NewTracker(a.store.Quota), 0)
	if err := svc.ApproveReply(context.Background(), *targetID); err != nil {
		fatal(err)
	}
	fmt.Println("Reply approved:", *targetID)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
