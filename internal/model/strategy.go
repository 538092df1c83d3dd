package model

import "time"

// DailyQuotas is the per-day action budget a strategy asks for. The quota
// tracker still caps the aggregate against platform limits.
type DailyQuotas struct {
	Follows   int `json:"follows" yaml:"follows"`
	Unfollows int `json:"unfollows" yaml:"unfollows"`
	Likes     int `json:"likes" yaml:"likes"`
	Retweets  int `json:"retweets" yaml:"retweets"`
	Replies   int `json:"replies" yaml:"replies"`
	Posts     int `json:"posts" yaml:"posts"`
}

// ActionTotals accumulates lifetime counts per action for a strategy.
type ActionTotals struct {
	Follows   int `json:"follows"`
	Unfollows int `json:"unfollows"`
	Likes     int `json:"likes"`
	Retweets  int `json:"retweets"`
	Replies   int `json:"replies"`
	Posts     int `json:"posts"`
}

// Strategy is a time-boxed plan of automated engagement aimed at follower
// growth.
type Strategy struct {
	ID      string `gorm:"primaryKey;type:varchar(36)"`
	OwnerID string `gorm:"type:varchar(36);index;not null"`
	Name    string `gorm:"type:varchar(255);not null"`

	Status    StrategyStatus `gorm:"type:varchar(32);index;not null"`
	StartDate time.Time      `gorm:"not null"`
	EndDate   time.Time      `gorm:"not null"`

	Daily  DailyQuotas  `gorm:"embedded;embeddedPrefix:daily_"`
	Totals ActionTotals `gorm:"embedded;embeddedPrefix:total_"`

	NicheKeywords  []string `gorm:"serializer:json"`
	TargetAccounts []string `gorm:"serializer:json"`

	StartingFollowers int `gorm:"not null;default:0"`
	CurrentFollowers  int `gorm:"not null;default:0"`
	FollowersGained   int `gorm:"not null;default:0"`

	EngagementStartHour int    `gorm:"not null;default:9"`
	EngagementEndHour   int    `gorm:"not null;default:22"`
	Timezone            string `gorm:"type:varchar(50);not null;default:UTC"`

	CharLimit            int      `gorm:"not null;default:280"`
	RequireReplyApproval bool     `gorm:"not null;default:false"`
	ReplyGuidelines      []string `gorm:"serializer:json"`
	CustomPrompt         string   `gorm:"type:text"`

	// Estimator output, persisted for display only.
	EstimatedResults *Estimate `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Strategy) TableName() string { return "strategies" }

// Expired reports whether the strategy's time box has elapsed.
func (s *Strategy) Expired(now time.Time) bool { return now.After(s.EndDate) }

func (s *Strategy) Activate() error {
	if !s.Status.CanTransitionTo(StrategyActive) {
		return &ErrIllegalTransition{From: string(s.Status), To: string(StrategyActive)}
	}
	s.Status = StrategyActive
	return nil
}

func (s *Strategy) Pause() error {
	if !s.Status.CanTransitionTo(StrategyPaused) {
		return &ErrIllegalTransition{From: string(s.Status), To: string(StrategyPaused)}
	}
	s.Status = StrategyPaused
	return nil
}

func (s *Strategy) Resume() error {
	if s.Status != StrategyPaused {
		return &ErrIllegalTransition{From: string(s.Status), To: string(StrategyActive)}
	}
	s.Status = StrategyActive
	return nil
}

func (s *Strategy) Cancel() error {
	if !s.Status.CanTransitionTo(StrategyCancelled) {
		return &ErrIllegalTransition{From: string(s.Status), To: string(StrategyCancelled)}
	}
	s.Status = StrategyCancelled
	return nil
}

func (s *Strategy) MarkCompleted() error {
	if !s.Status.CanTransitionTo(StrategyCompleted) {
		return &ErrIllegalTransition{From: string(s.Status), To: string(StrategyCompleted)}
	}
	s.Status = StrategyCompleted
	return nil
}

// RecordAction bumps the lifetime counter for one successful action.
func (s *Strategy) RecordAction(a Action) {
	switch a {
	case ActionFollow:
		s.Totals.Follows++
	case ActionUnfollow:
		s.Totals.Unfollows++
	case ActionLike:
		s.Totals.Likes++
	case ActionRetweet:
		s.Totals.Retweets++
	case ActionReply:
		s.Totals.Replies++
	case ActionPost:
		s.Totals.Posts++
	}
}

// UpdateFollowers refreshes the follower count and the gained delta.
func (s *Strategy) UpdateFollowers(count int) {
	s.CurrentFollowers = count
	s.FollowersGained = count - s.StartingFollowers
}

// Estimate is the growth estimator's projection for a strategy.
type Estimate struct {
	EstimatedNewFollowers   int         `json:"estimated_new_followers"`
	EstimatedTotalFollowers int         `json:"estimated_total_followers"`
	EstimatedEngagementRate float64     `json:"estimated_engagement_rate"`
	DailyGrowthRate         float64     `json:"daily_growth_rate"`
	TotalEngagements        int         `json:"total_engagements"`
	ConversionRate          float64     `json:"conversion_rate"`
	Milestones              []Milestone `json:"milestones"`
}

// Milestone is a projected follower count at a fixed day offset.
type Milestone struct {
	Day                int     `json:"day"`
	EstimatedFollowers int     `json:"estimated_followers"`
	TotalGained        int     `json:"total_gained"`
	GrowthPercentage   float64 `json:"growth_percentage"`
}
