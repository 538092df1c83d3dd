package model

import "time"

// EngagementTarget is a discovered account or tweet earmarked for one or more
// engagement actions. Created by discovery, consumed exactly once by the
// executor; a tweet target may succeed partially across its actions.
type EngagementTarget struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	StrategyID string     `gorm:"type:varchar(36);index:idx_target_strategy;index:idx_target_identity,unique;not null"`
	Kind       TargetKind `gorm:"type:varchar(16);not null"`

	// Platform identity. For accounts the username is always set and the user
	// id may be resolved lazily; for tweets the tweet id is the identity.
	// idx_target_identity = (strategy_id, identity) guards against duplicate
	// discovery of the same account or tweet.
	Identity       string `gorm:"type:varchar(128);index:idx_target_identity,unique;not null"`
	PlatformUserID string `gorm:"type:varchar(64)"`
	Username       string `gorm:"type:varchar(64)"`
	FollowerCount  int
	FollowingCount int
	Bio            string `gorm:"type:text"`

	TweetID           string `gorm:"type:varchar(64)"`
	TweetAuthor       string `gorm:"type:varchar(64)"`
	TweetAuthorID     string `gorm:"type:varchar(64)"`
	TweetContent      string `gorm:"type:text"`
	TweetLikeCount    int
	TweetRetweetCount int

	ShouldFollow  bool `gorm:"not null;default:false"`
	ShouldLike    bool `gorm:"not null;default:false"`
	ShouldRetweet bool `gorm:"not null;default:false"`
	ShouldReply   bool `gorm:"not null;default:false"`

	ReplyText     string `gorm:"type:text"`
	ReplyApproved bool   `gorm:"not null;default:false"`

	Status       TargetStatus `gorm:"type:varchar(16);index;not null"`
	ScheduledFor time.Time    `gorm:"index;not null"`
	ExecutedAt   *time.Time
	ErrorMessage string `gorm:"type:text"`

	RelevanceScore float64 `gorm:"not null;default:0"`
	Priority       int     `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EngagementTarget) TableName() string { return "engagement_targets" }

func (t *EngagementTarget) MarkCompleted(now time.Time) {
	t.Status = TargetCompleted
	t.ExecutedAt = &now
}

func (t *EngagementTarget) MarkFailed(reason string, now time.Time) {
	t.Status = TargetFailed
	t.ErrorMessage = reason
	t.ExecutedAt = &now
}

func (t *EngagementTarget) MarkSkipped(reason string, now time.Time) {
	t.Status = TargetSkipped
	t.ErrorMessage = reason
	t.ExecutedAt = &now
}

// EngagementLogEntry is the append-only audit trail of one action attempt.
type EngagementLogEntry struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	StrategyID string `gorm:"type:varchar(36);index;not null"`
	Action     Action `gorm:"type:varchar(16);index;not null"`

	PlatformUserID string `gorm:"type:varchar(64)"`
	Username       string `gorm:"type:varchar(64)"`
	TweetID        string `gorm:"type:varchar(64)"`

	Success      bool   `gorm:"not null;default:false"`
	ErrorMessage string `gorm:"type:text"`

	ReplyText    string `gorm:"type:text"`
	ReplyTweetID string `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"index"`
}

func (EngagementLogEntry) TableName() string { return "engagement_logs" }
