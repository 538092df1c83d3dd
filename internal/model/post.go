package model

import (
	"fmt"
	"time"
)

// ErrIllegalTransition is returned when a status change violates the
// transition table. Callers treat it as a no-op for absorbing states.
type ErrIllegalTransition struct {
	From, To string
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// Post is one schedulable tweet or thread, user-authored or campaign-generated.
type Post struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	OwnerID    string `gorm:"type:varchar(36);index;not null"`
	CampaignID string `gorm:"type:varchar(36);index"`

	Content     string   `gorm:"type:text;not null"`
	IsThread    bool     `gorm:"not null;default:false"`
	ThreadParts []string `gorm:"serializer:json"`

	// Campaign posts start without content; it is generated at posting time.
	IsCampaignPost   bool `gorm:"not null;default:false"`
	ContentGenerated bool `gorm:"not null;default:false"`

	ScheduledFor time.Time  `gorm:"index;not null"`
	Status       PostStatus `gorm:"type:varchar(32);index;not null"`
	RetryCount   int        `gorm:"not null;default:0"`
	MaxRetries   int        `gorm:"not null;default:3"`

	PostedAt        *time.Time
	PlatformPostID  string   `gorm:"type:varchar(64);index"`
	PlatformIDs     []string `gorm:"serializer:json"`
	LastError       string   `gorm:"type:text"`
	LastAttemptAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Post) TableName() string { return "posts" }

// Due reports whether the post should be picked up by a due-scan.
func (p *Post) Due(now time.Time) bool {
	switch p.Status {
	case PostPending, PostRetrying, PostAwaitingGeneration:
		return !p.ScheduledFor.After(now)
	}
	return false
}

// CanRetry reports whether another automatic attempt is allowed.
func (p *Post) CanRetry() bool {
	return (p.Status == PostFailed || p.Status == PostRetrying) && p.RetryCount < p.MaxRetries
}

// MarkPosting transitions into the in-flight state. The persisted form of
// this transition is the conditional update in store.Posts.ClaimPosting; this
// method keeps in-memory copies consistent.
func (p *Post) MarkPosting(now time.Time) error {
	if !p.Status.CanTransitionTo(PostPosting) {
		return &ErrIllegalTransition{From: string(p.Status), To: string(PostPosting)}
	}
	p.Status = PostPosting
	p.LastAttemptAt = &now
	return nil
}

// MarkPosted records a successful publish. POSTED is absorbing.
func (p *Post) MarkPosted(platformID string, threadIDs []string, now time.Time) error {
	if !p.Status.CanTransitionTo(PostPosted) {
		return &ErrIllegalTransition{From: string(p.Status), To: string(PostPosted)}
	}
	p.Status = PostPosted
	p.PostedAt = &now
	p.PlatformPostID = platformID
	if len(threadIDs) > 0 {
		p.PlatformIDs = threadIDs
	}
	p.LastError = ""
	return nil
}

// MarkFailed records a failed attempt. While retries remain the post goes
// back to RETRYING and becomes eligible for the next due-scan; once the
// budget is spent it goes terminal FAILED.
func (p *Post) MarkFailed(errMsg string) error {
	if p.Status.Terminal() {
		return &ErrIllegalTransition{From: string(p.Status), To: string(PostFailed)}
	}
	p.LastError = errMsg
	if p.RetryCount < p.MaxRetries {
		p.RetryCount++
		p.Status = PostRetrying
	} else {
		p.Status = PostFailed
	}
	return nil
}

// MarkRateLimited keeps the post retryable without consuming a retry slot.
// A platform 429 is expected operational backpressure, not a content failure.
func (p *Post) MarkRateLimited(errMsg string) error {
	if !p.Status.CanTransitionTo(PostRetrying) && p.Status != PostRetrying {
		return &ErrIllegalTransition{From: string(p.Status), To: string(PostRetrying)}
	}
	p.LastError = errMsg
	p.Status = PostRetrying
	return nil
}

// Cancel withdraws a post that has not started publishing.
func (p *Post) Cancel() error {
	if !p.Status.CanTransitionTo(PostCancelled) {
		return &ErrIllegalTransition{From: string(p.Status), To: string(PostCancelled)}
	}
	p.Status = PostCancelled
	return nil
}

// ResetForManualRetry puts a terminal FAILED post back into RETRYING for one
// user-requested attempt, regardless of the retry counter.
func (p *Post) ResetForManualRetry() error {
	if p.Status != PostFailed {
		return &ErrIllegalTransition{From: string(p.Status), To: string(PostRetrying)}
	}
	p.Status = PostRetrying
	return nil
}

// ExecutionLog is one publish attempt, kept as user-visible history.
type ExecutionLog struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	PostID        string `gorm:"type:varchar(36);index;not null"`
	AttemptNumber int    `gorm:"not null"`
	StartedAt     time.Time
	CompletedAt   *time.Time
	Success       bool   `gorm:"not null;default:false"`
	Response      string `gorm:"type:text"`
	ErrorMessage  string `gorm:"type:text"`
	ErrorCode     string `gorm:"type:varchar(64)"`
	CreatedAt     time.Time
}

func (ExecutionLog) TableName() string { return "execution_logs" }

// Complete fills in the outcome of the attempt.
func (l *ExecutionLog) Complete(success bool, response, errMsg, errCode string, now time.Time) {
	l.CompletedAt = &now
	l.Success = success
	l.Response = response
	l.ErrorMessage = errMsg
	l.ErrorCode = errCode
}
