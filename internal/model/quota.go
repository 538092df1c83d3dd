package model

import "time"

// QuotaCounter is one row per owner per calendar day tracking quota-consuming
// actions. Rows are created lazily and never mutated after the day rolls over;
// a housekeeping job prunes them after a week.
type QuotaCounter struct {
	ID      string `gorm:"primaryKey;type:varchar(36)"`
	OwnerID string `gorm:"type:varchar(36);index:idx_quota_owner_day,unique;not null"`
	// Day is the UTC calendar date in YYYY-MM-DD form.
	Day string `gorm:"type:varchar(10);index:idx_quota_owner_day,unique;not null"`

	Follows   int `gorm:"not null;default:0"`
	Unfollows int `gorm:"not null;default:0"`
	Likes     int `gorm:"not null;default:0"`
	Posts     int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (QuotaCounter) TableName() string { return "quota_counters" }

// Count returns the stored count for a quota bucket.
func (q *QuotaCounter) Count(a Action) int {
	switch a.QuotaBucket() {
	case ActionFollow:
		return q.Follows
	case ActionUnfollow:
		return q.Unfollows
	case ActionLike:
		return q.Likes
	case ActionPost:
		return q.Posts
	}
	return 0
}

// QuotaDay formats t as the counter's UTC day key.
func QuotaDay(t time.Time) string { return t.UTC().Format("2006-01-02") }
