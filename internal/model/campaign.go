package model

import "time"

// Campaign is a time-boxed recurring content plan around one topic. Its posts
// are created up front in AWAITING_GENERATION and filled in at posting time.
type Campaign struct {
	ID      string `gorm:"primaryKey;type:varchar(36)"`
	OwnerID string `gorm:"type:varchar(36);index;not null"`

	Name  string `gorm:"type:varchar(255);not null"`
	Topic string `gorm:"type:text;not null"`
	Tone  Tone   `gorm:"type:varchar(32);not null"`

	FrequencyPerDay int `gorm:"not null"`
	DurationDays    int `gorm:"not null"`
	TotalPosts      int `gorm:"not null"`
	PostsPublished  int `gorm:"not null;default:0"`
	PostsFailed     int `gorm:"not null;default:0"`

	StartDate        time.Time `gorm:"not null"`
	EndDate          time.Time `gorm:"not null"`
	PostingStartHour int       `gorm:"not null;default:9"`
	PostingEndHour   int       `gorm:"not null;default:21"`
	Timezone         string    `gorm:"type:varchar(50);not null;default:UTC"`

	Status CampaignStatus `gorm:"type:varchar(32);index;not null"`

	SearchEnabled      bool     `gorm:"not null;default:true"`
	SearchKeywords     []string `gorm:"serializer:json"`
	CustomInstructions string   `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Campaign) TableName() string { return "campaigns" }

// Remaining is how many posts are still unaccounted for.
func (c *Campaign) Remaining() int { return c.TotalPosts - c.PostsPublished - c.PostsFailed }

// Complete reports whether every post has reached a terminal outcome.
func (c *Campaign) Complete() bool { return c.PostsPublished+c.PostsFailed >= c.TotalPosts }

// Progress is the published fraction as a percentage.
func (c *Campaign) Progress() float64 {
	if c.TotalPosts == 0 {
		return 0
	}
	return float64(c.PostsPublished) / float64(c.TotalPosts) * 100
}

func (c *Campaign) Pause() error {
	if !c.Status.CanTransitionTo(CampaignPaused) {
		return &ErrIllegalTransition{From: string(c.Status), To: string(CampaignPaused)}
	}
	c.Status = CampaignPaused
	return nil
}

func (c *Campaign) Resume() error {
	if c.Status != CampaignPaused {
		return &ErrIllegalTransition{From: string(c.Status), To: string(CampaignActive)}
	}
	c.Status = CampaignActive
	return nil
}

func (c *Campaign) Cancel() error {
	if !c.Status.CanTransitionTo(CampaignCancelled) {
		return &ErrIllegalTransition{From: string(c.Status), To: string(CampaignCancelled)}
	}
	c.Status = CampaignCancelled
	return nil
}
