package store

import (
	"context"

	"gorm.io/gorm"

	"tempus/internal/model"
)

// Campaigns persists content campaigns.
type Campaigns struct {
	db *gorm.DB
}

func (r *Campaigns) Create(ctx context.Context, c *model.Campaign) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Campaigns) Get(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Campaigns) Save(ctx context.Context, c *model.Campaign) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Settle atomically rolls one terminal post outcome into the campaign's
// counters and completes the campaign once every post is accounted for.
// Increments run on the row itself, not on a loaded copy, so two workers
// settling posts of the same campaign never lose an update.
func (r *Campaigns) Settle(ctx context.Context, id string, published bool) (*model.Campaign, error) {
	col := "posts_failed"
	if published {
		col = "posts_published"
	}
	err := r.db.WithContext(ctx).Model(&model.Campaign{}).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + 1")).Error
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(&model.Campaign{}).
		Where("id = ? AND status = ? AND posts_published + posts_failed >= total_posts",
			id, model.CampaignActive).
		Update("status", model.CampaignCompleted).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Campaigns) ListByOwner(ctx context.Context, ownerID string) ([]*model.Campaign, error) {
	var cs []*model.Campaign
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&cs).Error
	return cs, err
}
