package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tempus/internal/model"
)

// Posts persists scheduled posts and their execution history.
type Posts struct {
	db *gorm.DB
}

func (r *Posts) Create(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Posts) CreateBatch(ctx context.Context, ps []*model.Post) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(ps).Error
}

func (r *Posts) Get(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Posts) Save(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// DueDirect returns user-authored posts whose scheduled time has arrived,
// oldest first, bounded by limit.
func (r *Posts) DueDirect(ctx context.Context, now time.Time, limit int) ([]*model.Post, error) {
	var ps []*model.Post
	err := r.db.WithContext(ctx).
		Where("is_campaign_post = ? AND status IN ? AND scheduled_for <= ?",
			false, []model.PostStatus{model.PostPending, model.PostRetrying}, now).
		Order("scheduled_for asc").
		Limit(limit).
		Find(&ps).Error
	return ps, err
}

// DueCampaign returns campaign posts ready for the generate-and-publish
// pipeline, oldest first, bounded by limit.
func (r *Posts) DueCampaign(ctx context.Context, now time.Time, limit int) ([]*model.Post, error) {
	var ps []*model.Post
	err := r.db.WithContext(ctx).
		Where("is_campaign_post = ? AND status IN ? AND scheduled_for <= ?",
			true, []model.PostStatus{model.PostAwaitingGeneration, model.PostPending, model.PostRetrying}, now).
		Order("scheduled_for asc").
		Limit(limit).
		Find(&ps).Error
	return ps, err
}

// ClaimPosting atomically moves a post into POSTING if it is still in one of
// the claimable states. Returns false when another worker got there first or
// the post was cancelled in the meantime.
func (r *Posts) ClaimPosting(ctx context.Context, id string, now time.Time) (bool, error) {
	claimable := []model.PostStatus{model.PostAwaitingGeneration, model.PostPending, model.PostRetrying}
	tx := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND status IN ?", id, claimable).
		Updates(map[string]any{"status": model.PostPosting, "last_attempt_at": now})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// CancelPendingByCampaign cancels every not-yet-started post of a campaign and
// returns how many were withdrawn.
func (r *Posts) CancelPendingByCampaign(ctx context.Context, campaignID string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("campaign_id = ? AND status IN ?", campaignID,
			[]model.PostStatus{model.PostAwaitingGeneration, model.PostPending, model.PostRetrying}).
		Update("status", model.PostCancelled)
	return tx.RowsAffected, tx.Error
}

func (r *Posts) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Post, error) {
	var ps []*model.Post
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("scheduled_for asc").
		Find(&ps).Error
	return ps, err
}

func (r *Posts) AddLog(ctx context.Context, l *model.ExecutionLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Posts) SaveLog(ctx context.Context, l *model.ExecutionLog) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *Posts) LogsByPost(ctx context.Context, postID string) ([]*model.ExecutionLog, error) {
	var ls []*model.ExecutionLog
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("attempt_number asc").
		Find(&ls).Error
	return ls, err
}

// PruneLogsBefore deletes execution history older than cutoff.
func (r *Posts) PruneLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.ExecutionLog{})
	return tx.RowsAffected, tx.Error
}
