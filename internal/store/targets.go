package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tempus/internal/model"
)

// Targets persists engagement targets and the engagement audit log.
type Targets struct {
	db *gorm.DB
}

// CreateIgnoreDuplicate inserts a target unless one with the same
// (strategy, identity) pair already exists. Returns true when inserted.
func (r *Targets) CreateIgnoreDuplicate(ctx context.Context, t *model.EngagementTarget) (bool, error) {
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(t)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *Targets) Get(ctx context.Context, id string) (*model.EngagementTarget, error) {
	var t model.EngagementTarget
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Targets) Save(ctx context.Context, t *model.EngagementTarget) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// DuePending returns the next batch of executable targets for a strategy,
// highest priority first, oldest schedule first within a priority.
func (r *Targets) DuePending(ctx context.Context, strategyID string, now time.Time, limit int) ([]*model.EngagementTarget, error) {
	var ts []*model.EngagementTarget
	err := r.db.WithContext(ctx).
		Where("strategy_id = ? AND status = ? AND scheduled_for <= ?",
			strategyID, model.TargetPending, now).
		Order("priority asc").
		Order("scheduled_for asc").
		Limit(limit).
		Find(&ts).Error
	return ts, err
}

// CountPending counts targets still waiting to be executed.
func (r *Targets) CountPending(ctx context.Context, strategyID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EngagementTarget{}).
		Where("strategy_id = ? AND status = ?", strategyID, model.TargetPending).
		Count(&n).Error
	return n, err
}

// PendingReplies returns targets whose drafted reply awaits user approval.
func (r *Targets) PendingReplies(ctx context.Context, strategyID string) ([]*model.EngagementTarget, error) {
	var ts []*model.EngagementTarget
	err := r.db.WithContext(ctx).
		Where("strategy_id = ? AND status = ? AND should_reply = ? AND reply_text <> '' AND reply_approved = ?",
			strategyID, model.TargetPending, true, false).
		Order("scheduled_for asc").
		Find(&ts).Error
	return ts, err
}

// EngagementLogs is the append-only record of executed actions.
type EngagementLogs struct {
	db *gorm.DB
}

func (r *EngagementLogs) Append(ctx context.Context, e *model.EngagementLogEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// CountSince counts successful actions of one kind for a strategy since a
// point in time.
func (r *EngagementLogs) CountSince(ctx context.Context, strategyID string, action model.Action, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EngagementLogEntry{}).
		Where("strategy_id = ? AND action = ? AND success = ? AND created_at >= ?",
			strategyID, action, true, since).
		Count(&n).Error
	return n, err
}

func (r *EngagementLogs) Recent(ctx context.Context, strategyID string, limit int) ([]*model.EngagementLogEntry, error) {
	var es []*model.EngagementLogEntry
	err := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("created_at desc").
		Limit(limit).
		Find(&es).Error
	return es, err
}
