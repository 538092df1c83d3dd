package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tempus/internal/model"
)

// QuotaCounters persists the per-owner per-day action counters. The increment
// path is a conditional UPDATE so concurrent workers can never push a counter
// past its ceiling.
type QuotaCounters struct {
	db *gorm.DB
}

func quotaColumn(a model.Action) string {
	switch a.QuotaBucket() {
	case model.ActionFollow:
		return "follows"
	case model.ActionUnfollow:
		return "unfollows"
	case model.ActionLike:
		return "likes"
	default:
		return "posts"
	}
}

// Get returns the counter row for an owner and day, zero-valued if absent.
func (r *QuotaCounters) Get(ctx context.Context, ownerID, day string) (*model.QuotaCounter, error) {
	var q model.QuotaCounter
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND day = ?", ownerID, day).
		First(&q).Error
	if err == gorm.ErrRecordNotFound {
		return &model.QuotaCounter{OwnerID: ownerID, Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// TryConsume increments the bucket for action if doing so keeps the count
// under ceiling. Returns false without mutating anything when the ceiling is
// already reached. Safe under concurrent callers.
func (r *QuotaCounters) TryConsume(ctx context.Context, ownerID, day string, action model.Action, ceiling int) (bool, error) {
	if ceiling <= 0 {
		return false, nil
	}
	// Ensure the day's row exists; losing the race to another worker is fine.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.QuotaCounter{ID: uuid.NewString(), OwnerID: ownerID, Day: day}).Error
	if err != nil {
		return false, err
	}
	col := quotaColumn(action)
	tx := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("UPDATE quota_counters SET %s = %s + 1 WHERE owner_id = ? AND day = ? AND %s < ?", col, col, col),
		ownerID, day, ceiling,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// PruneBefore deletes counter rows for days strictly before the given day key.
func (r *QuotaCounters) PruneBefore(ctx context.Context, day string) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("day < ?", day).
		Delete(&model.QuotaCounter{})
	return tx.RowsAffected, tx.Error
}
