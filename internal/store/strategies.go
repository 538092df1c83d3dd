package store

import (
	"context"

	"gorm.io/gorm"

	"tempus/internal/model"
)

// Strategies persists growth strategies.
type Strategies struct {
	db *gorm.DB
}

func (r *Strategies) Create(ctx context.Context, s *model.Strategy) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Strategies) Get(ctx context.Context, id string) (*model.Strategy, error) {
	var s model.Strategy
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Strategies) Save(ctx context.Context, s *model.Strategy) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// ListActive returns every strategy in the ACTIVE state.
func (r *Strategies) ListActive(ctx context.Context) ([]*model.Strategy, error) {
	var ss []*model.Strategy
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StrategyActive).
		Find(&ss).Error
	return ss, err
}

func (r *Strategies) ListByOwner(ctx context.Context, ownerID string) ([]*model.Strategy, error) {
	var ss []*model.Strategy
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&ss).Error
	return ss, err
}
