package repository

import (
	"context"
	"errors"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

type TierConfigRepository interface {
	List(ctx context.Context) ([]*model.TierConfig, error)
	GetByKey(ctx context.Context, key string) (*model.TierConfig, error)
	Save(ctx context.Context, tier *model.TierConfig) error
}

func NewTierConfigRepository(r *Repository) TierConfigRepository {
	return &tierConfigRepository{Repository: r}
}

type tierConfigRepository struct {
	*Repository
}

func (r *tierConfigRepository) List(ctx context.Context) ([]*model.TierConfig, error) {
	var tiers []*model.TierConfig
	if err := r.DB(ctx).Order("price_amount ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *tierConfigRepository) GetByKey(ctx context.Context, key string) (*model.TierConfig, error) {
	var tier model.TierConfig
	if err := r.DB(ctx).Where("tier_key = ?", key).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *tierConfigRepository) Save(ctx context.Context, tier *model.TierConfig) error {
	return r.DB(ctx).Save(tier).Error
}
