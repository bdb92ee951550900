package repository

import (
	"context"
	"errors"
	"time"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	Update(ctx context.Context, sub *model.Subscription) error
	// GetCurrentByUserID returns the newest subscription row for the
	// user regardless of status, nil when the user never subscribed.
	GetCurrentByUserID(ctx context.Context, userId int64) (*model.Subscription, error)
	// ListExpiredActive returns active subscriptions whose expires_at
	// is in the past, for the sweep job.
	ListExpiredActive(ctx context.Context, now time.Time) ([]*model.Subscription, error)
}

func NewSubscriptionRepository(r *Repository) SubscriptionRepository {
	return &subscriptionRepository{Repository: r}
}

type subscriptionRepository struct {
	*Repository
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.DB(ctx).Create(sub).Error
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	return r.DB(ctx).Save(sub).Error
}

func (r *subscriptionRepository) GetCurrentByUserID(ctx context.Context, userId int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.DB(ctx).Where("user_id = ?", userId).
		Order("started_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.DB(ctx).
		Where("status = ? AND expires_at < ?", model.SubscriptionStatusActive, now).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
