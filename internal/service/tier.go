package service

import (
	"context"
	"encoding/json"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
)

const fallbackTier = "basic"

// Quota is the effective entitlement of one user at one instant,
// derived from the tier table and the subscription state.
type Quota struct {
	Tier           string
	PriorityWeight int
	StorageLimitGb float64
	// MaxVisibility is the highest model class the tier can use.
	MaxVisibility model.ModelVisibility
}

type TierService interface {
	ListTiers(ctx context.Context) ([]v1.TierConfigItem, error)
	GetTier(ctx context.Context, key string) (*model.TierConfig, error)
	// QuotaFor resolves the user's effective quota. A subscription
	// past its expiry counts as basic immediately, even before the
	// sweep job has flipped the rows.
	QuotaFor(ctx context.Context, user *model.User) (Quota, error)
}

func NewTierService(
	service *Service,
	tierRepo repository.TierConfigRepository,
	subscriptionRepo repository.SubscriptionRepository,
) TierService {
	return &tierService{
		Service:          service,
		tierRepo:         tierRepo,
		subscriptionRepo: subscriptionRepo,
	}
}

type tierService struct {
	*Service
	tierRepo         repository.TierConfigRepository
	subscriptionRepo repository.SubscriptionRepository
}

func (s *tierService) ListTiers(ctx context.Context) ([]v1.TierConfigItem, error) {
	tiers, err := s.tierRepo.List(ctx)
	if err != nil {
		s.logger.WithContext(ctx).Error("tier list failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	items := make([]v1.TierConfigItem, 0, len(tiers))
	for _, tier := range tiers {
		var features []string
		if tier.Features != "" {
			if err := json.Unmarshal([]byte(tier.Features), &features); err != nil {
				s.logger.WithContext(ctx).Warn("tier features corrupt",
					zap.String("tier", tier.Key), zap.Error(err))
			}
		}
		items = append(items, v1.TierConfigItem{
			Key:      tier.Key,
			Label:    tier.Label,
			Color:    tier.Color,
			Price:    tier.Price,
			Features: features,
			Popular:  tier.Popular,
		})
	}
	return items, nil
}

func (s *tierService) GetTier(ctx context.Context, key string) (*model.TierConfig, error) {
	return s.tierRepo.GetByKey(ctx, key)
}

func (s *tierService) QuotaFor(ctx context.Context, user *model.User) (Quota, error) {
	effective := user.Tier
	if effective == "" {
		effective = fallbackTier
	}

	if effective != fallbackTier {
		sub, err := s.subscriptionRepo.GetCurrentByUserID(ctx, user.Id)
		if err != nil {
			return Quota{}, err
		}
		if sub != nil && sub.Tier == effective {
			expired := sub.Status != model.SubscriptionStatusActive || !sub.ExpiresAt.After(time.Now())
			if expired {
				effective = fallbackTier
			}
		}
	}

	tier, err := s.tierRepo.GetByKey(ctx, effective)
	if err != nil {
		return Quota{}, err
	}
	if tier == nil {
		// Unknown tier key, fall back to the floor entitlement.
		return Quota{
			Tier:           fallbackTier,
			PriorityWeight: 0,
			StorageLimitGb: 5,
			MaxVisibility:  model.ModelVisibilityBase,
		}, nil
	}
	maxVisibility := model.ModelVisibility(tier.Visibility)
	if maxVisibility == "" {
		maxVisibility = model.ModelVisibilityBase
	}
	return Quota{
		Tier:           tier.Key,
		PriorityWeight: tier.PriorityWeight,
		StorageLimitGb: tier.StorageLimitGb,
		MaxVisibility:  maxVisibility,
	}, nil
}
