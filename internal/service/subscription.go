package service

import (
	"context"
	"errors"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/ledger"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
)

const subscriptionPeriod = 30 * 24 * time.Hour

type SubscriptionService interface {
	GetCurrent(ctx context.Context, userId int64) (*v1.SubscriptionResponse, error)
	// Upgrade moves the user to a higher-priced tier, charging the
	// monthly price against the balance.
	Upgrade(ctx context.Context, userId int64, targetTier string) (*v1.SubscriptionResponse, error)
	// SweepExpired flips expired-but-active subscriptions and drops
	// their users to basic. Run periodically; reads are already
	// immune via QuotaFor.
	SweepExpired(ctx context.Context) error
}

func NewSubscriptionService(
	service *Service,
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	tierService TierService,
	ledger *ledger.Ledger,
	syslog SystemLogService,
) SubscriptionService {
	return &subscriptionService{
		Service:          service,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		tierService:      tierService,
		ledger:           ledger,
		syslog:           syslog,
	}
}

type subscriptionService struct {
	*Service
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository
	tierService      TierService
	ledger           *ledger.Ledger
	syslog           SystemLogService
}

func (s *subscriptionService) GetCurrent(ctx context.Context, userId int64) (*v1.SubscriptionResponse, error) {
	sub, err := s.subscriptionRepo.GetCurrentByUserID(ctx, userId)
	if err != nil {
		s.logger.WithContext(ctx).Error("subscription read failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	if sub == nil {
		// Never subscribed: synthesize the implicit basic membership.
		return &v1.SubscriptionResponse{
			Tier:   fallbackTier,
			Status: string(model.SubscriptionStatusActive),
		}, nil
	}
	status := sub.Status
	if status == model.SubscriptionStatusActive && !sub.ExpiresAt.After(time.Now()) {
		status = model.SubscriptionStatusExpired
	}
	return &v1.SubscriptionResponse{
		Tier:      sub.Tier,
		Status:    string(status),
		StartedAt: sub.StartedAt.Format(time.RFC3339),
		ExpiresAt: sub.ExpiresAt.Format(time.RFC3339),
		AutoRenew: sub.AutoRenew,
	}, nil
}

func (s *subscriptionService) Upgrade(ctx context.Context, userId int64, targetTier string) (*v1.SubscriptionResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if user == nil {
		return nil, v1.ErrNotFound
	}

	target, err := s.tierService.GetTier(ctx, targetTier)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if target == nil {
		return nil, v1.ErrInvalidTierTransition
	}

	quota, err := s.tierService.QuotaFor(ctx, user)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	current, err := s.tierService.GetTier(ctx, quota.Tier)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if current != nil && target.PriceAmount <= current.PriceAmount {
		return nil, v1.ErrInvalidTierTransition
	}

	// Charge first. A failed debit leaves no subscription row behind.
	if err := s.ledger.Debit(ctx, userId, target.PriceAmount); err != nil {
		if errors.Is(err, v1.ErrInsufficientFunds) {
			return nil, v1.ErrInsufficientFunds
		}
		return nil, err
	}

	now := time.Now()
	sub := &model.Subscription{
		UserId:    userId,
		Tier:      target.Key,
		Status:    model.SubscriptionStatusActive,
		StartedAt: now,
		ExpiresAt: now.Add(subscriptionPeriod),
		AutoRenew: false,
	}
	err = s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
			return err
		}
		user.Tier = target.Key
		if target.StorageLimitGb > 0 {
			user.StorageLimit = target.StorageLimitGb
		}
		return s.userRepo.Update(ctx, user)
	})
	if err != nil {
		// Roll the charge back; the subscription never materialized.
		if cerr := s.ledger.Credit(ctx, userId, target.PriceAmount, "subscription_rollback"); cerr != nil {
			s.logger.WithContext(ctx).Error("subscription rollback credit failed",
				zap.Int64("user_id", userId), zap.Error(cerr))
		}
		s.logger.WithContext(ctx).Error("subscription upgrade failed",
			zap.Int64("user_id", userId), zap.String("target", targetTier), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}

	s.syslog.Record(ctx, "info", "billing",
		"subscription upgraded to "+target.Key, &userId, user.Username)
	return &v1.SubscriptionResponse{
		Tier:      sub.Tier,
		Status:    string(sub.Status),
		StartedAt: sub.StartedAt.Format(time.RFC3339),
		ExpiresAt: sub.ExpiresAt.Format(time.RFC3339),
		AutoRenew: sub.AutoRenew,
	}, nil
}

func (s *subscriptionService) SweepExpired(ctx context.Context) error {
	expired, err := s.subscriptionRepo.ListExpiredActive(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, sub := range expired {
		sub := sub
		err := s.tm.Transaction(ctx, func(ctx context.Context) error {
			sub.Status = model.SubscriptionStatusExpired
			if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
				return err
			}
			user, err := s.userRepo.GetByID(ctx, sub.UserId)
			if err != nil || user == nil {
				return err
			}
			if user.Tier == sub.Tier {
				user.Tier = fallbackTier
				return s.userRepo.Update(ctx, user)
			}
			return nil
		})
		if err != nil {
			s.logger.WithContext(ctx).Error("subscription sweep failed",
				zap.Int64("subscription_id", sub.Id), zap.Error(err))
			continue
		}
		s.syslog.Record(ctx, "info", "billing",
			"subscription expired, tier reverted to basic", &sub.UserId, "")
	}
	return nil
}
