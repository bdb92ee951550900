package service

import (
	"context"
	"sync"
	"testing"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/ledger"
	"comfycloud/internal/model"
	mock_repository "comfycloud/test/mocks/repository"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[int64]*model.Subscription
}

func (r *memSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[int64]*model.Subscription)
	}
	copied := *sub
	r.subs[sub.UserId] = &copied
	return nil
}

func (r *memSubscriptionRepo) Update(ctx context.Context, sub *model.Subscription) error {
	return r.Create(ctx, sub)
}

func (r *memSubscriptionRepo) GetCurrentByUserID(ctx context.Context, userId int64) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userId]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (r *memSubscriptionRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.subs {
		if sub.Status == model.SubscriptionStatusActive && sub.ExpiresAt.Before(now) {
			copied := *sub
			out = append(out, &copied)
		}
	}
	return out, nil
}

type subscriptionFixture struct {
	service SubscriptionService
	users   *memUserRepo
	subs    *memSubscriptionRepo
}

func newSubscriptionFixture(t *testing.T, balances map[int64]float64) *subscriptionFixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	tierRepo := mock_repository.NewMockTierConfigRepository(ctrl)
	tierRepo.EXPECT().GetByKey(gomock.Any(), "pro").Return(proTier, nil).AnyTimes()
	tierRepo.EXPECT().GetByKey(gomock.Any(), "basic").Return(basicTier, nil).AnyTimes()

	users := &memUserRepo{balances: balances}
	subs := &memSubscriptionRepo{}
	tiers := NewTierService(testService(), tierRepo, subs)
	l := ledger.New(users, newMemRechargeRepo(), noopTM{}, testLogger())
	return &subscriptionFixture{
		service: NewSubscriptionService(NewService(noopTM{}, testLogger(), nil, nil), subs, users, tiers, l, noopSyslog{}),
		users:   users,
		subs:    subs,
	}
}

func TestUpgradeChargesBalance(t *testing.T) {
	f := newSubscriptionFixture(t, map[int64]float64{1: 150})

	resp, err := f.service.Upgrade(context.Background(), 1, "pro")
	require.NoError(t, err)
	assert.Equal(t, "pro", resp.Tier)
	assert.Equal(t, string(model.SubscriptionStatusActive), resp.Status)

	// The tier write must not restore the pre-debit balance.
	user, _ := f.users.GetByID(context.Background(), 1)
	assert.InDelta(t, 51.0, user.Balance, 1e-9, "balance after paid upgrade")
	assert.Equal(t, "pro", user.Tier)

	sub, _ := f.subs.GetCurrentByUserID(context.Background(), 1)
	require.NotNil(t, sub)
	assert.Equal(t, "pro", sub.Tier)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
}

func TestUpgradeInsufficientFunds(t *testing.T) {
	f := newSubscriptionFixture(t, map[int64]float64{1: 50})

	_, err := f.service.Upgrade(context.Background(), 1, "pro")
	assert.ErrorIs(t, err, v1.ErrInsufficientFunds)

	user, _ := f.users.GetByID(context.Background(), 1)
	assert.InDelta(t, 50.0, user.Balance, 1e-9)

	sub, _ := f.subs.GetCurrentByUserID(context.Background(), 1)
	assert.Nil(t, sub)
}

func TestUpgradeToCheaperTierRejected(t *testing.T) {
	f := newSubscriptionFixture(t, map[int64]float64{1: 500})
	f.users.tiers = map[int64]string{1: "pro"}
	_ = f.subs.Create(context.Background(), &model.Subscription{
		UserId:    1,
		Tier:      "pro",
		Status:    model.SubscriptionStatusActive,
		StartedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})

	_, err := f.service.Upgrade(context.Background(), 1, "basic")
	assert.ErrorIs(t, err, v1.ErrInvalidTierTransition)

	user, _ := f.users.GetByID(context.Background(), 1)
	assert.InDelta(t, 500.0, user.Balance, 1e-9)
}
