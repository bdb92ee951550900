package service

import (
	"context"
	"testing"
	"time"

	"comfycloud/internal/model"
	"comfycloud/pkg/log"
	mock_repository "comfycloud/test/mocks/repository"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *log.Logger {
	return &log.Logger{Logger: zap.NewNop()}
}

func testService() *Service {
	return NewService(nil, testLogger(), nil, nil)
}

var proTier = &model.TierConfig{
	Key:            "pro",
	Label:          "专业版",
	PriceAmount:    99,
	PriorityWeight: 10,
	StorageLimitGb: 50,
	Visibility:     "vip",
}

var basicTier = &model.TierConfig{
	Key:            "basic",
	Label:          "免费版",
	PriorityWeight: 0,
	StorageLimitGb: 5,
	Visibility:     "base",
}

func TestQuotaForActiveSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tierRepo := mock_repository.NewMockTierConfigRepository(ctrl)
	subRepo := mock_repository.NewMockSubscriptionRepository(ctrl)
	s := NewTierService(testService(), tierRepo, subRepo)

	user := &model.User{Id: 1, Tier: "pro"}
	subRepo.EXPECT().GetCurrentByUserID(gomock.Any(), int64(1)).Return(&model.Subscription{
		UserId:    1,
		Tier:      "pro",
		Status:    model.SubscriptionStatusActive,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil)
	tierRepo.EXPECT().GetByKey(gomock.Any(), "pro").Return(proTier, nil)

	quota, err := s.QuotaFor(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "pro", quota.Tier)
	assert.Equal(t, 50.0, quota.StorageLimitGb)
	assert.Equal(t, model.ModelVisibilityVip, quota.MaxVisibility)
}

func TestQuotaForExpiredUnsweptSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tierRepo := mock_repository.NewMockTierConfigRepository(ctrl)
	subRepo := mock_repository.NewMockSubscriptionRepository(ctrl)
	s := NewTierService(testService(), tierRepo, subRepo)

	// The rows still say pro/active, but expires_at has passed and the
	// sweep has not run yet. Entitlement drops immediately.
	user := &model.User{Id: 1, Tier: "pro"}
	subRepo.EXPECT().GetCurrentByUserID(gomock.Any(), int64(1)).Return(&model.Subscription{
		UserId:    1,
		Tier:      "pro",
		Status:    model.SubscriptionStatusActive,
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)
	tierRepo.EXPECT().GetByKey(gomock.Any(), "basic").Return(basicTier, nil)

	quota, err := s.QuotaFor(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "basic", quota.Tier)
	assert.Equal(t, model.ModelVisibilityBase, quota.MaxVisibility)
}

func TestQuotaForBasicSkipsSubscriptionLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tierRepo := mock_repository.NewMockTierConfigRepository(ctrl)
	subRepo := mock_repository.NewMockSubscriptionRepository(ctrl)
	s := NewTierService(testService(), tierRepo, subRepo)

	tierRepo.EXPECT().GetByKey(gomock.Any(), "basic").Return(basicTier, nil)

	quota, err := s.QuotaFor(context.Background(), &model.User{Id: 1, Tier: "basic"})
	require.NoError(t, err)
	assert.Equal(t, "basic", quota.Tier)
}

func TestQuotaForUnknownTierFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tierRepo := mock_repository.NewMockTierConfigRepository(ctrl)
	subRepo := mock_repository.NewMockSubscriptionRepository(ctrl)
	s := NewTierService(testService(), tierRepo, subRepo)

	user := &model.User{Id: 1, Tier: "legacy_gold"}
	subRepo.EXPECT().GetCurrentByUserID(gomock.Any(), int64(1)).Return(nil, nil)
	tierRepo.EXPECT().GetByKey(gomock.Any(), "legacy_gold").Return(nil, nil)

	quota, err := s.QuotaFor(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "basic", quota.Tier)
	assert.Equal(t, 5.0, quota.StorageLimitGb)
}

func TestListTiersDecodesFeatures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tierRepo := mock_repository.NewMockTierConfigRepository(ctrl)
	subRepo := mock_repository.NewMockSubscriptionRepository(ctrl)
	s := NewTierService(testService(), tierRepo, subRepo)

	tierRepo.EXPECT().List(gomock.Any()).Return([]*model.TierConfig{
		{Key: "pro", Label: "专业版", Features: `["50GB 存储","VIP 模型"]`, Popular: true},
	}, nil)

	items, err := s.ListTiers(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"50GB 存储", "VIP 模型"}, items[0].Features)
	assert.True(t, items[0].Popular)
}
