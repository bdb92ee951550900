package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/metering"
	"comfycloud/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	configCacheKey = "system_config"
	configCacheTTL = 30 * time.Second
	localConfigTTL = 2 * time.Second
)

// DefaultSystemConfig is seeded on first boot and used as the fallback
// when the singleton row is missing.
func DefaultSystemConfig() v1.SystemConfigBody {
	return v1.SystemConfigBody{
		Billing: v1.BillingConfig{
			GpuPricePerSecond:    0.002,
			StoragePricePerGbDay: 0.01,
			BandwidthPricePerGb:  0.05,
		},
		InstancePool: v1.InstancePoolConfig{
			MaxQueuePerInstance:        10,
			HealthCheckIntervalSeconds: 30,
			AutoScaleEnabled:           false,
		},
		System: v1.SystemLimitsConfig{
			MaxUploadSizeMb:   4096,
			AllowedModelTypes: []string{"checkpoint", "lora", "vae", "embedding"},
			MaintenanceMode:   false,
		},
	}
}

type SystemConfigService interface {
	Get(ctx context.Context) (v1.SystemConfigBody, error)
	Update(ctx context.Context, req *v1.UpdateSystemConfigRequest) (v1.SystemConfigBody, error)
	Rates(ctx context.Context) (metering.Rates, error)
}

// systemConfigService layers a short in-process cache over redis over
// the singleton row, so the hot paths (scheduling, metering) read
// config without a query and still observe an update within one
// health/flush interval on every node.
type systemConfigService struct {
	*Service
	configRepo repository.SystemConfigRepository
	rdb        *redis.Client

	mu        sync.RWMutex
	cached    v1.SystemConfigBody
	fetchedAt time.Time
}

func NewSystemConfigService(service *Service, configRepo repository.SystemConfigRepository, repo *repository.Repository) SystemConfigService {
	return &systemConfigService{
		Service:    service,
		configRepo: configRepo,
		rdb:        repo.Redis(),
	}
}

func (s *systemConfigService) Get(ctx context.Context) (v1.SystemConfigBody, error) {
	s.mu.RLock()
	if time.Since(s.fetchedAt) < localConfigTTL {
		body := s.cached
		s.mu.RUnlock()
		return body, nil
	}
	s.mu.RUnlock()

	if raw, err := s.rdb.Get(ctx, configCacheKey).Result(); err == nil {
		var body v1.SystemConfigBody
		if json.Unmarshal([]byte(raw), &body) == nil {
			s.store(body)
			return body, nil
		}
	}

	conf, err := s.configRepo.Get(ctx)
	if err != nil {
		s.logger.WithContext(ctx).Error("system config read failed", zap.Error(err))
		return v1.SystemConfigBody{}, v1.ErrInternalServerError
	}
	body := DefaultSystemConfig()
	if conf != nil {
		if err := json.Unmarshal([]byte(conf.Payload), &body); err != nil {
			s.logger.WithContext(ctx).Error("system config payload corrupt", zap.Error(err))
		}
	}
	s.fill(ctx, body)
	s.store(body)
	return body, nil
}

func (s *systemConfigService) Update(ctx context.Context, req *v1.UpdateSystemConfigRequest) (v1.SystemConfigBody, error) {
	body, err := s.Get(ctx)
	if err != nil {
		return v1.SystemConfigBody{}, err
	}
	if req.Billing != nil {
		body.Billing = *req.Billing
	}
	if req.InstancePool != nil {
		body.InstancePool = *req.InstancePool
	}
	if req.System != nil {
		body.System = *req.System
	}
	if body.Billing.GpuPricePerSecond < 0 || body.Billing.StoragePricePerGbDay < 0 ||
		body.Billing.BandwidthPricePerGb < 0 || body.InstancePool.MaxQueuePerInstance < 1 ||
		body.InstancePool.HealthCheckIntervalSeconds < 1 {
		return v1.SystemConfigBody{}, v1.ErrBadRequest
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return v1.SystemConfigBody{}, v1.ErrInternalServerError
	}
	if err := s.configRepo.Save(ctx, string(payload)); err != nil {
		s.logger.WithContext(ctx).Error("system config save failed", zap.Error(err))
		return v1.SystemConfigBody{}, v1.ErrInternalServerError
	}
	s.fill(ctx, body)
	s.store(body)
	return body, nil
}

func (s *systemConfigService) Rates(ctx context.Context) (metering.Rates, error) {
	body, err := s.Get(ctx)
	if err != nil {
		return metering.Rates{}, err
	}
	return metering.Rates{
		GpuPerSecond:    body.Billing.GpuPricePerSecond,
		StoragePerGbDay: body.Billing.StoragePricePerGbDay,
		BandwidthPerGb:  body.Billing.BandwidthPricePerGb,
	}, nil
}

// fill pushes the fresh body to redis so other nodes converge without
// hitting the database.
func (s *systemConfigService) fill(ctx context.Context, body v1.SystemConfigBody) {
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, configCacheKey, payload, configCacheTTL).Err(); err != nil {
		s.logger.WithContext(ctx).Warn("system config cache write failed", zap.Error(err))
	}
}

func (s *systemConfigService) store(body v1.SystemConfigBody) {
	s.mu.Lock()
	s.cached = body
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}
