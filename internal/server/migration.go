package server

import (
	"context"
	"encoding/json"
	"os"

	"comfycloud/internal/model"
	"comfycloud/internal/repository"
	"comfycloud/internal/service"
	"comfycloud/pkg/log"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type MigrateServer struct {
	db         *gorm.DB
	log        *log.Logger
	userRepo   repository.UserRepository
	tierRepo   repository.TierConfigRepository
	configRepo repository.SystemConfigRepository
	modelRepo  repository.ModelFileRepository
}

func NewMigrateServer(
	db *gorm.DB,
	log *log.Logger,
	userRepo repository.UserRepository,
	tierRepo repository.TierConfigRepository,
	configRepo repository.SystemConfigRepository,
	modelRepo repository.ModelFileRepository,
) *MigrateServer {
	return &MigrateServer{
		db:         db,
		log:        log,
		userRepo:   userRepo,
		tierRepo:   tierRepo,
		configRepo: configRepo,
		modelRepo:  modelRepo,
	}
}

func (m *MigrateServer) Start(ctx context.Context) error {
	if err := m.db.AutoMigrate(
		&model.User{},
		&model.Instance{},
		&model.Task{},
		&model.UsageRecord{},
		&model.Subscription{},
		&model.RechargeRecord{},
		&model.TierConfig{},
		&model.ModelFile{},
		&model.SystemConfig{},
		&model.SystemLog{},
	); err != nil {
		m.log.Error("migrate error", zap.Error(err))
		return err
	}
	m.log.Info("AutoMigrate success")

	if err := m.seedTiers(ctx); err != nil {
		m.log.Error("seed tiers error", zap.Error(err))
		return err
	}
	if err := m.seedSystemConfig(ctx); err != nil {
		m.log.Error("seed system config error", zap.Error(err))
		return err
	}
	if err := m.seedSystemModels(ctx); err != nil {
		m.log.Error("seed system models error", zap.Error(err))
		return err
	}
	if err := m.createDefaultAdmin(ctx); err != nil {
		m.log.Error("create default admin error", zap.Error(err))
		return err
	}

	os.Exit(0)
	return nil
}

func (m *MigrateServer) seedTiers(ctx context.Context) error {
	tiers := []*model.TierConfig{
		{
			Key:            "basic",
			Label:          "基础版",
			Color:          "bg-muted text-muted-foreground",
			Price:          "免费",
			PriceAmount:    0,
			Features:       mustJSON([]string{"基础模型", "5GB 存储", "标准队列"}),
			Popular:        false,
			PriorityWeight: 0,
			StorageLimitGb: 5,
			Visibility:     string(model.ModelVisibilityBase),
		},
		{
			Key:            "pro",
			Label:          "专业版",
			Color:          "bg-primary/10 text-primary",
			Price:          "¥99/月",
			PriceAmount:    99,
			Features:       mustJSON([]string{"全部模型", "50GB 存储", "优先队列", "私有模型上传"}),
			Popular:        true,
			PriorityWeight: 10,
			StorageLimitGb: 50,
			Visibility:     string(model.ModelVisibilityVip),
		},
		{
			Key:            "enterprise",
			Label:          "企业版",
			Color:          "bg-chart-4/20 text-chart-4",
			Price:          "¥499/月",
			PriceAmount:    499,
			Features:       mustJSON([]string{"全部模型", "500GB 存储", "专属队列", "私有模型上传", "专属支持"}),
			Popular:        false,
			PriorityWeight: 20,
			StorageLimitGb: 500,
			Visibility:     string(model.ModelVisibilityVip),
		},
	}
	for _, tier := range tiers {
		existing, err := m.tierRepo.GetByKey(ctx, tier.Key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := m.tierRepo.Save(ctx, tier); err != nil {
			return err
		}
	}
	m.log.Info("tier seed done")
	return nil
}

func (m *MigrateServer) seedSystemConfig(ctx context.Context) error {
	existing, err := m.configRepo.Get(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	payload, err := json.Marshal(service.DefaultSystemConfig())
	if err != nil {
		return err
	}
	return m.configRepo.Save(ctx, string(payload))
}

func (m *MigrateServer) seedSystemModels(ctx context.Context) error {
	models := []*model.ModelFile{
		{Name: "sd_v1.5.safetensors", Type: "checkpoint", SizeBytes: 4265146304, Visibility: model.ModelVisibilityBase, Status: "active"},
		{Name: "sdxl_base_1.0.safetensors", Type: "checkpoint", SizeBytes: 6938078334, Visibility: model.ModelVisibilityBase, Status: "active"},
		{Name: "flux_dev.safetensors", Type: "checkpoint", SizeBytes: 23802932552, Visibility: model.ModelVisibilityVip, Status: "active"},
		{Name: "sdxl_vae.safetensors", Type: "vae", SizeBytes: 334641190, Visibility: model.ModelVisibilityBase, Status: "active"},
	}
	for _, file := range models {
		existing, err := m.modelRepo.GetByName(ctx, file.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := m.modelRepo.Create(ctx, file); err != nil {
			return err
		}
	}
	m.log.Info("system model seed done")
	return nil
}

func (m *MigrateServer) createDefaultAdmin(ctx context.Context) error {
	defaultUsername := "admin"
	defaultEmail := "admin@comfycloud.local"
	defaultPassword := "Ab123456"

	existing, err := m.userRepo.GetByUsername(ctx, defaultUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		m.log.Info("default admin already exists", zap.String("username", defaultUsername))
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &model.User{
		Username:     defaultUsername,
		Email:        defaultEmail,
		Password:     string(hashedPassword),
		Tier:         "enterprise",
		Balance:      0,
		StorageLimit: 500,
		Role:         model.UserRoleAdmin,
		Status:       model.UserStatusActive,
	}
	if err := m.userRepo.Create(ctx, admin); err != nil {
		return err
	}
	m.log.Info("default admin created",
		zap.String("username", defaultUsername),
		zap.String("email", defaultEmail))
	return nil
}

func (m *MigrateServer) Stop(ctx context.Context) error {
	m.log.Info("AutoMigrate stop")
	return nil
}

func mustJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
