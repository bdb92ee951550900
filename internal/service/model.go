package service

import (
	"context"
	"strconv"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/metering"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
)

const bytesPerGb = 1 << 30

type ModelService interface {
	ListPrivate(ctx context.Context, userId int64) (*v1.ListPrivateModelsResponse, error)
	Upload(ctx context.Context, userId int64, req *v1.UploadModelRequest) (*v1.PrivateModelItem, error)
	Delete(ctx context.Context, userId int64, modelId int64) error
	// Accessible reports whether the user's effective tier may run a
	// task against the named model.
	Accessible(ctx context.Context, user *model.User, name string) error
	ListAdmin(ctx context.Context, req *v1.ListAdminModelsRequest) (*v1.ListAdminModelsResponse, error)
	UpdateAdmin(ctx context.Context, modelId int64, req *v1.UpdateAdminModelRequest) error
	DeleteAdmin(ctx context.Context, modelId int64) error
}

func NewModelService(
	service *Service,
	modelRepo repository.ModelFileRepository,
	userRepo repository.UserRepository,
	tierService TierService,
	configService SystemConfigService,
	engine *metering.Engine,
	syslog SystemLogService,
) ModelService {
	return &modelService{
		Service:       service,
		modelRepo:     modelRepo,
		userRepo:      userRepo,
		tierService:   tierService,
		configService: configService,
		engine:        engine,
		syslog:        syslog,
	}
}

type modelService struct {
	*Service
	modelRepo     repository.ModelFileRepository
	userRepo      repository.UserRepository
	tierService   TierService
	configService SystemConfigService
	engine        *metering.Engine
	syslog        SystemLogService
}

func (s *modelService) ListPrivate(ctx context.Context, userId int64) (*v1.ListPrivateModelsResponse, error) {
	files, err := s.modelRepo.ListByUser(ctx, userId)
	if err != nil {
		s.logger.WithContext(ctx).Error("private model list failed",
			zap.Int64("user_id", userId), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	items := make([]v1.PrivateModelItem, 0, len(files))
	for _, file := range files {
		items = append(items, toPrivateModelItem(file))
	}
	return &v1.ListPrivateModelsResponse{Models: items}, nil
}

func (s *modelService) Upload(ctx context.Context, userId int64, req *v1.UploadModelRequest) (*v1.PrivateModelItem, error) {
	conf, err := s.configService.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(conf.System.AllowedModelTypes, req.Type) {
		return nil, v1.ErrModelTypeNotAllowed
	}
	if conf.System.MaxUploadSizeMb > 0 && req.SizeBytes > int64(conf.System.MaxUploadSizeMb)*1024*1024 {
		return nil, v1.ErrBadRequest
	}

	user, err := s.userRepo.GetByID(ctx, userId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if user == nil {
		return nil, v1.ErrNotFound
	}
	quota, err := s.tierService.QuotaFor(ctx, user)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}

	used, err := s.modelRepo.SumSizeByUser(ctx, userId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	sizeGb := float64(req.SizeBytes) / bytesPerGb
	if float64(used)/bytesPerGb+sizeGb > quota.StorageLimitGb {
		return nil, v1.ErrStorageQuotaExceeded
	}

	file := &model.ModelFile{
		UserId:            userId,
		Name:              req.Name,
		Type:              req.Type,
		SizeBytes:         req.SizeBytes,
		Visibility:        model.ModelVisibilityPrivate,
		Status:            "active",
		StorageCostPerDay: sizeGb * conf.Billing.StoragePricePerGbDay,
		UploadedAt:        time.Now(),
	}
	err = s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.modelRepo.Create(ctx, file); err != nil {
			return err
		}
		return s.userRepo.AddStorageUsed(ctx, userId, sizeGb)
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("model upload failed",
			zap.Int64("user_id", userId), zap.String("name", req.Name), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}

	// Storage starts billing the moment the upload lands.
	if err := s.engine.StartStorage(ctx, userId, storageMeterRef(file.Id), sizeGb,
		map[string]interface{}{"model_name": file.Name}); err != nil {
		s.logger.WithContext(ctx).Warn("storage meter start failed",
			zap.Int64("model_id", file.Id), zap.Error(err))
	}

	item := toPrivateModelItem(file)
	return &item, nil
}

func (s *modelService) Delete(ctx context.Context, userId int64, modelId int64) error {
	file, err := s.modelRepo.GetByID(ctx, modelId)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if file == nil || file.UserId != userId {
		return v1.ErrNotFound
	}
	return s.remove(ctx, file)
}

func (s *modelService) Accessible(ctx context.Context, user *model.User, name string) error {
	file, err := s.modelRepo.GetByName(ctx, name)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if file == nil {
		return v1.ErrNotFound
	}
	if file.Visibility == model.ModelVisibilityPrivate {
		if file.UserId != user.Id {
			return v1.ErrModelNotAccessible
		}
		return nil
	}
	quota, err := s.tierService.QuotaFor(ctx, user)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if model.VisibilityRank(file.Visibility) > model.VisibilityRank(quota.MaxVisibility) {
		return v1.ErrModelNotAccessible
	}
	return nil
}

func (s *modelService) ListAdmin(ctx context.Context, req *v1.ListAdminModelsRequest) (*v1.ListAdminModelsResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	files, total, err := s.modelRepo.ListWithPagination(ctx, limit, req.Offset, req.Visibility)
	if err != nil {
		s.logger.WithContext(ctx).Error("admin model list failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	items := make([]v1.AdminModelItem, 0, len(files))
	for _, file := range files {
		item := v1.AdminModelItem{
			PrivateModelItem: toPrivateModelItem(file),
			UserId:           file.UserId,
			Username:         "system",
			Visibility:       string(file.Visibility),
			Status:           file.Status,
		}
		if file.UserId != 0 {
			if user, err := s.userRepo.GetByID(ctx, file.UserId); err == nil && user != nil {
				item.Username = user.Username
			}
		}
		items = append(items, item)
	}
	return &v1.ListAdminModelsResponse{Models: items, Total: total}, nil
}

func (s *modelService) UpdateAdmin(ctx context.Context, modelId int64, req *v1.UpdateAdminModelRequest) error {
	file, err := s.modelRepo.GetByID(ctx, modelId)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if file == nil {
		return v1.ErrNotFound
	}
	if req.Visibility != nil {
		switch model.ModelVisibility(*req.Visibility) {
		case model.ModelVisibilityBase, model.ModelVisibilityVip, model.ModelVisibilityPrivate:
			file.Visibility = model.ModelVisibility(*req.Visibility)
		default:
			return v1.ErrBadRequest
		}
	}
	if req.Status != nil {
		file.Status = *req.Status
	}
	if err := s.modelRepo.Update(ctx, file); err != nil {
		return v1.ErrInternalServerError
	}
	return nil
}

func (s *modelService) DeleteAdmin(ctx context.Context, modelId int64) error {
	file, err := s.modelRepo.GetByID(ctx, modelId)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if file == nil {
		return v1.ErrNotFound
	}
	return s.remove(ctx, file)
}

func (s *modelService) remove(ctx context.Context, file *model.ModelFile) error {
	sizeGb := float64(file.SizeBytes) / bytesPerGb
	err := s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.modelRepo.Delete(ctx, file.Id); err != nil {
			return err
		}
		if file.UserId != 0 {
			return s.userRepo.AddStorageUsed(ctx, file.UserId, -sizeGb)
		}
		return nil
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("model delete failed",
			zap.Int64("model_id", file.Id), zap.Error(err))
		return v1.ErrInternalServerError
	}
	// Close the storage meter and settle the final partial day.
	if _, err := s.engine.Stop(ctx, storageMeterRef(file.Id), model.UsageTypeStorage); err != nil {
		s.logger.WithContext(ctx).Warn("storage meter stop failed",
			zap.Int64("model_id", file.Id), zap.Error(err))
	}
	s.syslog.Record(ctx, "info", "storage", "model deleted: "+file.Name, &file.UserId, "")
	return nil
}

func toPrivateModelItem(file *model.ModelFile) v1.PrivateModelItem {
	return v1.PrivateModelItem{
		Id:                file.Id,
		Name:              file.Name,
		Type:              file.Type,
		SizeBytes:         file.SizeBytes,
		UploadedAt:        file.UploadedAt.Format(time.RFC3339),
		StorageCostPerDay: file.StorageCostPerDay,
	}
}

func storageMeterRef(modelId int64) string {
	return "model_" + strconv.FormatInt(modelId, 10)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
