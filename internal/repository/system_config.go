package repository

import (
	"context"
	"errors"
	"time"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

const systemConfigId = 1

type SystemConfigRepository interface {
	Get(ctx context.Context) (*model.SystemConfig, error)
	Save(ctx context.Context, payload string) error
}

func NewSystemConfigRepository(r *Repository) SystemConfigRepository {
	return &systemConfigRepository{Repository: r}
}

type systemConfigRepository struct {
	*Repository
}

func (r *systemConfigRepository) Get(ctx context.Context) (*model.SystemConfig, error) {
	var conf model.SystemConfig
	if err := r.DB(ctx).Where("id = ?", systemConfigId).First(&conf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conf, nil
}

func (r *systemConfigRepository) Save(ctx context.Context, payload string) error {
	res := r.DB(ctx).Model(&model.SystemConfig{}).
		Where("id = ?", systemConfigId).
		Updates(map[string]interface{}{
			"payload":      payload,
			"version":      gorm.Expr("version + 1"),
			"gmt_modified": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.DB(ctx).Create(&model.SystemConfig{
			Id:         systemConfigId,
			Payload:    payload,
			Version:    1,
			UpdateTime: time.Now(),
		}).Error
	}
	return nil
}
