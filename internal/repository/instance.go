package repository

import (
	"context"
	"errors"
	"time"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

type InstanceRepository interface {
	Create(ctx context.Context, instance *model.Instance) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Instance, error)
	List(ctx context.Context) ([]*model.Instance, error)
	// UpdateRuntime writes back the pool's live view (status, queue,
	// telemetry) so admin reads survive a restart.
	UpdateRuntime(ctx context.Context, id string, fields map[string]interface{}) error
}

func NewInstanceRepository(r *Repository) InstanceRepository {
	return &instanceRepository{Repository: r}
}

type instanceRepository struct {
	*Repository
}

func (r *instanceRepository) Create(ctx context.Context, instance *model.Instance) error {
	return r.DB(ctx).Create(instance).Error
}

func (r *instanceRepository) Delete(ctx context.Context, id string) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.Instance{}).Error
}

func (r *instanceRepository) GetByID(ctx context.Context, id string) (*model.Instance, error) {
	var instance model.Instance
	if err := r.DB(ctx).Where("id = ?", id).First(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

func (r *instanceRepository) List(ctx context.Context) ([]*model.Instance, error) {
	var instances []*model.Instance
	if err := r.DB(ctx).Order("id ASC").Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *instanceRepository) UpdateRuntime(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["gmt_modified"] = time.Now()
	return r.DB(ctx).Model(&model.Instance{}).
		Where("id = ?", id).
		Updates(fields).Error
}
