package repository

import (
	"context"
	"errors"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

type ModelFileRepository interface {
	Create(ctx context.Context, file *model.ModelFile) error
	Update(ctx context.Context, file *model.ModelFile) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.ModelFile, error)
	GetByName(ctx context.Context, name string) (*model.ModelFile, error)
	ListByUser(ctx context.Context, userId int64) ([]*model.ModelFile, error)
	ListWithPagination(ctx context.Context, limit, offset int, visibility string) ([]*model.ModelFile, int64, error)
	SumSizeByUser(ctx context.Context, userId int64) (int64, error)
}

func NewModelFileRepository(r *Repository) ModelFileRepository {
	return &modelFileRepository{Repository: r}
}

type modelFileRepository struct {
	*Repository
}

func (r *modelFileRepository) Create(ctx context.Context, file *model.ModelFile) error {
	return r.DB(ctx).Create(file).Error
}

func (r *modelFileRepository) Update(ctx context.Context, file *model.ModelFile) error {
	return r.DB(ctx).Save(file).Error
}

func (r *modelFileRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.ModelFile{}).Error
}

func (r *modelFileRepository) GetByID(ctx context.Context, id int64) (*model.ModelFile, error) {
	var file model.ModelFile
	if err := r.DB(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

func (r *modelFileRepository) GetByName(ctx context.Context, name string) (*model.ModelFile, error) {
	var file model.ModelFile
	if err := r.DB(ctx).Where("name = ?", name).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

func (r *modelFileRepository) ListByUser(ctx context.Context, userId int64) ([]*model.ModelFile, error) {
	var files []*model.ModelFile
	if err := r.DB(ctx).Where("user_id = ?", userId).Order("uploaded_at DESC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *modelFileRepository) ListWithPagination(ctx context.Context, limit, offset int, visibility string) ([]*model.ModelFile, int64, error) {
	var files []*model.ModelFile
	var total int64

	query := r.DB(ctx).Model(&model.ModelFile{})
	if visibility != "" {
		query = query.Where("visibility = ?", visibility)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Offset(offset).Limit(limit).Order("id ASC").Find(&files).Error; err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

func (r *modelFileRepository) SumSizeByUser(ctx context.Context, userId int64) (int64, error) {
	var total int64
	err := r.DB(ctx).Model(&model.ModelFile{}).
		Where("user_id = ?", userId).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}
