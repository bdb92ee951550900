package repository

import (
	"context"

	"comfycloud/internal/model"
)

type SystemLogRepository interface {
	Create(ctx context.Context, entry *model.SystemLog) error
	ListWithPagination(ctx context.Context, limit, offset int, level, source string) ([]*model.SystemLog, int64, error)
}

func NewSystemLogRepository(r *Repository) SystemLogRepository {
	return &systemLogRepository{Repository: r}
}

type systemLogRepository struct {
	*Repository
}

func (r *systemLogRepository) Create(ctx context.Context, entry *model.SystemLog) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *systemLogRepository) ListWithPagination(ctx context.Context, limit, offset int, level, source string) ([]*model.SystemLog, int64, error) {
	var logs []*model.SystemLog
	var total int64

	query := r.DB(ctx).Model(&model.SystemLog{})
	if level != "" {
		query = query.Where("level = ?", level)
	}
	if source != "" {
		query = query.Where("source = ?", source)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Offset(offset).Limit(limit).Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
