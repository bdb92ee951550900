package repository

import (
	"context"
	"time"

	"comfycloud/internal/model"
)

// UsageAggregate is the rollup behind GET /usage/stats.
type UsageAggregate struct {
	GpuSeconds     float64
	StorageSeconds float64 // byte-seconds scaled to GB-seconds by the meter
	TotalCost      float64
	TaskCount      int64
}

type UsageRecordRepository interface {
	// Create appends one closed accounting interval. Records are
	// immutable; no update method exists on purpose.
	Create(ctx context.Context, record *model.UsageRecord) error
	ListByUser(ctx context.Context, userId int64, start, end *time.Time, limit, offset int) ([]*model.UsageRecord, int64, error)
	AggregateByUser(ctx context.Context, userId int64, start, end time.Time) (*UsageAggregate, error)
}

func NewUsageRecordRepository(r *Repository) UsageRecordRepository {
	return &usageRecordRepository{Repository: r}
}

type usageRecordRepository struct {
	*Repository
}

func (r *usageRecordRepository) Create(ctx context.Context, record *model.UsageRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *usageRecordRepository) ListByUser(ctx context.Context, userId int64, start, end *time.Time, limit, offset int) ([]*model.UsageRecord, int64, error) {
	var records []*model.UsageRecord
	var total int64

	query := r.DB(ctx).Model(&model.UsageRecord{}).Where("user_id = ?", userId)
	if start != nil {
		query = query.Where("started_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("started_at <= ?", *end)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Offset(offset).Limit(limit).Order("started_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *usageRecordRepository) AggregateByUser(ctx context.Context, userId int64, start, end time.Time) (*UsageAggregate, error) {
	var agg UsageAggregate

	var row struct {
		GpuSeconds     float64
		StorageSeconds float64
		TotalCost      float64
	}
	err := r.DB(ctx).Model(&model.UsageRecord{}).
		Select(
			"COALESCE(SUM(CASE WHEN type = ? THEN duration_seconds ELSE 0 END), 0) AS gpu_seconds, "+
				"COALESCE(SUM(CASE WHEN type = ? THEN duration_seconds ELSE 0 END), 0) AS storage_seconds, "+
				"COALESCE(SUM(cost), 0) AS total_cost",
			model.UsageTypeGpu, model.UsageTypeStorage).
		Where("user_id = ? AND started_at >= ? AND started_at <= ?", userId, start, end).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	agg.GpuSeconds = row.GpuSeconds
	agg.StorageSeconds = row.StorageSeconds
	agg.TotalCost = row.TotalCost

	err = r.DB(ctx).Model(&model.UsageRecord{}).
		Where("user_id = ? AND started_at >= ? AND started_at <= ? AND type = ?",
			userId, start, end, model.UsageTypeGpu).
		Distinct("task_id").
		Count(&agg.TaskCount).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
