package repository

import (
	"context"
	"errors"
	"time"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

// FinanceStats is the rollup behind GET /admin/finance/stats. Revenue
// counts completed recharges only.
type FinanceStats struct {
	TotalRevenue      float64
	RevenueToday      float64
	RevenueThisWeek   float64
	RevenueThisMonth  float64
	TotalRecharges    int64
	AvgRechargeAmount float64
}

type RechargeRepository interface {
	Create(ctx context.Context, record *model.RechargeRecord) error
	GetByOrderNo(ctx context.Context, orderNo string) (*model.RechargeRecord, error)
	ListWithPagination(ctx context.Context, limit, offset int) ([]*model.RechargeRecord, int64, error)
	// Transition moves the record from one status to another with a
	// single conditional UPDATE. Returns false when the record was not
	// in the expected state, which makes provider-callback replays
	// no-ops (credit idempotence hangs off this).
	Transition(ctx context.Context, orderNo string, from, to model.RechargeStatus) (bool, error)
	Stats(ctx context.Context, now time.Time) (*FinanceStats, error)
}

func NewRechargeRepository(r *Repository) RechargeRepository {
	return &rechargeRepository{Repository: r}
}

type rechargeRepository struct {
	*Repository
}

func (r *rechargeRepository) Create(ctx context.Context, record *model.RechargeRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *rechargeRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.RechargeRecord, error) {
	var record model.RechargeRecord
	if err := r.DB(ctx).Where("order_no = ?", orderNo).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *rechargeRepository) ListWithPagination(ctx context.Context, limit, offset int) ([]*model.RechargeRecord, int64, error) {
	var records []*model.RechargeRecord
	var total int64

	query := r.DB(ctx).Model(&model.RechargeRecord{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Offset(offset).Limit(limit).Order("gmt_create DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *rechargeRepository) Transition(ctx context.Context, orderNo string, from, to model.RechargeStatus) (bool, error) {
	now := time.Now()
	fields := map[string]interface{}{
		"status":       to,
		"gmt_modified": now,
	}
	if to == model.RechargeStatusCompleted {
		fields["completed_at"] = now
	}
	res := r.DB(ctx).Model(&model.RechargeRecord{}).
		Where("order_no = ? AND status = ?", orderNo, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *rechargeRepository) Stats(ctx context.Context, now time.Time) (*FinanceStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var row struct {
		TotalRevenue     float64
		RevenueToday     float64
		RevenueThisWeek  float64
		RevenueThisMonth float64
		TotalRecharges   int64
	}
	err := r.DB(ctx).Model(&model.RechargeRecord{}).
		Select(
			"COALESCE(SUM(amount), 0) AS total_revenue, "+
				"COALESCE(SUM(CASE WHEN completed_at >= ? THEN amount ELSE 0 END), 0) AS revenue_today, "+
				"COALESCE(SUM(CASE WHEN completed_at >= ? THEN amount ELSE 0 END), 0) AS revenue_this_week, "+
				"COALESCE(SUM(CASE WHEN completed_at >= ? THEN amount ELSE 0 END), 0) AS revenue_this_month, "+
				"COUNT(*) AS total_recharges",
			dayStart, weekStart, monthStart).
		Where("status IN ?", []model.RechargeStatus{model.RechargeStatusCompleted, model.RechargeStatusRefunded}).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &FinanceStats{
		TotalRevenue:     row.TotalRevenue,
		RevenueToday:     row.RevenueToday,
		RevenueThisWeek:  row.RevenueThisWeek,
		RevenueThisMonth: row.RevenueThisMonth,
		TotalRecharges:   row.TotalRecharges,
	}
	if stats.TotalRecharges > 0 {
		stats.AvgRechargeAmount = stats.TotalRevenue / float64(stats.TotalRecharges)
	}
	return stats, nil
}
