package service

import (
	"context"
	"encoding/json"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
)

type UsageService interface {
	ListRecords(ctx context.Context, userId int64, req *v1.ListUsageRecordsRequest) (*v1.ListUsageRecordsResponse, error)
	Stats(ctx context.Context, userId int64, period string) (*v1.UsageStatsResponse, error)
}

func NewUsageService(service *Service, usageRepo repository.UsageRecordRepository) UsageService {
	return &usageService{Service: service, usageRepo: usageRepo}
}

type usageService struct {
	*Service
	usageRepo repository.UsageRecordRepository
}

func (s *usageService) ListRecords(ctx context.Context, userId int64, req *v1.ListUsageRecordsRequest) (*v1.ListUsageRecordsResponse, error) {
	var start, end *time.Time
	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return nil, v1.ErrBadRequest
		}
		start = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return nil, v1.ErrBadRequest
		}
		end = &t
	}
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	records, total, err := s.usageRepo.ListByUser(ctx, userId, start, end, limit, req.Offset)
	if err != nil {
		s.logger.WithContext(ctx).Error("usage record list failed",
			zap.Int64("user_id", userId), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}

	items := make([]v1.UsageRecordItem, 0, len(records))
	for _, record := range records {
		var details map[string]interface{}
		if record.Details != "" {
			_ = json.Unmarshal([]byte(record.Details), &details)
		}
		items = append(items, v1.UsageRecordItem{
			Id:              record.Id,
			TaskId:          record.TaskId,
			Type:            string(record.Type),
			StartedAt:       record.StartedAt.Format(time.RFC3339),
			EndedAt:         record.EndedAt.Format(time.RFC3339),
			DurationSeconds: record.DurationSeconds,
			Cost:            record.Cost,
			Details:         details,
		})
	}
	return &v1.ListUsageRecordsResponse{Records: items, Total: total}, nil
}

func (s *usageService) Stats(ctx context.Context, userId int64, period string) (*v1.UsageStatsResponse, error) {
	end := time.Now()
	var start time.Time
	switch period {
	case "day":
		start = end.AddDate(0, 0, -1)
	case "week":
		start = end.AddDate(0, 0, -7)
	case "month":
		start = end.AddDate(0, -1, 0)
	case "year":
		start = end.AddDate(-1, 0, 0)
	default:
		return nil, v1.ErrBadRequest
	}

	agg, err := s.usageRepo.AggregateByUser(ctx, userId, start, end)
	if err != nil {
		s.logger.WithContext(ctx).Error("usage aggregation failed",
			zap.Int64("user_id", userId), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	return &v1.UsageStatsResponse{
		Period:         period,
		StartDate:      start.Format(time.RFC3339),
		EndDate:        end.Format(time.RFC3339),
		GpuSeconds:     agg.GpuSeconds,
		StorageGbHours: agg.StorageSeconds / 3600,
		TotalCost:      agg.TotalCost,
		TaskCount:      agg.TaskCount,
	}, nil
}
