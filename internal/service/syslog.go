package service

import (
	"context"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
)

// SystemLogService is the operational audit trail shown on the admin
// dashboard. Recording is fire-and-forget: a failed write is logged
// and never fails the calling operation.
type SystemLogService interface {
	Record(ctx context.Context, level, source, message string, userId *int64, username string)
	List(ctx context.Context, req *v1.ListSystemLogsRequest) (*v1.ListSystemLogsResponse, error)
}

func NewSystemLogService(service *Service, syslogRepo repository.SystemLogRepository) SystemLogService {
	return &systemLogService{Service: service, syslogRepo: syslogRepo}
}

type systemLogService struct {
	*Service
	syslogRepo repository.SystemLogRepository
}

func (s *systemLogService) Record(ctx context.Context, level, source, message string, userId *int64, username string) {
	err := s.syslogRepo.Create(ctx, &model.SystemLog{
		Level:    level,
		Source:   source,
		Message:  message,
		UserId:   userId,
		Username: username,
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("system log write failed",
			zap.String("source", source), zap.Error(err))
	}
}

func (s *systemLogService) List(ctx context.Context, req *v1.ListSystemLogsRequest) (*v1.ListSystemLogsResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, total, err := s.syslogRepo.ListWithPagination(ctx, limit, req.Offset, req.Level, req.Source)
	if err != nil {
		s.logger.WithContext(ctx).Error("system log list failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	items := make([]v1.SystemLogItem, 0, len(logs))
	for _, entry := range logs {
		items = append(items, v1.SystemLogItem{
			Id:        entry.Id,
			Level:     entry.Level,
			Source:    entry.Source,
			Message:   entry.Message,
			UserId:    entry.UserId,
			Username:  entry.Username,
			CreatedAt: entry.CreateTime.Format(time.RFC3339),
		})
	}
	return &v1.ListSystemLogsResponse{Logs: items, Total: total}, nil
}
