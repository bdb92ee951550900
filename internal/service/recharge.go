package service

import (
	"context"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/ledger"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
)

type RechargeService interface {
	Create(ctx context.Context, userId int64, req *v1.CreateRechargeRequest) (*v1.RechargeRecordItem, error)
	// Notify is the payment provider callback. Replays and
	// out-of-order deliveries must not double-credit.
	Notify(ctx context.Context, req *v1.RechargeNotifyRequest) error
	ListAll(ctx context.Context, req *v1.ListRechargeRecordsRequest) (*v1.ListRechargeRecordsResponse, error)
}

func NewRechargeService(
	service *Service,
	rechargeRepo repository.RechargeRepository,
	userRepo repository.UserRepository,
	ledger *ledger.Ledger,
	syslog SystemLogService,
) RechargeService {
	return &rechargeService{
		Service:      service,
		rechargeRepo: rechargeRepo,
		userRepo:     userRepo,
		ledger:       ledger,
		syslog:       syslog,
	}
}

type rechargeService struct {
	*Service
	rechargeRepo repository.RechargeRepository
	userRepo     repository.UserRepository
	ledger       *ledger.Ledger
	syslog       SystemLogService
}

func (s *rechargeService) Create(ctx context.Context, userId int64, req *v1.CreateRechargeRequest) (*v1.RechargeRecordItem, error) {
	orderNo, err := s.sid.GenString()
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	record := &model.RechargeRecord{
		UserId:        userId,
		OrderNo:       "R" + orderNo,
		Amount:        req.Amount,
		Currency:      "CNY",
		PaymentMethod: req.PaymentMethod,
		Status:        model.RechargeStatusPending,
	}
	if err := s.rechargeRepo.Create(ctx, record); err != nil {
		s.logger.WithContext(ctx).Error("recharge create failed",
			zap.Int64("user_id", userId), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	item := s.toItem(ctx, record)
	return &item, nil
}

func (s *rechargeService) Notify(ctx context.Context, req *v1.RechargeNotifyRequest) error {
	record, err := s.rechargeRepo.GetByOrderNo(ctx, req.OrderNo)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if record == nil {
		return v1.ErrNotFound
	}

	switch req.Status {
	case string(model.RechargeStatusCompleted):
		if err := s.ledger.CreditRecharge(ctx, req.OrderNo); err != nil {
			return err
		}
		s.syslog.Record(ctx, "info", "billing",
			"recharge completed: "+req.OrderNo, &record.UserId, "")
		return nil

	case string(model.RechargeStatusFailed):
		moved, err := s.rechargeRepo.Transition(ctx, req.OrderNo,
			model.RechargeStatusPending, model.RechargeStatusFailed)
		if err != nil {
			return v1.ErrInternalServerError
		}
		if !moved && record.Status != model.RechargeStatusFailed {
			return v1.ErrRechargeClosed
		}
		return nil

	case string(model.RechargeStatusRefunded):
		// Refund flags the record only; clawing the credit back is a
		// manual finance decision, not an automatic debit.
		moved, err := s.rechargeRepo.Transition(ctx, req.OrderNo,
			model.RechargeStatusCompleted, model.RechargeStatusRefunded)
		if err != nil {
			return v1.ErrInternalServerError
		}
		if !moved && record.Status != model.RechargeStatusRefunded {
			return v1.ErrRechargeClosed
		}
		s.syslog.Record(ctx, "warn", "billing",
			"recharge refunded: "+req.OrderNo, &record.UserId, "")
		return nil

	default:
		return v1.ErrBadRequest
	}
}

func (s *rechargeService) ListAll(ctx context.Context, req *v1.ListRechargeRecordsRequest) (*v1.ListRechargeRecordsResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, total, err := s.rechargeRepo.ListWithPagination(ctx, limit, req.Offset)
	if err != nil {
		s.logger.WithContext(ctx).Error("recharge list failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	items := make([]v1.RechargeRecordItem, 0, len(records))
	for _, record := range records {
		items = append(items, s.toItem(ctx, record))
	}
	return &v1.ListRechargeRecordsResponse{Records: items, Total: total}, nil
}

func (s *rechargeService) toItem(ctx context.Context, record *model.RechargeRecord) v1.RechargeRecordItem {
	item := v1.RechargeRecordItem{
		Id:            record.Id,
		UserId:        record.UserId,
		OrderNo:       record.OrderNo,
		Amount:        record.Amount,
		Currency:      record.Currency,
		PaymentMethod: record.PaymentMethod,
		Status:        string(record.Status),
		CreatedAt:     record.CreateTime.Format(time.RFC3339),
	}
	if record.CompletedAt != nil {
		completed := record.CompletedAt.Format(time.RFC3339)
		item.CompletedAt = &completed
	}
	if user, err := s.userRepo.GetByID(ctx, record.UserId); err == nil && user != nil {
		item.Username = user.Username
	}
	return item
}
