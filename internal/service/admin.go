package service

import (
	"context"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/ledger"
	"comfycloud/internal/model"
	"comfycloud/internal/pool"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
)

type AdminService interface {
	Stats(ctx context.Context) (*v1.AdminStatsResponse, error)
	ListUsers(ctx context.Context, req *v1.ListAdminUsersRequest) (*v1.ListAdminUsersResponse, error)
	UpdateUser(ctx context.Context, userId int64, req *v1.UpdateAdminUserRequest) (*v1.AdminUserItem, error)
	FinanceStats(ctx context.Context) (*v1.FinanceStatsResponse, error)
}

func NewAdminService(
	service *Service,
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	rechargeRepo repository.RechargeRepository,
	tierService TierService,
	registry *pool.Registry,
	ledger *ledger.Ledger,
	syslog SystemLogService,
) AdminService {
	return &adminService{
		Service:      service,
		userRepo:     userRepo,
		taskRepo:     taskRepo,
		rechargeRepo: rechargeRepo,
		tierService:  tierService,
		registry:     registry,
		ledger:       ledger,
		syslog:       syslog,
	}
}

type adminService struct {
	*Service
	userRepo     repository.UserRepository
	taskRepo     repository.TaskRepository
	rechargeRepo repository.RechargeRepository
	tierService  TierService
	registry     *pool.Registry
	ledger       *ledger.Ledger
	syslog       SystemLogService
}

func (s *adminService) Stats(ctx context.Context) (*v1.AdminStatsResponse, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	activeToday, err := s.userRepo.CountActiveSince(ctx, dayStart)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	tasksToday, err := s.taskRepo.CountSince(ctx, dayStart)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	finance, err := s.rechargeRepo.Stats(ctx, now)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}

	states := s.registry.Snapshot()
	var online int
	var queueSum, utilSum float64
	for _, st := range states {
		if st.Status != model.InstanceStatusOffline {
			online++
			queueSum += float64(st.QueueSize)
			utilSum += st.GpuUtilization
		}
	}
	var avgQueue, avgUtil float64
	if online > 0 {
		avgQueue = queueSum / float64(online)
		avgUtil = utilSum / float64(online)
	}

	return &v1.AdminStatsResponse{
		TotalUsers:        totalUsers,
		ActiveUsersToday:  activeToday,
		TotalRevenue:      finance.TotalRevenue,
		TotalTasksToday:   tasksToday,
		InstancesOnline:   online,
		InstancesTotal:    len(states),
		AvgQueueLength:    avgQueue,
		GpuUtilizationAvg: avgUtil,
	}, nil
}

func (s *adminService) ListUsers(ctx context.Context, req *v1.ListAdminUsersRequest) (*v1.ListAdminUsersResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, total, err := s.userRepo.ListWithPagination(ctx, limit, req.Offset, req.Search)
	if err != nil {
		s.logger.WithContext(ctx).Error("admin user list failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	items := make([]v1.AdminUserItem, 0, len(users))
	for _, user := range users {
		items = append(items, s.toAdminUserItem(user))
	}
	return &v1.ListAdminUsersResponse{Users: items, Total: total}, nil
}

func (s *adminService) UpdateUser(ctx context.Context, userId int64, req *v1.UpdateAdminUserRequest) (*v1.AdminUserItem, error) {
	user, err := s.userRepo.GetByID(ctx, userId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if user == nil {
		return nil, v1.ErrNotFound
	}

	if req.Tier != nil {
		tier, err := s.tierService.GetTier(ctx, *req.Tier)
		if err != nil {
			return nil, v1.ErrInternalServerError
		}
		if tier == nil {
			return nil, v1.ErrBadRequest
		}
		user.Tier = tier.Key
		if tier.StorageLimitGb > 0 {
			user.StorageLimit = tier.StorageLimitGb
		}
	}
	if req.Status != nil {
		switch model.UserStatus(*req.Status) {
		case model.UserStatusActive, model.UserStatusSuspended, model.UserStatusBanned:
			user.Status = model.UserStatus(*req.Status)
		default:
			return nil, v1.ErrBadRequest
		}
	}
	if req.Role != nil {
		switch model.UserRole(*req.Role) {
		case model.UserRoleUser, model.UserRoleAdmin:
			user.Role = model.UserRole(*req.Role)
		default:
			return nil, v1.ErrBadRequest
		}
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.WithContext(ctx).Error("admin user update failed",
			zap.Int64("user_id", userId), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}

	// The balance override goes through the ledger so it serializes
	// with concurrent debits.
	if req.Balance != nil {
		if err := s.ledger.AdminSetBalance(ctx, userId, *req.Balance); err != nil {
			return nil, err
		}
		user.Balance = *req.Balance
	}

	s.syslog.Record(ctx, "info", "admin", "user updated: "+user.Username, &userId, user.Username)
	item := s.toAdminUserItem(user)
	return &item, nil
}

func (s *adminService) FinanceStats(ctx context.Context) (*v1.FinanceStatsResponse, error) {
	stats, err := s.rechargeRepo.Stats(ctx, time.Now())
	if err != nil {
		s.logger.WithContext(ctx).Error("finance stats failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	return &v1.FinanceStatsResponse{
		TotalRevenue:      stats.TotalRevenue,
		RevenueToday:      stats.RevenueToday,
		RevenueThisWeek:   stats.RevenueThisWeek,
		RevenueThisMonth:  stats.RevenueThisMonth,
		TotalRecharges:    stats.TotalRecharges,
		AvgRechargeAmount: stats.AvgRechargeAmount,
	}, nil
}

func (s *adminService) toAdminUserItem(user *model.User) v1.AdminUserItem {
	item := v1.AdminUserItem{
		UserInfo: v1.UserInfo{
			Id:           user.Id,
			Username:     user.Username,
			Email:        user.Email,
			Tier:         user.Tier,
			Balance:      user.Balance,
			StorageUsed:  user.StorageUsed,
			StorageLimit: user.StorageLimit,
			CreatedAt:    user.CreateTime.Format(time.RFC3339),
			Role:         string(user.Role),
		},
		Status: string(user.Status),
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		item.LastLoginAt = &lastLogin
	}
	return item
}
