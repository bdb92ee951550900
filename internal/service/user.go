package service

import (
	"context"
	"strconv"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/ledger"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 24 * time.Hour

type UserService interface {
	Register(ctx context.Context, req *v1.RegisterRequest) (*v1.AuthResponse, error)
	Login(ctx context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, userId int64) (*v1.UserInfo, error)
	GetBalance(ctx context.Context, userId int64) (*v1.BalanceResponse, error)
}

func NewUserService(
	service *Service,
	userRepo repository.UserRepository,
	tokenRepo repository.TokenCacheRepository,
	tierService TierService,
	ledger *ledger.Ledger,
	syslog SystemLogService,
) UserService {
	return &userService{
		Service:     service,
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		tierService: tierService,
		ledger:      ledger,
		syslog:      syslog,
	}
}

type userService struct {
	*Service
	userRepo    repository.UserRepository
	tokenRepo   repository.TokenCacheRepository
	tierService TierService
	ledger      *ledger.Ledger
	syslog      SystemLogService
}

func (s *userService) Register(ctx context.Context, req *v1.RegisterRequest) (*v1.AuthResponse, error) {
	if existing, err := s.userRepo.GetByUsername(ctx, req.Username); err != nil {
		return nil, v1.ErrInternalServerError
	} else if existing != nil {
		return nil, v1.ErrUsernameAlreadyUse
	}
	if existing, err := s.userRepo.GetByEmail(ctx, req.Email); err != nil {
		return nil, v1.ErrInternalServerError
	} else if existing != nil {
		return nil, v1.ErrEmailAlreadyUse
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		Password:     string(hashed),
		Tier:         "basic",
		Balance:      0,
		StorageLimit: 5,
		Role:         model.UserRoleUser,
		Status:       model.UserStatusActive,
	}
	err = s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		if quota, qerr := s.tierService.QuotaFor(ctx, user); qerr == nil {
			user.StorageLimit = quota.StorageLimitGb
			return s.userRepo.Update(ctx, user)
		}
		return nil
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("user registration failed",
			zap.String("username", req.Username), zap.Error(err))
		return nil, v1.ErrInternalServerError
	}

	s.syslog.Record(ctx, "info", "auth", "user registered: "+user.Username, &user.Id, user.Username)
	return s.authResponse(ctx, user)
}

func (s *userService) Login(ctx context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if user == nil {
		return nil, v1.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, v1.ErrUnauthorized
	}
	if user.Status != model.UserStatusActive {
		return nil, v1.ErrAccountSuspended
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.WithContext(ctx).Warn("last login update failed",
			zap.Int64("user_id", user.Id), zap.Error(err))
	}

	return s.authResponse(ctx, user)
}

// Logout blacklists the token until its natural expiry. An already
// invalid token is treated as logged out.
func (s *userService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ParseToken(token)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokenRepo.Revoke(ctx, token, ttl); err != nil {
		s.logger.WithContext(ctx).Error("token revocation failed", zap.Error(err))
		return v1.ErrInternalServerError
	}
	return nil
}

func (s *userService) GetProfile(ctx context.Context, userId int64) (*v1.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if user == nil {
		return nil, v1.ErrNotFound
	}
	info := s.userInfo(ctx, user)
	return &info, nil
}

func (s *userService) GetBalance(ctx context.Context, userId int64) (*v1.BalanceResponse, error) {
	balance, updatedAt, err := s.ledger.Balance(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &v1.BalanceResponse{
		Balance:     balance,
		Currency:    "CNY",
		LastUpdated: updatedAt.Format(time.RFC3339),
	}, nil
}

func (s *userService) authResponse(ctx context.Context, user *model.User) (*v1.AuthResponse, error) {
	token, err := s.jwt.GenToken(strconv.FormatInt(user.Id, 10), string(user.Role), time.Now().Add(tokenLifetime))
	if err != nil {
		s.logger.WithContext(ctx).Error("token generation failed", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	return &v1.AuthResponse{
		Token: token,
		User:  s.userInfo(ctx, user),
	}, nil
}

// userInfo maps a user row to its wire shape. The tier shown is the
// effective one: an expired subscription reads as basic even before
// the sweep job catches up.
func (s *userService) userInfo(ctx context.Context, user *model.User) v1.UserInfo {
	info := v1.UserInfo{
		Id:           user.Id,
		Username:     user.Username,
		Email:        user.Email,
		Tier:         user.Tier,
		Balance:      user.Balance,
		StorageUsed:  user.StorageUsed,
		StorageLimit: user.StorageLimit,
		CreatedAt:    user.CreateTime.Format(time.RFC3339),
		Role:         string(user.Role),
	}
	if quota, err := s.tierService.QuotaFor(ctx, user); err == nil {
		info.Tier = quota.Tier
		if quota.StorageLimitGb > 0 {
			info.StorageLimit = quota.StorageLimitGb
		}
	}
	return info
}
