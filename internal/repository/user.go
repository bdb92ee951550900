package repository

import (
	"context"
	"errors"
	"time"

	"comfycloud/internal/model"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListWithPagination(ctx context.Context, limit, offset int, search string) ([]*model.User, int64, error)
	Count(ctx context.Context) (int64, error)
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)
	// DebitBalance atomically subtracts amount when the resulting
	// balance stays at or above floor. Returns false when the guard
	// rejected the debit. The single conditional UPDATE is the
	// per-user serialization point; two concurrent debits can never
	// both observe the same pre-debit balance.
	DebitBalance(ctx context.Context, id int64, amount, floor float64) (bool, error)
	CreditBalance(ctx context.Context, id int64, amount float64) error
	SetBalance(ctx context.Context, id int64, balance float64) error
	AddStorageUsed(ctx context.Context, id int64, deltaGb float64) error
}

func NewUserRepository(r *Repository) UserRepository {
	return &userRepository{Repository: r}
}

type userRepository struct {
	*Repository
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB(ctx).Create(user).Error
}

// Update writes the profile columns only. Balance and storage_used are
// deliberately excluded: balance moves through the conditional-UPDATE
// ledger path and storage_used through AddStorageUsed, so a row read
// before a concurrent debit can never write a stale value back.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.DB(ctx).Model(&model.User{}).
		Where("id = ?", user.Id).
		Updates(map[string]interface{}{
			"tier":          user.Tier,
			"status":        user.Status,
			"role":          user.Role,
			"storage_limit": user.StorageLimit,
			"last_login_at": user.LastLoginAt,
			"gmt_modified":  time.Now(),
		}).Error
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.DB(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.DB(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListWithPagination(ctx context.Context, limit, offset int, search string) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	query := r.DB(ctx).Model(&model.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Offset(offset).Limit(limit).Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.DB(ctx).Model(&model.User{}).Count(&total).Error
	return total, err
}

func (r *userRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.DB(ctx).Model(&model.User{}).
		Where("last_login_at >= ?", since).
		Count(&total).Error
	return total, err
}

func (r *userRepository) DebitBalance(ctx context.Context, id int64, amount, floor float64) (bool, error) {
	res := r.DB(ctx).Model(&model.User{}).
		Where("id = ? AND balance - ? >= ?", id, amount, floor).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance - ?", amount),
			"gmt_modified": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) CreditBalance(ctx context.Context, id int64, amount float64) error {
	return r.DB(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"gmt_modified": time.Now(),
		}).Error
}

func (r *userRepository) SetBalance(ctx context.Context, id int64, balance float64) error {
	return r.DB(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":      balance,
			"gmt_modified": time.Now(),
		}).Error
}

func (r *userRepository) AddStorageUsed(ctx context.Context, id int64, deltaGb float64) error {
	return r.DB(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"storage_used": gorm.Expr("storage_used + ?", deltaGb),
			"gmt_modified": time.Now(),
		}).Error
}
