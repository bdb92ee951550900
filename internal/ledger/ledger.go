package ledger

import (
	"context"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"
	"comfycloud/pkg/log"

	"go.uber.org/zap"
)

const lockStripes = 64

// Ledger is the single authority over user balances. Every mutation
// funnels through it: metering debits, recharge credits, subscription
// charges, admin overrides.
//
// Per-user serialization has two layers: a striped in-process mutex
// keeps one process from racing itself, and the conditional single-row
// UPDATE in the repository keeps multiple processes honest. Neither
// path ever does read-modify-write on the balance column.
type Ledger struct {
	userRepo     repository.UserRepository
	rechargeRepo repository.RechargeRepository
	tm           repository.Transaction
	logger       *log.Logger
	floor        float64
	locks        [lockStripes]chan struct{}
}

func New(
	userRepo repository.UserRepository,
	rechargeRepo repository.RechargeRepository,
	tm repository.Transaction,
	logger *log.Logger,
) *Ledger {
	l := &Ledger{
		userRepo:     userRepo,
		rechargeRepo: rechargeRepo,
		tm:           tm,
		logger:       logger,
		floor:        0,
	}
	for i := range l.locks {
		l.locks[i] = make(chan struct{}, 1)
	}
	return l
}

func (l *Ledger) lock(userId int64) func() {
	ch := l.locks[uint64(userId)%lockStripes]
	ch <- struct{}{}
	return func() { <-ch }
}

// Debit subtracts amount from the user's balance, refusing to cross
// the floor. Returns ErrInsufficientFunds when the guard rejects.
func (l *Ledger) Debit(ctx context.Context, userId int64, amount float64) error {
	if amount < 0 {
		return v1.ErrBadRequest
	}
	if amount == 0 {
		return nil
	}
	unlock := l.lock(userId)
	defer unlock()

	applied, err := l.userRepo.DebitBalance(ctx, userId, amount, l.floor)
	if err != nil {
		l.logger.WithContext(ctx).Error("ledger debit failed",
			zap.Int64("user_id", userId), zap.Float64("amount", amount), zap.Error(err))
		return v1.ErrInternalServerError
	}
	if !applied {
		return v1.ErrInsufficientFunds
	}
	return nil
}

// DebitAtMost subtracts up to amount, stopping at the floor, and
// reports how much was actually taken. The metering engine uses it to
// bill the final partial tick when a job outruns the balance.
func (l *Ledger) DebitAtMost(ctx context.Context, userId int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, nil
	}
	unlock := l.lock(userId)
	defer unlock()

	applied, err := l.userRepo.DebitBalance(ctx, userId, amount, l.floor)
	if err != nil {
		return 0, err
	}
	if applied {
		return amount, nil
	}

	// Guard rejected the full amount; take what is left above the
	// floor. Safe under the user lock.
	user, err := l.userRepo.GetByID(ctx, userId)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, v1.ErrNotFound
	}
	remaining := user.Balance - l.floor
	if remaining <= 0 {
		return 0, nil
	}
	applied, err = l.userRepo.DebitBalance(ctx, userId, remaining, l.floor)
	if err != nil || !applied {
		return 0, err
	}
	return remaining, nil
}

// Credit adds amount to the user's balance. Source is recorded for
// audit only.
func (l *Ledger) Credit(ctx context.Context, userId int64, amount float64, source string) error {
	if amount <= 0 {
		return v1.ErrBadRequest
	}
	unlock := l.lock(userId)
	defer unlock()

	if err := l.userRepo.CreditBalance(ctx, userId, amount); err != nil {
		l.logger.WithContext(ctx).Error("ledger credit failed",
			zap.Int64("user_id", userId), zap.Float64("amount", amount),
			zap.String("source", source), zap.Error(err))
		return v1.ErrInternalServerError
	}
	l.logger.WithContext(ctx).Info("ledger credit",
		zap.Int64("user_id", userId), zap.Float64("amount", amount), zap.String("source", source))
	return nil
}

// CreditRecharge applies a completed recharge to the balance. The
// credit rides inside the pending->completed transition, so replaying
// the same order is a no-op: the second transition matches zero rows
// and the credit never runs twice.
func (l *Ledger) CreditRecharge(ctx context.Context, orderNo string) error {
	record, err := l.rechargeRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if record == nil {
		return v1.ErrNotFound
	}

	unlock := l.lock(record.UserId)
	defer unlock()

	return l.tm.Transaction(ctx, func(ctx context.Context) error {
		moved, err := l.rechargeRepo.Transition(ctx, orderNo,
			model.RechargeStatusPending, model.RechargeStatusCompleted)
		if err != nil {
			return err
		}
		if !moved {
			// Already finalized; idempotent replay.
			return nil
		}
		return l.userRepo.CreditBalance(ctx, record.UserId, record.Amount)
	})
}

// AdminSetBalance is the administrative override. It holds the same
// per-user lock as organic mutations and refuses negative targets.
func (l *Ledger) AdminSetBalance(ctx context.Context, userId int64, balance float64) error {
	if balance < 0 {
		return v1.ErrBadRequest
	}
	unlock := l.lock(userId)
	defer unlock()

	if err := l.userRepo.SetBalance(ctx, userId, balance); err != nil {
		l.logger.WithContext(ctx).Error("ledger admin set balance failed",
			zap.Int64("user_id", userId), zap.Float64("balance", balance), zap.Error(err))
		return v1.ErrInternalServerError
	}
	return nil
}

// Balance reads the spendable balance.
func (l *Ledger) Balance(ctx context.Context, userId int64) (float64, time.Time, error) {
	user, err := l.userRepo.GetByID(ctx, userId)
	if err != nil {
		return 0, time.Time{}, v1.ErrInternalServerError
	}
	if user == nil {
		return 0, time.Time{}, v1.ErrNotFound
	}
	return user.Balance, user.UpdateTime, nil
}
