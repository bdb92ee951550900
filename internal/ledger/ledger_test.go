package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"
	"comfycloud/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	balances map[int64]float64
}

func newFakeUserRepo(balances map[int64]float64) *fakeUserRepo {
	return &fakeUserRepo{balances: balances}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[id]
	if !ok {
		return nil, nil
	}
	return &model.User{Id: id, Balance: balance, UpdateTime: time.Now()}, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) ListWithPagination(ctx context.Context, limit, offset int, search string) ([]*model.User, int64, error) {
	return nil, 0, nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

func (r *fakeUserRepo) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeUserRepo) DebitBalance(ctx context.Context, id int64, amount, floor float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[id]
	if !ok || balance-amount < floor {
		return false, nil
	}
	r.balances[id] = balance - amount
	return true, nil
}

func (r *fakeUserRepo) CreditBalance(ctx context.Context, id int64, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[id] += amount
	return nil
}

func (r *fakeUserRepo) SetBalance(ctx context.Context, id int64, balance float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[id] = balance
	return nil
}

func (r *fakeUserRepo) AddStorageUsed(ctx context.Context, id int64, deltaGb float64) error {
	return nil
}

func (r *fakeUserRepo) balanceOf(id int64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[id]
}

type fakeRechargeRepo struct {
	mu      sync.Mutex
	records map[string]*model.RechargeRecord
}

func newFakeRechargeRepo(records ...*model.RechargeRecord) *fakeRechargeRepo {
	r := &fakeRechargeRepo{records: make(map[string]*model.RechargeRecord)}
	for _, record := range records {
		r.records[record.OrderNo] = record
	}
	return r
}

func (r *fakeRechargeRepo) Create(ctx context.Context, record *model.RechargeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.OrderNo] = record
	return nil
}

func (r *fakeRechargeRepo) GetByOrderNo(ctx context.Context, orderNo string) (*model.RechargeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[orderNo]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *fakeRechargeRepo) ListWithPagination(ctx context.Context, limit, offset int) ([]*model.RechargeRecord, int64, error) {
	return nil, 0, nil
}

func (r *fakeRechargeRepo) Transition(ctx context.Context, orderNo string, from, to model.RechargeStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[orderNo]
	if !ok || record.Status != from {
		return false, nil
	}
	record.Status = to
	return true, nil
}

func (r *fakeRechargeRepo) Stats(ctx context.Context, now time.Time) (*repository.FinanceStats, error) {
	return nil, nil
}

type fakeTM struct{}

func (fakeTM) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testLogger() *log.Logger {
	return &log.Logger{Logger: zap.NewNop()}
}

func TestDebit(t *testing.T) {
	users := newFakeUserRepo(map[int64]float64{1: 10})
	l := New(users, newFakeRechargeRepo(), fakeTM{}, testLogger())

	require.NoError(t, l.Debit(context.Background(), 1, 4))
	assert.InDelta(t, 6.0, users.balanceOf(1), 1e-9)

	err := l.Debit(context.Background(), 1, 7)
	assert.ErrorIs(t, err, v1.ErrInsufficientFunds)
	assert.InDelta(t, 6.0, users.balanceOf(1), 1e-9)

	assert.ErrorIs(t, l.Debit(context.Background(), 1, -1), v1.ErrBadRequest)
}

func TestDebitConcurrentConservation(t *testing.T) {
	users := newFakeUserRepo(map[int64]float64{1: 100})
	l := New(users, newFakeRechargeRepo(), fakeTM{}, testLogger())

	const workers = 50
	var wg sync.WaitGroup
	var granted int
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Debit(context.Background(), 1, 3); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every granted debit took exactly 3; the rejections took nothing.
	assert.InDelta(t, 100-float64(granted)*3, users.balanceOf(1), 1e-9)
	assert.True(t, users.balanceOf(1) >= 0)
}

func TestDebitAtMostPartial(t *testing.T) {
	users := newFakeUserRepo(map[int64]float64{1: 2.5})
	l := New(users, newFakeRechargeRepo(), fakeTM{}, testLogger())

	applied, err := l.DebitAtMost(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, applied, 1e-9)
	assert.InDelta(t, 0.0, users.balanceOf(1), 1e-9)

	applied, err = l.DebitAtMost(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestCreditRechargeIdempotent(t *testing.T) {
	users := newFakeUserRepo(map[int64]float64{7: 0})
	recharges := newFakeRechargeRepo(&model.RechargeRecord{
		OrderNo: "R100",
		UserId:  7,
		Amount:  50,
		Status:  model.RechargeStatusPending,
	})
	l := New(users, recharges, fakeTM{}, testLogger())

	require.NoError(t, l.CreditRecharge(context.Background(), "R100"))
	assert.InDelta(t, 50.0, users.balanceOf(7), 1e-9)

	// Provider callback replay: transition matches zero rows, credit
	// must not run twice.
	require.NoError(t, l.CreditRecharge(context.Background(), "R100"))
	assert.InDelta(t, 50.0, users.balanceOf(7), 1e-9)
}

func TestCreditRechargeUnknownOrder(t *testing.T) {
	l := New(newFakeUserRepo(map[int64]float64{}), newFakeRechargeRepo(), fakeTM{}, testLogger())
	assert.ErrorIs(t, l.CreditRecharge(context.Background(), "missing"), v1.ErrNotFound)
}

func TestAdminSetBalance(t *testing.T) {
	users := newFakeUserRepo(map[int64]float64{1: 3})
	l := New(users, newFakeRechargeRepo(), fakeTM{}, testLogger())

	require.NoError(t, l.AdminSetBalance(context.Background(), 1, 42))
	assert.InDelta(t, 42.0, users.balanceOf(1), 1e-9)

	assert.ErrorIs(t, l.AdminSetBalance(context.Background(), 1, -1), v1.ErrBadRequest)
	assert.InDelta(t, 42.0, users.balanceOf(1), 1e-9)
}

func TestBalance(t *testing.T) {
	users := newFakeUserRepo(map[int64]float64{1: 9.5})
	l := New(users, newFakeRechargeRepo(), fakeTM{}, testLogger())

	balance, _, err := l.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 9.5, balance, 1e-9)

	_, _, err = l.Balance(context.Background(), 404)
	assert.ErrorIs(t, err, v1.ErrNotFound)
}
