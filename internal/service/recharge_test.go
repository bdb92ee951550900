package service

import (
	"context"
	"sync"
	"testing"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/ledger"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stateful in-memory repos: the recharge state machine is about
// transitions, which is awkward to script call-by-call.

type memUserRepo struct {
	mu       sync.Mutex
	balances map[int64]float64
	tiers    map[int64]string
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

// Update mirrors the repository contract: profile columns only, never
// the balance.
func (r *memUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tiers == nil {
		r.tiers = make(map[int64]string)
	}
	r.tiers[user.Id] = user.Tier
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[id]
	if !ok {
		return nil, nil
	}
	tier := r.tiers[id]
	if tier == "" {
		tier = "basic"
	}
	return &model.User{Id: id, Username: "tester", Tier: tier, Balance: balance}, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (r *memUserRepo) ListWithPagination(ctx context.Context, limit, offset int, search string) ([]*model.User, int64, error) {
	return nil, 0, nil
}

func (r *memUserRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

func (r *memUserRepo) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (r *memUserRepo) DebitBalance(ctx context.Context, id int64, amount, floor float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[id]-amount < floor {
		return false, nil
	}
	r.balances[id] -= amount
	return true, nil
}

func (r *memUserRepo) CreditBalance(ctx context.Context, id int64, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[id] += amount
	return nil
}

func (r *memUserRepo) SetBalance(ctx context.Context, id int64, balance float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[id] = balance
	return nil
}

func (r *memUserRepo) AddStorageUsed(ctx context.Context, id int64, deltaGb float64) error {
	return nil
}

type memRechargeRepo struct {
	mu      sync.Mutex
	nextId  int64
	records map[string]*model.RechargeRecord
}

func newMemRechargeRepo() *memRechargeRepo {
	return &memRechargeRepo{records: make(map[string]*model.RechargeRecord)}
}

func (r *memRechargeRepo) Create(ctx context.Context, record *model.RechargeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	record.Id = r.nextId
	record.CreateTime = time.Now()
	r.records[record.OrderNo] = record
	return nil
}

func (r *memRechargeRepo) GetByOrderNo(ctx context.Context, orderNo string) (*model.RechargeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[orderNo]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *memRechargeRepo) ListWithPagination(ctx context.Context, limit, offset int) ([]*model.RechargeRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.RechargeRecord, 0, len(r.records))
	for _, record := range r.records {
		copied := *record
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *memRechargeRepo) Transition(ctx context.Context, orderNo string, from, to model.RechargeStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[orderNo]
	if !ok || record.Status != from {
		return false, nil
	}
	record.Status = to
	now := time.Now()
	if to == model.RechargeStatusCompleted {
		record.CompletedAt = &now
	}
	return true, nil
}

func (r *memRechargeRepo) Stats(ctx context.Context, now time.Time) (*repository.FinanceStats, error) {
	return &repository.FinanceStats{}, nil
}

func (r *memRechargeRepo) statusOf(orderNo string) model.RechargeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[orderNo].Status
}

type noopTM struct{}

func (noopTM) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noopSyslog struct{}

func (noopSyslog) Record(ctx context.Context, level, source, message string, userId *int64, username string) {
}

func (noopSyslog) List(ctx context.Context, req *v1.ListSystemLogsRequest) (*v1.ListSystemLogsResponse, error) {
	return nil, nil
}

type rechargeFixture struct {
	service   RechargeService
	users     *memUserRepo
	recharges *memRechargeRepo
}

func newRechargeFixture(balances map[int64]float64) *rechargeFixture {
	users := &memUserRepo{balances: balances}
	recharges := newMemRechargeRepo()
	l := ledger.New(users, recharges, noopTM{}, testLogger())
	return &rechargeFixture{
		service:   NewRechargeService(testService(), recharges, users, l, noopSyslog{}),
		users:     users,
		recharges: recharges,
	}
}

func pendingOrder(f *rechargeFixture, orderNo string, userId int64, amount float64) {
	_ = f.recharges.Create(context.Background(), &model.RechargeRecord{
		UserId:   userId,
		OrderNo:  orderNo,
		Amount:   amount,
		Currency: "CNY",
		Status:   model.RechargeStatusPending,
	})
}

func TestNotifyCompletedCreditsOnce(t *testing.T) {
	f := newRechargeFixture(map[int64]float64{1: 0})
	pendingOrder(f, "R1", 1, 100)

	notify := &v1.RechargeNotifyRequest{OrderNo: "R1", Status: "completed"}
	require.NoError(t, f.service.Notify(context.Background(), notify))
	assert.Equal(t, model.RechargeStatusCompleted, f.recharges.statusOf("R1"))

	user, _ := f.users.GetByID(context.Background(), 1)
	assert.InDelta(t, 100.0, user.Balance, 1e-9)

	// Provider replay: still completed, still 100.
	require.NoError(t, f.service.Notify(context.Background(), notify))
	user, _ = f.users.GetByID(context.Background(), 1)
	assert.InDelta(t, 100.0, user.Balance, 1e-9)
}

func TestNotifyFailed(t *testing.T) {
	f := newRechargeFixture(map[int64]float64{1: 0})
	pendingOrder(f, "R1", 1, 100)

	require.NoError(t, f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "R1", Status: "failed"}))
	assert.Equal(t, model.RechargeStatusFailed, f.recharges.statusOf("R1"))

	user, _ := f.users.GetByID(context.Background(), 1)
	assert.Zero(t, user.Balance)

	// failed -> failed replay is accepted, anything else is closed.
	assert.NoError(t, f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "R1", Status: "failed"}))
}

func TestNotifyFailedAfterCompletedRejected(t *testing.T) {
	f := newRechargeFixture(map[int64]float64{1: 0})
	pendingOrder(f, "R1", 1, 100)

	require.NoError(t, f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "R1", Status: "completed"}))

	err := f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "R1", Status: "failed"})
	assert.ErrorIs(t, err, v1.ErrRechargeClosed)
	assert.Equal(t, model.RechargeStatusCompleted, f.recharges.statusOf("R1"))
}

func TestNotifyRefundedFlagsWithoutClawback(t *testing.T) {
	f := newRechargeFixture(map[int64]float64{1: 0})
	pendingOrder(f, "R1", 1, 100)

	require.NoError(t, f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "R1", Status: "completed"}))
	require.NoError(t, f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "R1", Status: "refunded"}))

	assert.Equal(t, model.RechargeStatusRefunded, f.recharges.statusOf("R1"))

	// The credit stays; recovery is a manual finance operation.
	user, _ := f.users.GetByID(context.Background(), 1)
	assert.InDelta(t, 100.0, user.Balance, 1e-9)
}

func TestNotifyRefundBeforeCompletionRejected(t *testing.T) {
	f := newRechargeFixture(map[int64]float64{1: 0})
	pendingOrder(f, "R1", 1, 100)

	err := f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "R1", Status: "refunded"})
	assert.ErrorIs(t, err, v1.ErrRechargeClosed)
}

func TestNotifyUnknownOrder(t *testing.T) {
	f := newRechargeFixture(map[int64]float64{})
	err := f.service.Notify(context.Background(),
		&v1.RechargeNotifyRequest{OrderNo: "missing", Status: "completed"})
	assert.ErrorIs(t, err, v1.ErrNotFound)
}
