package metering

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

// fakePayer is an in-memory balance with the ledger's floor-at-zero
// semantics.
type fakePayer struct {
	mu      sync.Mutex
	balance float64
}

func (p *fakePayer) Debit(ctx context.Context, userId int64, amount float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balance-amount < 0 {
		return v1.ErrInsufficientFunds
	}
	p.balance -= amount
	return nil
}

func (p *fakePayer) DebitAtMost(ctx context.Context, userId int64, amount float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if amount <= 0 {
		return 0, nil
	}
	applied := amount
	if applied > p.balance {
		applied = p.balance
	}
	p.balance -= applied
	return applied, nil
}

func (p *fakePayer) remaining() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

type fakeRates struct {
	mu    sync.Mutex
	rates Rates
}

func (f *fakeRates) Rates(ctx context.Context) (Rates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rates, nil
}

func (f *fakeRates) set(r Rates) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = r
}

type recordSink struct {
	mu      sync.Mutex
	records []*model.UsageRecord
}

func (s *recordSink) Create(ctx context.Context, record *model.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *recordSink) ListByUser(ctx context.Context, userId int64, start, end *time.Time, limit, offset int) ([]*model.UsageRecord, int64, error) {
	return nil, 0, nil
}

func (s *recordSink) AggregateByUser(ctx context.Context, userId int64, start, end time.Time) (*repository.UsageAggregate, error) {
	return nil, nil
}

func (s *recordSink) all() []*model.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.UsageRecord(nil), s.records...)
}

type engineFixture struct {
	engine *Engine
	payer  *fakePayer
	rates  *fakeRates
	sink   *recordSink
	clock  time.Time
}

func newFixture(balance float64, rates Rates) *engineFixture {
	f := &engineFixture{
		payer: &fakePayer{balance: balance},
		rates: &fakeRates{rates: rates},
		sink:  &recordSink{},
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.engine = NewEngine(f.payer, f.rates, f.sink, &log.Logger{Logger: zap.NewNop()})
	f.engine.now = func() time.Time { return f.clock }
	return f
}

func (f *engineFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func TestGpuMeterAccrual(t *testing.T) {
	f := newFixture(100, Rates{GpuPerSecond: 0.002})
	require.NoError(t, f.engine.StartGpu(context.Background(), 1, "task_a", nil))

	f.advance(10 * time.Second)
	f.engine.Flush(context.Background())
	assert.InDelta(t, 100-10*0.002, f.payer.remaining(), 1e-9)

	f.advance(5 * time.Second)
	record, err := f.engine.Stop(context.Background(), "task_a", model.UsageTypeGpu)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.InDelta(t, 15.0, record.DurationSeconds, 1e-9)
	assert.InDelta(t, 15*0.002, record.Cost, 1e-9)
	assert.Equal(t, model.UsageTypeGpu, record.Type)
	assert.InDelta(t, 100-15*0.002, f.payer.remaining(), 1e-9)
}

func TestFlushPreemptsOnFundExhaustion(t *testing.T) {
	// 0.40 at 0.002/s funds exactly 200 seconds.
	f := newFixture(0.40, Rates{GpuPerSecond: 0.002})

	var preempted []string
	f.engine.SetPreemptor(func(ctx context.Context, taskId string, userId int64) {
		preempted = append(preempted, taskId)
		assert.Equal(t, int64(7), userId)
	})

	require.NoError(t, f.engine.StartGpu(context.Background(), 7, "task_a", nil))

	f.advance(150 * time.Second)
	f.engine.Flush(context.Background())
	assert.Empty(t, preempted)
	assert.True(t, f.engine.Running("task_a", model.UsageTypeGpu))

	// The next segment outruns the remaining 0.10.
	f.advance(100 * time.Second)
	f.engine.Flush(context.Background())

	require.Equal(t, []string{"task_a"}, preempted)
	assert.False(t, f.engine.Running("task_a", model.UsageTypeGpu))
	assert.InDelta(t, 0, f.payer.remaining(), 1e-9)

	records := f.sink.all()
	require.Len(t, records, 1)
	// Billed up to the instant the money ran out: 200 funded seconds.
	assert.InDelta(t, 200.0, records[0].DurationSeconds, 1e-9)
	assert.InDelta(t, 0.40, records[0].Cost, 1e-9)
}

func TestFlushRepricesNextSegment(t *testing.T) {
	f := newFixture(1000, Rates{GpuPerSecond: 0.002})
	require.NoError(t, f.engine.StartGpu(context.Background(), 1, "task_a", nil))

	// Price doubles mid-flight. The open segment keeps its opening
	// rate; the new price applies from the flush boundary on.
	f.rates.set(Rates{GpuPerSecond: 0.004})
	f.advance(10 * time.Second)
	f.engine.Flush(context.Background())
	assert.InDelta(t, 1000-10*0.002, f.payer.remaining(), 1e-9)

	f.advance(10 * time.Second)
	f.engine.Flush(context.Background())
	assert.InDelta(t, 1000-10*0.002-10*0.004, f.payer.remaining(), 1e-9)
}

func TestStorageMeterAccruesGbSeconds(t *testing.T) {
	// 2 GB at 0.0864 per GB-day is 0.000001/GB-second, so 2e-6/s.
	f := newFixture(100, Rates{StoragePerGbDay: 0.0864})
	require.NoError(t, f.engine.StartStorage(context.Background(), 1, "model_5", 2, nil))

	f.advance(1000 * time.Second)
	record, err := f.engine.Stop(context.Background(), "model_5", model.UsageTypeStorage)
	require.NoError(t, err)
	require.NotNil(t, record)

	// Duration is in GB-seconds: 1000 wall seconds of 2 GB.
	assert.InDelta(t, 2000.0, record.DurationSeconds, 1e-6)
	assert.InDelta(t, 1000*2e-6, record.Cost, 1e-9)
	assert.Contains(t, record.Details, "size_gb")
}

func TestRecordBandwidthOneShot(t *testing.T) {
	f := newFixture(10, Rates{BandwidthPerGb: 0.05})

	require.NoError(t, f.engine.RecordBandwidth(context.Background(), 1, "task_a", 4))
	assert.InDelta(t, 10-4*0.05, f.payer.remaining(), 1e-9)

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, model.UsageTypeBandwidth, records[0].Type)
	assert.InDelta(t, 0.2, records[0].Cost, 1e-9)
	assert.Zero(t, records[0].DurationSeconds)

	// Transfers are billed up front; an empty wallet rejects them.
	broke := newFixture(0.01, Rates{BandwidthPerGb: 0.05})
	err := broke.engine.RecordBandwidth(context.Background(), 1, "task_b", 4)
	assert.ErrorIs(t, err, v1.ErrInsufficientFunds)
	assert.Empty(t, broke.sink.all())
}

// slowPayer parks every Debit on a gate, standing in for a slow
// ledger round-trip.
type slowPayer struct {
	*fakePayer
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func (p *slowPayer) Debit(ctx context.Context, userId int64, amount float64) error {
	p.once.Do(func() { close(p.entered) })
	<-p.gate
	return p.fakePayer.Debit(ctx, userId, amount)
}

func TestStartDoesNotWaitOnFlushDebit(t *testing.T) {
	f := newFixture(100, Rates{GpuPerSecond: 0.002})
	slow := &slowPayer{
		fakePayer: f.payer,
		entered:   make(chan struct{}),
		gate:      make(chan struct{}),
	}
	f.engine.payer = slow

	require.NoError(t, f.engine.StartGpu(context.Background(), 1, "task_a", nil))
	f.advance(10 * time.Second)

	flushDone := make(chan struct{})
	go func() {
		f.engine.Flush(context.Background())
		close(flushDone)
	}()
	<-slow.entered

	// Dispatch must still be able to open meters while the flush is
	// parked inside the ledger call.
	started := make(chan error, 1)
	go func() {
		started <- f.engine.StartGpu(context.Background(), 2, "task_b", nil)
	}()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("StartGpu waited out an in-flight flush debit")
	}

	close(slow.gate)
	<-flushDone
	assert.InDelta(t, 100-10*0.002, f.payer.remaining(), 1e-9)
}

func TestStopUnknownMeter(t *testing.T) {
	f := newFixture(10, Rates{GpuPerSecond: 0.002})
	record, err := f.engine.Stop(context.Background(), "never_started", model.UsageTypeGpu)
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestStartDuplicateMeter(t *testing.T) {
	f := newFixture(10, Rates{GpuPerSecond: 0.002})
	require.NoError(t, f.engine.StartGpu(context.Background(), 1, "task_a", nil))
	assert.Error(t, f.engine.StartGpu(context.Background(), 1, "task_a", nil))
}
