package metering

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"
	"comfycloud/pkg/log"

	"go.uber.org/zap"
)

// secondsPerDay converts the per-GB-day storage price into a
// per-second rate.
const secondsPerDay = 86400

// Rates are the billing prices in effect for one flush cycle. Read
// fresh from the live system config on every cycle, so a price change
// applies to usage accrued after it within one interval.
type Rates struct {
	GpuPerSecond    float64
	StoragePerGbDay float64
	BandwidthPerGb  float64
}

// RatesProvider hands the engine the current prices. The system
// config service implements it.
type RatesProvider interface {
	Rates(ctx context.Context) (Rates, error)
}

// Payer is the slice of the ledger the engine needs. Debit returns
// ErrInsufficientFunds when the balance cannot cover the amount;
// DebitAtMost takes what is left and reports it.
type Payer interface {
	Debit(ctx context.Context, userId int64, amount float64) error
	DebitAtMost(ctx context.Context, userId int64, amount float64) (float64, error)
}

// PreemptFunc is invoked, outside the engine lock, when a meter's
// owner runs out of funds mid-flight. The task runner interrupts the
// worker; the engine has already stopped the meter by then.
type PreemptFunc func(ctx context.Context, taskId string, userId int64)

// Meter is one live accounting session. All fields are guarded by the
// engine lock.
type Meter struct {
	UserId    int64
	TaskId    string
	Type      model.UsageType
	Quantity  float64 // GB for storage meters, 1 otherwise
	StartedAt time.Time

	lastTick time.Time
	rate     float64 // effective price per second
	seconds  float64 // wall seconds for GPU, GB-seconds for storage
	cost     float64
	details  map[string]interface{}
}

// units converts a wall-clock span into the meter's accounting unit.
func (m *Meter) units(wallSeconds float64) float64 {
	if m.Type == model.UsageTypeStorage {
		return wallSeconds * m.Quantity
	}
	return wallSeconds
}

// Engine turns running work into balance debits and, on completion,
// one immutable usage record per meter. Accrual is segment based: the
// span between two flushes is priced at the rate in effect when the
// segment opened, and a rate change observed at a flush boundary
// starts a new segment.
type Engine struct {
	mu     sync.Mutex
	meters map[string]*Meter

	payer     Payer
	rates     RatesProvider
	usageRepo repository.UsageRecordRepository
	logger    *log.Logger

	preempt PreemptFunc
	now     func() time.Time
}

func NewEngine(
	payer Payer,
	rates RatesProvider,
	usageRepo repository.UsageRecordRepository,
	logger *log.Logger,
) *Engine {
	return &Engine{
		meters:    make(map[string]*Meter),
		payer:     payer,
		rates:     rates,
		usageRepo: usageRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// SetPreemptor installs the out-of-funds callback. Wired after
// construction because the task runner and the engine reference each
// other.
func (e *Engine) SetPreemptor(fn PreemptFunc) {
	e.mu.Lock()
	e.preempt = fn
	e.mu.Unlock()
}

func meterKey(taskId string, usageType model.UsageType) string {
	return taskId + "/" + string(usageType)
}

// StartGpu opens a GPU-time meter for a task. The clock starts now;
// the first flush bills from this instant.
func (e *Engine) StartGpu(ctx context.Context, userId int64, taskId string, details map[string]interface{}) error {
	return e.start(ctx, userId, taskId, model.UsageTypeGpu, 1, details)
}

// StartStorage opens a storage meter billed at sizeGb times the
// per-GB-day price.
func (e *Engine) StartStorage(ctx context.Context, userId int64, ref string, sizeGb float64, details map[string]interface{}) error {
	return e.start(ctx, userId, ref, model.UsageTypeStorage, sizeGb, details)
}

func (e *Engine) start(ctx context.Context, userId int64, taskId string, usageType model.UsageType, qty float64, details map[string]interface{}) error {
	rates, err := e.rates.Rates(ctx)
	if err != nil {
		return err
	}
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	key := meterKey(taskId, usageType)
	if _, ok := e.meters[key]; ok {
		return errors.New("meter already running for " + key)
	}
	e.meters[key] = &Meter{
		UserId:    userId,
		TaskId:    taskId,
		Type:      usageType,
		Quantity:  qty,
		StartedAt: now,
		lastTick:  now,
		rate:      effectiveRate(rates, usageType, qty),
		details:   details,
	}
	return nil
}

// RecordBandwidth bills a completed transfer in one shot: debit, then
// append the record. No meter is kept open.
func (e *Engine) RecordBandwidth(ctx context.Context, userId int64, taskId string, gb float64) error {
	rates, err := e.rates.Rates(ctx)
	if err != nil {
		return err
	}
	cost := gb * rates.BandwidthPerGb
	if err := e.payer.Debit(ctx, userId, cost); err != nil {
		return err
	}
	now := e.now()
	details, _ := json.Marshal(map[string]interface{}{"gb": gb, "rate_per_gb": rates.BandwidthPerGb})
	return e.usageRepo.Create(ctx, &model.UsageRecord{
		UserId:          userId,
		TaskId:          taskId,
		Type:            model.UsageTypeBandwidth,
		StartedAt:       now,
		EndedAt:         now,
		DurationSeconds: 0,
		Cost:            cost,
		Details:         string(details),
	})
}

// Flush closes the open segment of every meter, debits the accrued
// cost, and re-reads rates for the next segment. A meter whose owner
// cannot pay is billed for whatever balance remains, stopped, its
// record written, and its task handed to the preemptor.
func (e *Engine) Flush(ctx context.Context) {
	rates, err := e.rates.Rates(ctx)
	if err != nil {
		e.logger.WithContext(ctx).Error("metering flush: rates unavailable", zap.Error(err))
		return
	}
	now := e.now()

	// Snapshot the due segments under the lock, then talk to the
	// ledger with the lock released so Start/Stop on the dispatch path
	// never wait on a debit round-trip. Each tick is advanced at
	// snapshot time; a Stop racing a debit bills only from this
	// instant, so no span is charged twice.
	type segment struct {
		key      string
		meter    *Meter
		prevTick time.Time
		delta    float64
		due      float64
	}

	e.mu.Lock()
	segments := make([]segment, 0, len(e.meters))
	for key, m := range e.meters {
		delta := now.Sub(m.lastTick).Seconds()
		if delta < 0 {
			delta = 0
		}
		segments = append(segments, segment{
			key:      key,
			meter:    m,
			prevTick: m.lastTick,
			delta:    delta,
			due:      delta * m.rate,
		})
		m.lastTick = now
	}
	e.mu.Unlock()

	var exhausted []*Meter
	for _, seg := range segments {
		m := seg.meter
		err := e.payer.Debit(ctx, m.UserId, seg.due)
		switch {
		case errors.Is(err, v1.ErrInsufficientFunds):
			applied, derr := e.payer.DebitAtMost(ctx, m.UserId, seg.due)
			if derr != nil {
				e.logger.WithContext(ctx).Error("metering partial debit failed",
					zap.Int64("user_id", m.UserId), zap.Error(derr))
			}
			e.mu.Lock()
			// Close the meter at the instant the money ran out.
			if m.rate > 0 {
				m.seconds += m.units(applied / m.rate)
			}
			m.cost += applied
			open := e.meters[seg.key] == m
			if open {
				delete(e.meters, seg.key)
			}
			e.mu.Unlock()
			// A concurrent Stop already wrote the record (and may have
			// reopened the key); the partial debit stands either way.
			if open {
				exhausted = append(exhausted, m)
			}
		case err != nil:
			// Transient ledger failure: reopen the segment so the next
			// flush retries the whole span.
			e.logger.WithContext(ctx).Error("metering debit failed",
				zap.Int64("user_id", m.UserId), zap.String("task_id", m.TaskId), zap.Error(err))
			e.mu.Lock()
			if e.meters[seg.key] == m {
				m.lastTick = seg.prevTick
			}
			e.mu.Unlock()
		default:
			e.mu.Lock()
			m.seconds += m.units(seg.delta)
			m.cost += seg.due
			m.rate = effectiveRate(rates, m.Type, m.Quantity)
			e.mu.Unlock()
		}
	}

	for _, m := range exhausted {
		e.logger.WithContext(ctx).Warn("meter preempted: insufficient funds",
			zap.Int64("user_id", m.UserId),
			zap.String("task_id", m.TaskId),
			zap.Float64("accrued_cost", m.cost))
		e.writeRecord(ctx, m, now)
		e.mu.Lock()
		fn := e.preempt
		e.mu.Unlock()
		if fn != nil && m.Type == model.UsageTypeGpu {
			fn(ctx, m.TaskId, m.UserId)
		}
	}
}

// Stop closes a meter: bills the final partial segment, writes the
// immutable record, and returns the totals. Stopping an unknown meter
// returns nil, nil; the funds-exhausted path may have closed it first.
func (e *Engine) Stop(ctx context.Context, taskId string, usageType model.UsageType) (*model.UsageRecord, error) {
	now := e.now()

	e.mu.Lock()
	key := meterKey(taskId, usageType)
	m, ok := e.meters[key]
	if !ok {
		e.mu.Unlock()
		return nil, nil
	}
	delete(e.meters, key)

	delta := now.Sub(m.lastTick).Seconds()
	if delta < 0 {
		delta = 0
	}
	due := delta * m.rate
	rate := m.rate
	e.mu.Unlock()

	var applied float64
	if due > 0 {
		var err error
		applied, err = e.payer.DebitAtMost(ctx, m.UserId, due)
		if err != nil {
			e.logger.WithContext(ctx).Error("metering final debit failed",
				zap.Int64("user_id", m.UserId), zap.Error(err))
		}
	}

	// A concurrent Flush may still hold this meter from its snapshot,
	// so the fold stays under the lock.
	e.mu.Lock()
	if due > 0 {
		if rate > 0 {
			m.seconds += m.units(applied / rate)
		} else {
			m.seconds += m.units(delta)
		}
		m.cost += applied
	} else {
		m.seconds += m.units(delta)
	}
	closed := *m
	e.mu.Unlock()

	return e.writeRecord(ctx, &closed, now), nil
}

// Running reports whether a meter is currently open.
func (e *Engine) Running(taskId string, usageType model.UsageType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.meters[meterKey(taskId, usageType)]
	return ok
}

func (e *Engine) writeRecord(ctx context.Context, m *Meter, endedAt time.Time) *model.UsageRecord {
	details := m.details
	if details == nil {
		details = map[string]interface{}{}
	}
	if m.Type == model.UsageTypeStorage {
		details["size_gb"] = m.Quantity
	}
	blob, _ := json.Marshal(details)

	record := &model.UsageRecord{
		UserId:          m.UserId,
		TaskId:          m.TaskId,
		Type:            m.Type,
		StartedAt:       m.StartedAt,
		EndedAt:         endedAt,
		DurationSeconds: m.seconds,
		Cost:            m.cost,
		Details:         string(blob),
	}
	if err := e.usageRepo.Create(ctx, record); err != nil {
		e.logger.WithContext(ctx).Error("usage record write failed",
			zap.Int64("user_id", m.UserId), zap.String("task_id", m.TaskId), zap.Error(err))
	}
	return record
}

func effectiveRate(rates Rates, usageType model.UsageType, qty float64) float64 {
	switch usageType {
	case model.UsageTypeGpu:
		return rates.GpuPerSecond
	case model.UsageTypeStorage:
		return rates.StoragePerGbDay * qty / secondsPerDay
	default:
		return 0
	}
}
