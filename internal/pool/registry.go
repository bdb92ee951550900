package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/internal/repository"
	"comfycloud/pkg/log"

	"go.uber.org/zap"
)

// failureThreshold is how many consecutive probe failures demote an
// instance to offline. A single success resets the counter.
const failureThreshold = 3

// InstanceState is a point-in-time copy of one instance's runtime
// state. Callers get copies, never pointers into the registry.
type InstanceState struct {
	Id             string
	Endpoint       string
	DisplayName    string
	GpuType        string
	Status         model.InstanceStatus
	QueueSize      int
	CurrentTask    string
	GpuUtilization float64
	VramUsedGb     float64
	VramTotalGb    float64
	RegisteredAt   time.Time
	Failures       int
}

func (s InstanceState) UptimeSeconds() int64 {
	if s.Status == model.InstanceStatusOffline || s.RegisteredAt.IsZero() {
		return 0
	}
	return int64(time.Since(s.RegisteredAt).Seconds())
}

// Telemetry is what a health probe brings back.
type Telemetry struct {
	QueueRunning   int
	QueuePending   int
	GpuUtilization float64
	VramUsedGb     float64
	VramTotalGb    float64
}

type instanceEntry struct {
	state InstanceState
}

// Registry owns the live view of the worker pool. The database row is
// a durable shadow written back on mutation; scheduling and health
// decisions never touch the database.
type Registry struct {
	mu           sync.Mutex
	entries      map[string]*instanceEntry
	instanceRepo repository.InstanceRepository
	logger       *log.Logger
}

func NewRegistry(instanceRepo repository.InstanceRepository, logger *log.Logger) *Registry {
	r := &Registry{
		entries:      make(map[string]*instanceEntry),
		instanceRepo: instanceRepo,
		logger:       logger,
	}
	if err := r.Load(context.Background()); err != nil {
		logger.Error("instance registry load failed", zap.Error(err))
	}
	return r
}

// Load hydrates the registry from persisted rows at startup. Every
// instance comes back offline until its first successful probe.
func (r *Registry) Load(ctx context.Context) error {
	instances, err := r.instanceRepo.List(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range instances {
		r.entries[inst.Id] = &instanceEntry{state: InstanceState{
			Id:           inst.Id,
			Endpoint:     inst.Endpoint,
			DisplayName:  inst.DisplayName,
			GpuType:      inst.GpuType,
			Status:       model.InstanceStatusOffline,
			VramTotalGb:  inst.VramTotalGb,
			RegisteredAt: inst.RegisteredAt,
		}}
	}
	r.logger.Info("instance registry loaded", zap.Int("count", len(instances)))
	return nil
}

// Register persists a new instance and adds it to the pool, offline
// until the first probe succeeds.
func (r *Registry) Register(ctx context.Context, inst *model.Instance) error {
	existing, err := r.instanceRepo.GetByID(ctx, inst.Id)
	if err != nil {
		return err
	}
	if existing != nil {
		return v1.ErrInstanceExists
	}
	inst.Status = model.InstanceStatusOffline
	inst.RegisteredAt = time.Now()
	if err := r.instanceRepo.Create(ctx, inst); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[inst.Id]; ok {
		return v1.ErrInstanceExists
	}
	r.entries[inst.Id] = &instanceEntry{state: InstanceState{
		Id:           inst.Id,
		Endpoint:     inst.Endpoint,
		DisplayName:  inst.DisplayName,
		GpuType:      inst.GpuType,
		Status:       model.InstanceStatusOffline,
		RegisteredAt: inst.RegisteredAt,
	}}
	return nil
}

// Deregister removes the instance from the pool and deletes the row.
// The scheduler never picks it again from this point; tasks still
// running on it are redispatched or failed by the instance service,
// which follows up with HandleInstanceLoss.
func (r *Registry) Deregister(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return v1.ErrNotFound
	}
	if err := r.instanceRepo.Delete(ctx, id); err != nil {
		return err
	}
	r.logger.WithContext(ctx).Info("instance deregistered", zap.String("instance_id", id))
	return nil
}

// Get returns a copy of one instance's state.
func (r *Registry) Get(id string) (InstanceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return InstanceState{}, false
	}
	return e.state, true
}

// Snapshot returns a copy of every instance's state, sorted by id so
// listings are stable.
func (r *Registry) Snapshot() []InstanceState {
	r.mu.Lock()
	states := make([]InstanceState, 0, len(r.entries))
	for _, e := range r.entries {
		states = append(states, e.state)
	}
	r.mu.Unlock()
	sort.Slice(states, func(i, j int) bool { return states[i].Id < states[j].Id })
	return states
}

// ReportSuccess folds a successful probe into the runtime state and
// clears the failure counter. An offline instance comes back online.
func (r *Registry) ReportSuccess(ctx context.Context, id string, t Telemetry) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	recovered := e.state.Status == model.InstanceStatusOffline
	e.state.Failures = 0
	e.state.GpuUtilization = t.GpuUtilization
	e.state.VramUsedGb = t.VramUsedGb
	if t.VramTotalGb > 0 {
		e.state.VramTotalGb = t.VramTotalGb
	}
	if t.QueueRunning > 0 {
		e.state.Status = model.InstanceStatusBusy
	} else {
		e.state.Status = model.InstanceStatusOnline
		e.state.CurrentTask = ""
	}
	if recovered {
		// Dispatch counters accumulated while offline are stale.
		e.state.QueueSize = t.QueueRunning + t.QueuePending
	}
	state := e.state
	r.mu.Unlock()

	if recovered {
		r.logger.WithContext(ctx).Info("instance recovered", zap.String("instance_id", id))
	}
	r.persist(ctx, state)
}

// ReportFailure bumps the failure counter; at the threshold the
// instance is demoted to offline and stays out of scheduling until a
// probe succeeds again.
func (r *Registry) ReportFailure(ctx context.Context, id string, probeErr error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.state.Failures++
	demoted := e.state.Failures >= failureThreshold && e.state.Status != model.InstanceStatusOffline
	if demoted {
		e.state.Status = model.InstanceStatusOffline
		e.state.GpuUtilization = 0
		e.state.VramUsedGb = 0
	}
	state := e.state
	r.mu.Unlock()

	if demoted {
		r.logger.WithContext(ctx).Warn("instance marked offline",
			zap.String("instance_id", id),
			zap.Int("consecutive_failures", state.Failures),
			zap.Error(probeErr))
		r.persist(ctx, state)
	}
}

// SetCurrentTask records which task an instance is executing. Empty
// clears it.
func (r *Registry) SetCurrentTask(ctx context.Context, id, taskId string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.state.CurrentTask = taskId
	if taskId != "" {
		e.state.Status = model.InstanceStatusBusy
	}
	state := e.state
	r.mu.Unlock()
	r.persist(ctx, state)
}

// Release decrements the dispatch queue counter after a task leaves
// the instance, clamped at zero.
func (r *Registry) Release(ctx context.Context, id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if e.state.QueueSize > 0 {
		e.state.QueueSize--
	}
	state := e.state
	r.mu.Unlock()
	r.persist(ctx, state)
}

func (r *Registry) persist(ctx context.Context, s InstanceState) {
	err := r.instanceRepo.UpdateRuntime(ctx, s.Id, map[string]interface{}{
		"status":          s.Status,
		"queue_size":      s.QueueSize,
		"current_task":    s.CurrentTask,
		"gpu_utilization": s.GpuUtilization,
		"vram_used_gb":    s.VramUsedGb,
		"vram_total_gb":   s.VramTotalGb,
	})
	if err != nil {
		r.logger.WithContext(ctx).Error("instance state write-back failed",
			zap.String("instance_id", s.Id), zap.Error(err))
	}
}
