package pool

import (
	"context"

	v1 "comfycloud/api/v1"
	"comfycloud/internal/model"
	"comfycloud/pkg/log"

	"go.uber.org/zap"
)

// SelectRequest carries the scheduling constraints for one task.
type SelectRequest struct {
	// GpuType pins the task to one GPU model. Empty means any.
	GpuType string
}

// Limits are the pool parameters in effect for one selection, read
// from the live system config by the caller.
type Limits struct {
	MaxQueuePerInstance int
}

// Scheduler places tasks on instances. Selection and the queue
// increment happen inside one registry critical section, so two
// concurrent submissions can never both observe the same free slot.
type Scheduler struct {
	registry *Registry
	logger   *log.Logger
}

func NewScheduler(registry *Registry, logger *log.Logger) *Scheduler {
	return &Scheduler{registry: registry, logger: logger}
}

// Select picks the best eligible instance and reserves a queue slot on
// it. Eligible means online or busy, matching the requested GPU type,
// and below the per-instance queue cap. Preference order: fewest
// queued tasks, then lowest GPU utilization, then lowest id. Returns
// ErrNoCapacity, mutating nothing, when no instance qualifies.
func (s *Scheduler) Select(ctx context.Context, req SelectRequest, limits Limits) (InstanceState, error) {
	maxQueue := limits.MaxQueuePerInstance
	if maxQueue <= 0 {
		maxQueue = 1
	}

	s.registry.mu.Lock()
	var best *instanceEntry
	for _, e := range s.registry.entries {
		st := &e.state
		if st.Status == model.InstanceStatusOffline {
			continue
		}
		if req.GpuType != "" && st.GpuType != req.GpuType {
			continue
		}
		if st.QueueSize >= maxQueue {
			continue
		}
		if best == nil || preferred(st, &best.state) {
			best = e
		}
	}
	if best == nil {
		s.registry.mu.Unlock()
		return InstanceState{}, v1.ErrNoCapacity
	}
	best.state.QueueSize++
	picked := best.state
	s.registry.mu.Unlock()

	s.logger.WithContext(ctx).Debug("instance selected",
		zap.String("instance_id", picked.Id),
		zap.Int("queue_size", picked.QueueSize))
	s.registry.persist(ctx, picked)
	return picked, nil
}

// Cancel returns a reserved slot after a dispatch that never reached
// the worker.
func (s *Scheduler) Cancel(ctx context.Context, instanceId string) {
	s.registry.Release(ctx, instanceId)
}

func preferred(a, b *InstanceState) bool {
	if a.QueueSize != b.QueueSize {
		return a.QueueSize < b.QueueSize
	}
	if a.GpuUtilization != b.GpuUtilization {
		return a.GpuUtilization < b.GpuUtilization
	}
	return a.Id < b.Id
}
