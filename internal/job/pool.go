package job

import (
	"context"
	"time"

	"comfycloud/internal/pool"
	"comfycloud/internal/service"
)

// PoolJob drives the health monitor. The job ticks faster than any
// sensible sweep interval; the monitor itself decides whether a sweep
// is due, so the interval in the system config applies within one
// cycle of being changed.
type PoolJob struct {
	*Job
	monitor       *pool.Monitor
	configService service.SystemConfigService
}

func NewPoolJob(job *Job, monitor *pool.Monitor, configService service.SystemConfigService) *PoolJob {
	return &PoolJob{
		Job:           job,
		monitor:       monitor,
		configService: configService,
	}
}

func (j *PoolJob) HealthTick(ctx context.Context) error {
	conf, err := j.configService.Get(ctx)
	if err != nil {
		return err
	}
	interval := time.Duration(conf.InstancePool.HealthCheckIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	j.monitor.TickIfDue(ctx, interval)
	return nil
}
