package job

import (
	"context"

	"comfycloud/internal/metering"
)

// MeteringJob closes one accounting segment for every live meter.
type MeteringJob struct {
	*Job
	engine *metering.Engine
}

func NewMeteringJob(job *Job, engine *metering.Engine) *MeteringJob {
	return &MeteringJob{
		Job:    job,
		engine: engine,
	}
}

func (j *MeteringJob) Flush(ctx context.Context) error {
	j.engine.Flush(ctx)
	return nil
}
