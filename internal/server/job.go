package server

import (
	"context"
	"time"

	"comfycloud/internal/job"
	"comfycloud/pkg/log"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type JobServer struct {
	log             *log.Logger
	scheduler       *gocron.Scheduler
	poolJob         *job.PoolJob
	meteringJob     *job.MeteringJob
	subscriptionJob *job.SubscriptionJob
}

func NewJobServer(
	log *log.Logger,
	poolJob *job.PoolJob,
	meteringJob *job.MeteringJob,
	subscriptionJob *job.SubscriptionJob,
) *JobServer {
	return &JobServer{
		log:             log,
		scheduler:       gocron.NewScheduler(time.UTC),
		poolJob:         poolJob,
		meteringJob:     meteringJob,
		subscriptionJob: subscriptionJob,
	}
}

func (j *JobServer) Start(ctx context.Context) error {
	gocron.SetPanicHandler(func(jobName string, recoverData interface{}) {
		j.log.Error("job panic", zap.String("job", jobName), zap.Any("recover", recoverData))
	})

	// Fast tick; the monitor enforces the configured interval itself.
	_, err := j.scheduler.Every(5).Seconds().Do(func() {
		if err := j.poolJob.HealthTick(ctx); err != nil {
			j.log.Error("health tick failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	_, err = j.scheduler.Every(5).Seconds().Do(func() {
		if err := j.meteringJob.Flush(ctx); err != nil {
			j.log.Error("metering flush failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	_, err = j.scheduler.Every(1).Minute().Do(func() {
		if err := j.subscriptionJob.Sweep(ctx); err != nil {
			j.log.Error("subscription sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	j.scheduler.StartBlocking()
	return nil
}

func (j *JobServer) Stop(ctx context.Context) error {
	j.scheduler.Stop()
	return nil
}
