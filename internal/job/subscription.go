package job

import (
	"context"

	"comfycloud/internal/service"
)

// SubscriptionJob expires lapsed subscriptions. Reads are already
// safe without it; the sweep just makes the rows catch up.
type SubscriptionJob struct {
	*Job
	subscriptionService service.SubscriptionService
}

func NewSubscriptionJob(job *Job, subscriptionService service.SubscriptionService) *SubscriptionJob {
	return &SubscriptionJob{
		Job:                 job,
		subscriptionService: subscriptionService,
	}
}

func (j *SubscriptionJob) Sweep(ctx context.Context) error {
	return j.subscriptionService.SweepExpired(ctx)
}
