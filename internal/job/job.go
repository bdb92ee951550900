package job

import (
	"comfycloud/pkg/log"
)

type Job struct {
	logger *log.Logger
}

func NewJob(logger *log.Logger) *Job {
	return &Job{
		logger: logger,
	}
}
