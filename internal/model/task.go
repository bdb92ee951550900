package model

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusPreempted TaskStatus = "preempted"
)

type Task struct {
	Id         int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TaskId     string     `json:"task_id" gorm:"column:task_id;uniqueIndex"`
	UserId     int64      `json:"user_id" gorm:"column:user_id;index"`
	InstanceId string     `json:"instance_id" gorm:"column:instance_id;index"`
	ModelName  string     `json:"model_name" gorm:"column:model_name"`
	GpuType    string     `json:"gpu_type" gorm:"column:gpu_type"`
	PromptId   string     `json:"prompt_id" gorm:"column:prompt_id"`
	Workflow   string     `json:"-" gorm:"column:workflow;type:text"` // kept for redispatch after instance loss
	Status     TaskStatus `json:"status" gorm:"column:status;index"`
	StartedAt  time.Time  `json:"started_at" gorm:"column:started_at;index"`
	EndedAt    *time.Time `json:"ended_at" gorm:"column:ended_at"`
	CreateTime time.Time  `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime time.Time  `json:"update_time" gorm:"column:gmt_modified"`
}

func (Task) TableName() string {
	return "task"
}
