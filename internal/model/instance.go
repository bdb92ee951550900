package model

import (
	"time"
)

type InstanceStatus string

const (
	InstanceStatusOnline  InstanceStatus = "online"
	InstanceStatusBusy    InstanceStatus = "busy"
	InstanceStatusOffline InstanceStatus = "offline"
)

// Instance is the persisted registration of a ComfyUI worker node.
// Live telemetry (queue size, utilization, vram) is owned by the pool
// registry and written back here so admin reads survive a restart.
type Instance struct {
	Id             string         `json:"id" gorm:"column:id;primaryKey"`
	Endpoint       string         `json:"endpoint" gorm:"column:endpoint"`
	DisplayName    string         `json:"display_name" gorm:"column:display_name"`
	Status         InstanceStatus `json:"status" gorm:"column:status"`
	GpuType        string         `json:"gpu_type" gorm:"column:gpu_type"`
	QueueSize      int            `json:"queue_size" gorm:"column:queue_size"`
	CurrentTask    string         `json:"current_task" gorm:"column:current_task"`
	GpuUtilization float64        `json:"gpu_utilization" gorm:"column:gpu_utilization"`
	VramUsedGb     float64        `json:"vram_used_gb" gorm:"column:vram_used_gb"`
	VramTotalGb    float64        `json:"vram_total_gb" gorm:"column:vram_total_gb"`
	RegisteredAt   time.Time      `json:"registered_at" gorm:"column:registered_at"`
	CreateTime     time.Time      `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime     time.Time      `json:"update_time" gorm:"column:gmt_modified"`
}

func (Instance) TableName() string {
	return "instance"
}
