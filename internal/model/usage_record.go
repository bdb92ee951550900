package model

import (
	"time"
)

type UsageType string

const (
	UsageTypeGpu       UsageType = "gpu_usage"
	UsageTypeStorage   UsageType = "storage"
	UsageTypeBandwidth UsageType = "bandwidth"
)

// UsageRecord is one closed accounting interval. Rows are append-only
// and never updated after creation.
type UsageRecord struct {
	Id              int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId          int64     `json:"user_id" gorm:"column:user_id;index"`
	TaskId          string    `json:"task_id" gorm:"column:task_id;index"`
	Type            UsageType `json:"type" gorm:"column:type"`
	StartedAt       time.Time `json:"started_at" gorm:"column:started_at;index"`
	EndedAt         time.Time `json:"ended_at" gorm:"column:ended_at"`
	DurationSeconds float64   `json:"duration_seconds" gorm:"column:duration_seconds"`
	Cost            float64   `json:"cost" gorm:"column:cost"`
	Details         string    `json:"details" gorm:"column:details"` // JSON blob
	CreateTime      time.Time `json:"create_time" gorm:"column:gmt_create"`
}

func (UsageRecord) TableName() string {
	return "usage_record"
}
