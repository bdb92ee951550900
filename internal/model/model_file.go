package model

import (
	"time"
)

type ModelVisibility string

const (
	ModelVisibilityBase    ModelVisibility = "base"    // all users
	ModelVisibilityVip     ModelVisibility = "vip"     // paid tiers
	ModelVisibilityPrivate ModelVisibility = "private" // owner only
)

// VisibilityRank orders visibility classes for tier ceiling checks.
func VisibilityRank(v ModelVisibility) int {
	switch v {
	case ModelVisibilityBase:
		return 0
	case ModelVisibilityVip:
		return 1
	case ModelVisibilityPrivate:
		return 2
	default:
		return 0
	}
}

type ModelFile struct {
	Id                int64           `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId            int64           `json:"user_id" gorm:"column:user_id;index"` // 0 for system models
	Name              string          `json:"name" gorm:"column:name"`
	Type              string          `json:"type" gorm:"column:type"` // checkpoint / lora / vae / embedding
	SizeBytes         int64           `json:"size_bytes" gorm:"column:size_bytes"`
	Visibility        ModelVisibility `json:"visibility" gorm:"column:visibility;index"`
	Status            string          `json:"status" gorm:"column:status"`
	StorageCostPerDay float64         `json:"storage_cost_per_day" gorm:"column:storage_cost_per_day"`
	UploadedAt        time.Time       `json:"uploaded_at" gorm:"column:uploaded_at"`
	CreateTime        time.Time       `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime        time.Time       `json:"update_time" gorm:"column:gmt_modified"`
}

func (ModelFile) TableName() string {
	return "model_file"
}
