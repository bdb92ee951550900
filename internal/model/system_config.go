package model

import (
	"time"
)

// SystemConfig is the mutable runtime configuration singleton. The
// payload is a JSON document (api/v1.SystemConfigBody) so new knobs do
// not need schema changes. Readers must observe updates within one
// health-check interval; the config service caches accordingly.
type SystemConfig struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey"`
	Payload    string    `json:"payload" gorm:"column:payload"`
	Version    int64     `json:"version" gorm:"column:version"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified"`
}

func (SystemConfig) TableName() string {
	return "system_config"
}
