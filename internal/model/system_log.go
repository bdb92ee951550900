package model

import (
	"time"
)

type SystemLog struct {
	Id         int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Level      string    `json:"level" gorm:"column:level;index"` // info / warn / error
	Source     string    `json:"source" gorm:"column:source;index"`
	Message    string    `json:"message" gorm:"column:message"`
	UserId     *int64    `json:"user_id" gorm:"column:user_id"`
	Username   string    `json:"username" gorm:"column:username"`
	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;index"`
}

func (SystemLog) TableName() string {
	return "system_log"
}
