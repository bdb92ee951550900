package model

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

type Subscription struct {
	Id         int64              `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId     int64              `json:"user_id" gorm:"column:user_id;index"`
	Tier       string             `json:"tier" gorm:"column:tier"`
	Status     SubscriptionStatus `json:"status" gorm:"column:status;index"`
	StartedAt  time.Time          `json:"started_at" gorm:"column:started_at"`
	ExpiresAt  time.Time          `json:"expires_at" gorm:"column:expires_at;index"`
	AutoRenew  bool               `json:"auto_renew" gorm:"column:auto_renew"`
	CreateTime time.Time          `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime time.Time          `json:"update_time" gorm:"column:gmt_modified"`
}

func (Subscription) TableName() string {
	return "subscription"
}
