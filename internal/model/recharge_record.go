package model

import (
	"time"
)

type RechargeStatus string

// Recharge status is a one-way state machine:
// pending -> completed | failed; completed -> refunded.
const (
	RechargeStatusPending   RechargeStatus = "pending"
	RechargeStatusCompleted RechargeStatus = "completed"
	RechargeStatusFailed    RechargeStatus = "failed"
	RechargeStatusRefunded  RechargeStatus = "refunded"
)

type RechargeRecord struct {
	Id            int64          `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId        int64          `json:"user_id" gorm:"column:user_id;index"`
	OrderNo       string         `json:"order_no" gorm:"column:order_no;uniqueIndex"`
	Amount        float64        `json:"amount" gorm:"column:amount"`
	Currency      string         `json:"currency" gorm:"column:currency"`
	PaymentMethod string         `json:"payment_method" gorm:"column:payment_method"`
	Status        RechargeStatus `json:"status" gorm:"column:status;index"`
	CompletedAt   *time.Time     `json:"completed_at" gorm:"column:completed_at"`
	CreateTime    time.Time      `json:"create_time" gorm:"column:gmt_create;index"`
	UpdateTime    time.Time      `json:"update_time" gorm:"column:gmt_modified"`
}

func (RechargeRecord) TableName() string {
	return "recharge_record"
}
