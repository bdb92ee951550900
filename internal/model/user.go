package model

import (
	"time"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	Id           int64      `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Username     string     `json:"username" gorm:"column:username;uniqueIndex"`
	Email        string     `json:"email" gorm:"column:email;uniqueIndex"`
	Password     string     `json:"-" gorm:"column:password"`
	Tier         string     `json:"tier" gorm:"column:tier"`
	Balance      float64    `json:"balance" gorm:"column:balance"`
	StorageUsed  float64    `json:"storage_used" gorm:"column:storage_used"`   // GB
	StorageLimit float64    `json:"storage_limit" gorm:"column:storage_limit"` // GB
	Role         UserRole   `json:"role" gorm:"column:role"`
	Status       UserStatus `json:"status" gorm:"column:status"`
	LastLoginAt  *time.Time `json:"last_login_at" gorm:"column:last_login_at"`
	CreateTime   time.Time  `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime   time.Time  `json:"update_time" gorm:"column:gmt_modified"`
}

func (User) TableName() string {
	return "user"
}
