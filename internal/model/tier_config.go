package model

import (
	"time"
)

// TierConfig is admin-editable reference data. Changes apply to future
// scheduling/billing decisions only; past usage is never re-rated.
type TierConfig struct {
	Id             int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Key            string    `json:"key" gorm:"column:tier_key;uniqueIndex"`
	Label          string    `json:"label" gorm:"column:label"`
	Color          string    `json:"color" gorm:"column:color"`
	Price          string    `json:"price" gorm:"column:price"`
	PriceAmount    float64   `json:"price_amount" gorm:"column:price_amount"` // monthly price, for upgrade ordering
	Features       string    `json:"features" gorm:"column:features"`         // JSON array
	Popular        bool      `json:"popular" gorm:"column:popular"`
	PriorityWeight int       `json:"priority_weight" gorm:"column:priority_weight"`
	StorageLimitGb float64   `json:"storage_limit_gb" gorm:"column:storage_limit_gb"`
	Visibility     string    `json:"visibility" gorm:"column:visibility"` // highest model class the tier can use
	CreateTime     time.Time `json:"create_time" gorm:"column:gmt_create"`
	UpdateTime     time.Time `json:"update_time" gorm:"column:gmt_modified"`
}

func (TierConfig) TableName() string {
	return "tier_config"
}
