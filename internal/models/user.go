package models

import (
	"time"
)

// User is a registered wallet owner. Users are created (or fetched) by wallet
// address; the address is the funding source for every plan they own.
type User struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	Address string `gorm:"type:varchar(128);uniqueIndex;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
