package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ExecutionSuccess = "success"
	ExecutionFailed  = "failed"
)

// ExecutionRecord is the audit trail of one firing attempt. Success rows
// carry the transaction hash; failure rows carry the error. Detail holds the
// trend snapshot used for the amount (price factor, direction, multiplier).
type ExecutionRecord struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	PlanID string `gorm:"type:char(36);not null;index"`

	Status string          `gorm:"type:varchar(10);not null;index"`
	Amount decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TxHash string          `gorm:"type:varchar(128)"`
	Error  string          `gorm:"type:text"`
	Detail datatypes.JSON  `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (ExecutionRecord) TableName() string {
	return "execution_records"
}
