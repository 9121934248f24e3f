package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the recurrence unit of a plan. Plans fire at the start of each
// unit boundary (top of minute/hour, UTC midnight), not every N seconds from
// creation.
type Frequency string

const (
	FrequencyMinute Frequency = "minute"
	FrequencyHour   Frequency = "hour"
	FrequencyDay    Frequency = "day"
)

func ParseFrequency(s string) (Frequency, bool) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case FrequencyMinute:
		return FrequencyMinute, true
	case FrequencyHour:
		return FrequencyHour, true
	case FrequencyDay:
		return FrequencyDay, true
	}
	return "", false
}

// RiskLevel selects the fixed multiplier applied to the plan's baseline
// amount from the second execution on. Immutable for the plan's lifetime.
type RiskLevel string

const (
	RiskNone   RiskLevel = "no_risk"
	RiskLow    RiskLevel = "low_risk"
	RiskMedium RiskLevel = "medium_risk"
	RiskHigh   RiskLevel = "high_risk"
)

// ParseRiskLevel accepts an empty string as no_risk, matching plan creation
// defaults.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return RiskNone, true
	case RiskNone:
		return RiskNone, true
	case RiskLow:
		return RiskLow, true
	case RiskMedium:
		return RiskMedium, true
	case RiskHigh:
		return RiskHigh, true
	}
	return "", false
}

// InvestmentPlan is one user's recurring transfer configuration plus its
// accumulated execution state.
//
// InitialAmount is the baseline for all risk adjustments. It equals Amount at
// creation, is snapshotted again right after the first execution, and never
// changes afterwards.
type InvestmentPlan struct {
	ID     string `gorm:"type:char(36);primaryKey"`
	UserID string `gorm:"type:char(36);not null;index"`

	Amount        decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	InitialAmount decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Frequency     Frequency       `gorm:"type:varchar(10);not null"`
	ToAddress     string          `gorm:"type:varchar(128);not null"`
	RiskLevel     RiskLevel       `gorm:"type:varchar(20);not null;default:'no_risk'"`

	IsActive          bool            `gorm:"not null;default:true;index"`
	ExecutionCount    int             `gorm:"not null;default:0"`
	TotalInvested     decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	LastExecutionTime *time.Time      `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (InvestmentPlan) TableName() string {
	return "investment_plans"
}
