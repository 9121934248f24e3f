package policy

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dcaservice/internal/models"
	"dcaservice/internal/trend"
)

// TrendEstimator is the collaborator producing the bounded price-trend
// factor. The calculator substitutes a neutral estimate when it fails, so a
// usable amount is always produced.
type TrendEstimator interface {
	EstimateTrend(ctx context.Context, assetID string) (trend.Estimate, error)
}

// Breakdown explains how an execution amount was derived; it is attached to
// the plan's execution record.
type Breakdown struct {
	PriceFactor    float64 `json:"price_factor"`
	PriceGoingUp   bool    `json:"price_going_up"`
	RiskMultiplier string  `json:"risk_multiplier"`
	TrendFallback  bool    `json:"trend_fallback"`
	FirstExecution bool    `json:"first_execution"`
}

// Calculator turns a plan into a concrete execution amount. Aside from the
// estimator call the computation is pure: initial amount, risk level, trend
// estimate, and execution count fully determine the result.
type Calculator struct {
	Trend   TrendEstimator
	AssetID string
	Logger  *zap.Logger
}

// RiskMultiplier maps a risk level to its fixed scalar. Unknown levels fall
// back to 1.0.
func RiskMultiplier(level models.RiskLevel) decimal.Decimal {
	switch level {
	case models.RiskNone:
		return decimal.NewFromFloat(1.0)
	case models.RiskLow:
		return decimal.NewFromFloat(1.2)
	case models.RiskMedium:
		return decimal.NewFromFloat(1.5)
	case models.RiskHigh:
		return decimal.NewFromFloat(2.0)
	default:
		return decimal.NewFromFloat(1.0)
	}
}

// ExecutionAmount computes the amount for the plan's next firing.
//
// The first execution always invests the requested amount untouched. From
// the second on:
//
//	updated = initial × riskMultiplier
//	delta   = (updated − initial) × priceFactor
//	rising  → updated − delta   (buy less after gains)
//	falling → updated + delta   (buy more on dips)
//
// When the estimator fails, priceFactor=1 with a falling direction is fed
// through the same formula. That intentionally still applies the risk
// multiplier instead of reverting to the requested amount; it mirrors the
// long-standing production behavior.
func (c *Calculator) ExecutionAmount(ctx context.Context, plan models.InvestmentPlan) (decimal.Decimal, Breakdown) {
	multiplier := RiskMultiplier(plan.RiskLevel)
	breakdown := Breakdown{
		RiskMultiplier: multiplier.String(),
	}

	if plan.ExecutionCount == 0 {
		breakdown.FirstExecution = true
		breakdown.PriceFactor = 1.0
		return plan.Amount, breakdown
	}

	estimate := trend.Neutral()
	if c != nil && c.Trend != nil {
		est, err := c.Trend.EstimateTrend(ctx, c.AssetID)
		if err != nil {
			breakdown.TrendFallback = true
			if c.Logger != nil {
				c.Logger.Warn("trend estimate failed, using neutral fallback",
					zap.String("plan_id", plan.ID),
					zap.Error(err),
				)
			}
		} else {
			estimate = est
		}
	} else {
		breakdown.TrendFallback = true
	}
	breakdown.PriceFactor = estimate.PriceFactor
	breakdown.PriceGoingUp = estimate.PriceGoingUp

	updated := plan.InitialAmount.Mul(multiplier)
	delta := updated.Sub(plan.InitialAmount).Mul(decimal.NewFromFloat(estimate.PriceFactor))

	amount := updated.Add(delta)
	if estimate.PriceGoingUp {
		amount = updated.Sub(delta)
	}
	return amount, breakdown
}
