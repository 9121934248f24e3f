package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"dcaservice/internal/ledger"
	"dcaservice/internal/models"
	"dcaservice/internal/policy"
	"dcaservice/internal/repository"
)

// Executor orchestrates one firing of a plan: resolve the owner, compute the
// execution amount, transfer, persist the updated plan state, and record the
// outcome. It never lets a failure escape its boundary; the scheduler's next
// natural tick is the retry.
type Executor struct {
	Repo   repository.Repository
	Ledger ledger.Ledger
	Policy *policy.Calculator
	Logger *zap.Logger
}

func (e *Executor) ExecutePlan(ctx context.Context, planID string) {
	defer func() {
		if r := recover(); r != nil && e.Logger != nil {
			e.Logger.Error("panic during plan execution",
				zap.String("plan_id", planID),
				zap.Any("panic", r),
			)
		}
	}()
	if e == nil || e.Repo == nil || e.Ledger == nil || e.Policy == nil {
		return
	}

	plan, err := e.Repo.GetPlanByID(ctx, planID)
	if err != nil {
		e.warn(planID, "failed to load plan", err)
		return
	}
	if plan == nil || !plan.IsActive {
		// Stopped between the tick and the load; nothing to do.
		return
	}

	user, err := e.Repo.GetUserByID(ctx, plan.UserID)
	if err != nil {
		e.warn(planID, "failed to resolve plan owner", err)
		e.record(ctx, planID, models.ExecutionFailed, decimal.Zero, "", "user lookup failed: "+err.Error(), nil)
		return
	}
	if user == nil {
		e.warn(planID, "plan owner not found", nil)
		e.record(ctx, planID, models.ExecutionFailed, decimal.Zero, "", "user not found", nil)
		return
	}

	amount, breakdown := e.Policy.ExecutionAmount(ctx, *plan)

	txHash, err := e.Ledger.Transfer(ctx, amount, user.Address, plan.ToAddress)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Warn("transfer failed",
				zap.String("plan_id", planID),
				zap.String("amount", amount.String()),
				zap.String("backend", e.Ledger.Name()),
				zap.Error(err),
			)
		}
		e.record(ctx, planID, models.ExecutionFailed, amount, "", err.Error(), &breakdown)
		return
	}

	now := time.Now().UTC()
	plan.LastExecutionTime = &now
	plan.TotalInvested = plan.TotalInvested.Add(amount)
	plan.ExecutionCount++
	if plan.ExecutionCount == 1 {
		// Baseline for all future risk adjustments is the requested amount,
		// not the computed one.
		plan.InitialAmount = plan.Amount
	}

	if err := e.Repo.SavePlan(ctx, plan); err != nil && e.Logger != nil {
		// Funds moved but state was not recorded. No automatic
		// reconciliation; the tx hash in this log is the operator's handle.
		e.Logger.Error("plan state not persisted after successful transfer",
			zap.String("plan_id", planID),
			zap.String("tx_hash", txHash),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
	}

	e.record(ctx, planID, models.ExecutionSuccess, amount, txHash, "", &breakdown)
	if e.Logger != nil {
		e.Logger.Info("plan executed",
			zap.String("plan_id", planID),
			zap.String("tx_hash", txHash),
			zap.String("amount", amount.String()),
			zap.Int("execution_count", plan.ExecutionCount),
		)
	}
}

func (e *Executor) warn(planID, msg string, err error) {
	if e.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("plan_id", planID)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	e.Logger.Warn(msg, fields...)
}

// record appends the audit row for a firing. Best effort: history must never
// fail an execution.
func (e *Executor) record(ctx context.Context, planID, status string, amount decimal.Decimal, txHash, errText string, breakdown *policy.Breakdown) {
	item := &models.ExecutionRecord{
		PlanID: planID,
		Status: status,
		Amount: amount,
		TxHash: txHash,
		Error:  errText,
	}
	if breakdown != nil {
		if raw, err := json.Marshal(breakdown); err == nil {
			item.Detail = datatypes.JSON(raw)
		}
	}
	if err := e.Repo.InsertExecutionRecord(ctx, item); err != nil && e.Logger != nil {
		e.Logger.Warn("failed to record execution",
			zap.String("plan_id", planID),
			zap.Error(err),
		)
	}
}
