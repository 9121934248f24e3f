package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dcaservice/internal/models"
	"dcaservice/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPlanNotFound = errors.New("plan not found")
	ErrUserNotFound = errors.New("user not found")
)

// PlanScheduler is the slice of the scheduler the plan service drives.
type PlanScheduler interface {
	Schedule(planID string, freq models.Frequency) error
	Cancel(planID string)
}

// PlanService exposes the administrative plan operations: create (and arm),
// stop (and disarm), and the read paths used by the API layer.
type PlanService struct {
	Repo   repository.Repository
	Sched  PlanScheduler
	Logger *zap.Logger
}

type CreatePlanInput struct {
	UserID    string
	Amount    decimal.Decimal
	Frequency string
	ToAddress string
	RiskLevel string
}

// CreatePlan validates input, persists the plan, and arms its schedule
// immediately. Input errors surface to the caller and never reach the
// scheduler.
func (s *PlanService) CreatePlan(ctx context.Context, in CreatePlanInput) (*models.InvestmentPlan, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	freq, ok := models.ParseFrequency(in.Frequency)
	if !ok {
		return nil, fmt.Errorf("%w: invalid frequency %q", ErrInvalidInput, in.Frequency)
	}
	toAddress := strings.TrimSpace(in.ToAddress)
	if toAddress == "" {
		return nil, fmt.Errorf("%w: destination address is required", ErrInvalidInput)
	}
	riskLevel, ok := models.ParseRiskLevel(in.RiskLevel)
	if !ok {
		return nil, fmt.Errorf("%w: invalid risk level %q", ErrInvalidInput, in.RiskLevel)
	}

	user, err := s.Repo.GetUserByID(ctx, strings.TrimSpace(in.UserID))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	plan := &models.InvestmentPlan{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Amount:        in.Amount,
		InitialAmount: in.Amount,
		Frequency:     freq,
		ToAddress:     toAddress,
		RiskLevel:     riskLevel,
		IsActive:      true,
		TotalInvested: decimal.Zero,
	}
	if err := s.Repo.InsertPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}
	if err := s.Sched.Schedule(plan.ID, plan.Frequency); err != nil {
		return nil, fmt.Errorf("arm schedule: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("plan created",
			zap.String("plan_id", plan.ID),
			zap.String("user_id", plan.UserID),
			zap.String("frequency", string(plan.Frequency)),
			zap.String("risk_level", string(plan.RiskLevel)),
			zap.String("amount", plan.Amount.String()),
		)
	}
	return plan, nil
}

// StopPlan deactivates the plan and cancels its timer. Any in-flight firing
// completes; no further firings occur once this returns.
func (s *PlanService) StopPlan(ctx context.Context, planID string) (*models.InvestmentPlan, error) {
	plan, err := s.Repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	plan.IsActive = false
	if err := s.Repo.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}
	s.Sched.Cancel(plan.ID)

	if s.Logger != nil {
		s.Logger.Info("plan stopped", zap.String("plan_id", plan.ID))
	}
	return plan, nil
}

func (s *PlanService) GetPlan(ctx context.Context, planID string) (*models.InvestmentPlan, error) {
	plan, err := s.Repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *PlanService) ListUserPlans(ctx context.Context, userID string) ([]models.InvestmentPlan, error) {
	return s.Repo.ListPlansByUser(ctx, userID)
}

// TotalInvestment sums total_invested across all of a user's plans, active
// or stopped.
func (s *PlanService) TotalInvestment(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.Repo.SumInvestedByUser(ctx, userID)
}

func (s *PlanService) ListExecutions(ctx context.Context, planID string, limit int) ([]models.ExecutionRecord, error) {
	plan, err := s.Repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return s.Repo.ListExecutionRecordsByPlan(ctx, planID, limit)
}
