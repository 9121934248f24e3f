package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"dcaservice/internal/models"
	"dcaservice/internal/policy"
	"dcaservice/internal/trend"
)

type stubLedger struct {
	txHash   string
	err      error
	calls    int
	lastAmt  decimal.Decimal
	lastFrom string
	lastTo   string
}

func (s *stubLedger) Name() string { return "stub" }

func (s *stubLedger) Transfer(ctx context.Context, amount decimal.Decimal, fromAddress, toAddress string) (string, error) {
	s.calls++
	s.lastAmt = amount
	s.lastFrom = fromAddress
	s.lastTo = toAddress
	if s.err != nil {
		return "", s.err
	}
	return s.txHash, nil
}

func (s *stubLedger) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubLedger) TokenBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fixedEstimator struct {
	est trend.Estimate
	err error
}

func (f *fixedEstimator) EstimateTrend(ctx context.Context, assetID string) (trend.Estimate, error) {
	return f.est, f.err
}

func seedPlan(repo *stubRepo, amount string) models.InvestmentPlan {
	repo.users["user-1"] = models.User{ID: "user-1", Address: "0xfrom"}
	amt := decimal.RequireFromString(amount)
	plan := models.InvestmentPlan{
		ID:            "plan-1",
		UserID:        "user-1",
		Amount:        amt,
		InitialAmount: amt,
		Frequency:     models.FrequencyMinute,
		ToAddress:     "0xto",
		RiskLevel:     models.RiskLow,
		IsActive:      true,
		TotalInvested: decimal.Zero,
	}
	repo.plans[plan.ID] = plan
	return plan
}

func newExecutor(repo *stubRepo, led *stubLedger, est policy.TrendEstimator) *Executor {
	return &Executor{
		Repo:   repo,
		Ledger: led,
		Policy: &policy.Calculator{Trend: est, AssetID: "sonic-svm"},
	}
}

func TestExecutePlan_FirstFiringInvestsRequestedAmount(t *testing.T) {
	repo := newStubRepo()
	seedPlan(repo, "10")
	led := &stubLedger{txHash: "0xabc"}
	exec := newExecutor(repo, led, &fixedEstimator{est: trend.Estimate{PriceFactor: 1.5, PriceGoingUp: true}})

	exec.ExecutePlan(context.Background(), "plan-1")

	if led.calls != 1 {
		t.Fatalf("transfer calls=%d want=1", led.calls)
	}
	if !led.lastAmt.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("first firing amount=%s want=10", led.lastAmt)
	}
	if led.lastFrom != "0xfrom" || led.lastTo != "0xto" {
		t.Fatalf("transfer endpoints=%s->%s want=0xfrom->0xto", led.lastFrom, led.lastTo)
	}

	got := repo.mustPlan("plan-1")
	if got.ExecutionCount != 1 {
		t.Fatalf("execution count=%d want=1", got.ExecutionCount)
	}
	if !got.TotalInvested.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("total invested=%s want=10", got.TotalInvested)
	}
	if !got.InitialAmount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("initial amount=%s want=10", got.InitialAmount)
	}
	if got.LastExecutionTime == nil {
		t.Fatalf("last execution time should be set")
	}

	records := repo.recordsFor("plan-1")
	if len(records) != 1 || records[0].Status != models.ExecutionSuccess {
		t.Fatalf("records=%+v want one success record", records)
	}
	if records[0].TxHash != "0xabc" {
		t.Fatalf("record tx hash=%q want=0xabc", records[0].TxHash)
	}
}

func TestExecutePlan_SecondFiringIsRiskAdjusted(t *testing.T) {
	repo := newStubRepo()
	seedPlan(repo, "10")
	led := &stubLedger{txHash: "0xabc"}
	// low_risk multiplier 1.2, factor 1.5 rising:
	// updated=12, delta=3, amount=12-3=9.
	exec := newExecutor(repo, led, &fixedEstimator{est: trend.Estimate{PriceFactor: 1.5, PriceGoingUp: true}})

	exec.ExecutePlan(context.Background(), "plan-1")
	exec.ExecutePlan(context.Background(), "plan-1")

	if !led.lastAmt.Equal(decimal.RequireFromString("9")) {
		t.Fatalf("second firing amount=%s want=9", led.lastAmt)
	}
	got := repo.mustPlan("plan-1")
	if got.ExecutionCount != 2 {
		t.Fatalf("execution count=%d want=2", got.ExecutionCount)
	}
	if !got.TotalInvested.Equal(decimal.RequireFromString("19")) {
		t.Fatalf("total invested=%s want=19", got.TotalInvested)
	}
	if !got.InitialAmount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("initial amount must stay at the requested baseline, got %s", got.InitialAmount)
	}
}

func TestExecutePlan_TransferFailureLeavesPlanUntouched(t *testing.T) {
	repo := newStubRepo()
	seedPlan(repo, "10")
	led := &stubLedger{err: errors.New("insufficient funds")}
	exec := newExecutor(repo, led, &fixedEstimator{est: trend.Neutral()})

	exec.ExecutePlan(context.Background(), "plan-1")

	got := repo.mustPlan("plan-1")
	if got.ExecutionCount != 0 {
		t.Fatalf("execution count=%d want=0 after a failed transfer", got.ExecutionCount)
	}
	if !got.TotalInvested.IsZero() {
		t.Fatalf("total invested=%s want=0 after a failed transfer", got.TotalInvested)
	}
	if got.LastExecutionTime != nil {
		t.Fatalf("last execution time must not move on failure")
	}

	records := repo.recordsFor("plan-1")
	if len(records) != 1 || records[0].Status != models.ExecutionFailed {
		t.Fatalf("records=%+v want one failure record", records)
	}
	if records[0].Error == "" {
		t.Fatalf("failure record should carry the transfer error")
	}
}

func TestExecutePlan_MissingUserRecordsFailureWithoutTransfer(t *testing.T) {
	repo := newStubRepo()
	seedPlan(repo, "10")
	delete(repo.users, "user-1")
	led := &stubLedger{txHash: "0xabc"}
	exec := newExecutor(repo, led, &fixedEstimator{est: trend.Neutral()})

	exec.ExecutePlan(context.Background(), "plan-1")

	if led.calls != 0 {
		t.Fatalf("transfer calls=%d want=0 when the owner is missing", led.calls)
	}
	got := repo.mustPlan("plan-1")
	if got.ExecutionCount != 0 || !got.TotalInvested.IsZero() {
		t.Fatalf("plan state must not change when the owner is missing: %+v", got)
	}
	records := repo.recordsFor("plan-1")
	if len(records) != 1 || records[0].Status != models.ExecutionFailed {
		t.Fatalf("records=%+v want one failure record", records)
	}
}

func TestExecutePlan_InactivePlanIsSkipped(t *testing.T) {
	repo := newStubRepo()
	plan := seedPlan(repo, "10")
	plan.IsActive = false
	repo.plans[plan.ID] = plan
	led := &stubLedger{txHash: "0xabc"}
	exec := newExecutor(repo, led, &fixedEstimator{est: trend.Neutral()})

	exec.ExecutePlan(context.Background(), "plan-1")

	if led.calls != 0 {
		t.Fatalf("transfer calls=%d want=0 for an inactive plan", led.calls)
	}
	if len(repo.recordsFor("plan-1")) != 0 {
		t.Fatalf("no record should be written for an inactive plan")
	}
}

func TestExecutePlan_UnknownPlanIsSkipped(t *testing.T) {
	repo := newStubRepo()
	led := &stubLedger{txHash: "0xabc"}
	exec := newExecutor(repo, led, &fixedEstimator{est: trend.Neutral()})

	exec.ExecutePlan(context.Background(), "nope")

	if led.calls != 0 {
		t.Fatalf("transfer calls=%d want=0 for an unknown plan", led.calls)
	}
}

func TestExecutePlan_EstimatorFailureStillInvests(t *testing.T) {
	repo := newStubRepo()
	plan := seedPlan(repo, "10")
	plan.ExecutionCount = 1
	repo.plans[plan.ID] = plan
	led := &stubLedger{txHash: "0xabc"}
	// Neutral fallback through the falling branch with low_risk:
	// updated=12, delta=2, amount=14.
	exec := newExecutor(repo, led, &fixedEstimator{err: errors.New("upstream down")})

	exec.ExecutePlan(context.Background(), "plan-1")

	if led.calls != 1 {
		t.Fatalf("transfer calls=%d want=1", led.calls)
	}
	if !led.lastAmt.Equal(decimal.RequireFromString("14")) {
		t.Fatalf("fallback amount=%s want=14", led.lastAmt)
	}
	records := repo.recordsFor("plan-1")
	if len(records) != 1 || records[0].Status != models.ExecutionSuccess {
		t.Fatalf("records=%+v want one success record", records)
	}
}
