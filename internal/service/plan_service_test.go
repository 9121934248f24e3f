package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"dcaservice/internal/models"
)

type stubScheduler struct {
	scheduled map[string]models.Frequency
	cancelled []string
	err       error
}

func newStubScheduler() *stubScheduler {
	return &stubScheduler{scheduled: map[string]models.Frequency{}}
}

func (s *stubScheduler) Schedule(planID string, freq models.Frequency) error {
	if s.err != nil {
		return s.err
	}
	s.scheduled[planID] = freq
	return nil
}

func (s *stubScheduler) Cancel(planID string) {
	delete(s.scheduled, planID)
	s.cancelled = append(s.cancelled, planID)
}

func newPlanService(repo *stubRepo, sched *stubScheduler) *PlanService {
	return &PlanService{Repo: repo, Sched: sched}
}

func validInput() CreatePlanInput {
	return CreatePlanInput{
		UserID:    "user-1",
		Amount:    decimal.RequireFromString("10"),
		Frequency: "minute",
		ToAddress: "0xto",
		RiskLevel: "low_risk",
	}
}

func TestCreatePlan_PersistsAndArmsSchedule(t *testing.T) {
	repo := newStubRepo()
	repo.users["user-1"] = models.User{ID: "user-1", Address: "0xfrom"}
	sched := newStubScheduler()
	svc := newPlanService(repo, sched)

	plan, err := svc.CreatePlan(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.ID == "" {
		t.Fatalf("plan id should be assigned")
	}
	if !plan.IsActive {
		t.Fatalf("new plan should be active")
	}
	if plan.ExecutionCount != 0 {
		t.Fatalf("execution count=%d want=0", plan.ExecutionCount)
	}
	if !plan.InitialAmount.Equal(plan.Amount) {
		t.Fatalf("initial amount=%s want=%s", plan.InitialAmount, plan.Amount)
	}
	if !plan.TotalInvested.IsZero() {
		t.Fatalf("total invested=%s want=0", plan.TotalInvested)
	}
	if freq, ok := sched.scheduled[plan.ID]; !ok || freq != models.FrequencyMinute {
		t.Fatalf("schedule not armed: %+v", sched.scheduled)
	}
	if stored := repo.mustPlan(plan.ID); stored.ID != plan.ID {
		t.Fatalf("plan not persisted")
	}
}

func TestCreatePlan_RejectsInvalidInput(t *testing.T) {
	repo := newStubRepo()
	repo.users["user-1"] = models.User{ID: "user-1", Address: "0xfrom"}
	sched := newStubScheduler()
	svc := newPlanService(repo, sched)

	cases := []struct {
		name   string
		mutate func(*CreatePlanInput)
	}{
		{"zero amount", func(in *CreatePlanInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *CreatePlanInput) { in.Amount = decimal.RequireFromString("-1") }},
		{"unknown frequency", func(in *CreatePlanInput) { in.Frequency = "weekly" }},
		{"blank destination", func(in *CreatePlanInput) { in.ToAddress = "   " }},
		{"unknown risk level", func(in *CreatePlanInput) { in.RiskLevel = "yolo" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := svc.CreatePlan(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err=%v want ErrInvalidInput", err)
			}
		})
	}
	if len(sched.scheduled) != 0 {
		t.Fatalf("invalid input must never reach the scheduler")
	}
}

func TestCreatePlan_EmptyRiskLevelDefaultsToNoRisk(t *testing.T) {
	repo := newStubRepo()
	repo.users["user-1"] = models.User{ID: "user-1", Address: "0xfrom"}
	svc := newPlanService(repo, newStubScheduler())

	in := validInput()
	in.RiskLevel = ""
	plan, err := svc.CreatePlan(context.Background(), in)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.RiskLevel != models.RiskNone {
		t.Fatalf("risk level=%q want=%q", plan.RiskLevel, models.RiskNone)
	}
}

func TestCreatePlan_UnknownUser(t *testing.T) {
	svc := newPlanService(newStubRepo(), newStubScheduler())
	if _, err := svc.CreatePlan(context.Background(), validInput()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err=%v want ErrUserNotFound", err)
	}
}

func TestStopPlan_DeactivatesAndCancels(t *testing.T) {
	repo := newStubRepo()
	repo.users["user-1"] = models.User{ID: "user-1", Address: "0xfrom"}
	sched := newStubScheduler()
	svc := newPlanService(repo, sched)

	plan, err := svc.CreatePlan(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	stopped, err := svc.StopPlan(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("stop plan: %v", err)
	}
	if stopped.IsActive {
		t.Fatalf("stopped plan should be inactive")
	}
	if repo.mustPlan(plan.ID).IsActive {
		t.Fatalf("deactivation should be persisted")
	}
	if len(sched.cancelled) != 1 || sched.cancelled[0] != plan.ID {
		t.Fatalf("timer not cancelled: %+v", sched.cancelled)
	}
}

func TestStopPlan_UnknownPlan(t *testing.T) {
	svc := newPlanService(newStubRepo(), newStubScheduler())
	if _, err := svc.StopPlan(context.Background(), "nope"); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("err=%v want ErrPlanNotFound", err)
	}
}

func TestTotalInvestment_SumsAcrossPlans(t *testing.T) {
	repo := newStubRepo()
	repo.plans["p1"] = models.InvestmentPlan{ID: "p1", UserID: "user-1", TotalInvested: decimal.RequireFromString("10"), IsActive: true}
	repo.plans["p2"] = models.InvestmentPlan{ID: "p2", UserID: "user-1", TotalInvested: decimal.RequireFromString("5.5")}
	repo.plans["p3"] = models.InvestmentPlan{ID: "p3", UserID: "user-2", TotalInvested: decimal.RequireFromString("99")}
	svc := newPlanService(repo, newStubScheduler())

	total, err := svc.TotalInvestment(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("total investment: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("15.5")) {
		t.Fatalf("total=%s want=15.5 (stopped plans still count)", total)
	}
}

func TestListExecutions_UnknownPlan(t *testing.T) {
	svc := newPlanService(newStubRepo(), newStubScheduler())
	if _, err := svc.ListExecutions(context.Background(), "nope", 10); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("err=%v want ErrPlanNotFound", err)
	}
}
