package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"dcaservice/internal/models"
)

// Executor runs one firing of a plan. Implementations must not panic past
// their own boundary; the scheduler does not inspect outcomes.
type Executor interface {
	ExecutePlan(ctx context.Context, planID string)
}

// PlanLister is the repository slice needed to rebuild the schedule at boot.
type PlanLister interface {
	ListActivePlans(ctx context.Context) ([]models.InvestmentPlan, error)
}

// Scheduler owns one cron entry per active plan. Entries fire at cadence
// boundaries in UTC. A tick that arrives while the previous firing of the
// same plan is still running is skipped, never queued.
type Scheduler struct {
	Exec   Executor
	Logger *zap.Logger

	cron    *cron.Cron
	baseCtx context.Context

	mu       sync.Mutex
	entries  map[string]cron.EntryID
	inFlight map[string]bool
}

func New(exec Executor, logger *zap.Logger, baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		Exec:     exec,
		Logger:   logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		baseCtx:  baseCtx,
		entries:  map[string]cron.EntryID{},
		inFlight: map[string]bool{},
	}
}

// CronSpec maps a cadence to its boundary rule: top of minute, top of hour,
// UTC midnight.
func CronSpec(freq models.Frequency) (string, error) {
	switch freq {
	case models.FrequencyMinute:
		return "* * * * *", nil
	case models.FrequencyHour:
		return "0 * * * *", nil
	case models.FrequencyDay:
		return "0 0 * * *", nil
	default:
		return "", fmt.Errorf("invalid frequency %q", freq)
	}
}

// Recover re-arms timers for every active plan. Called once at boot before
// Start; an error here means the process must not serve with an empty
// schedule.
func (s *Scheduler) Recover(ctx context.Context, plans PlanLister) error {
	items, err := plans.ListActivePlans(ctx)
	if err != nil {
		return fmt.Errorf("list active plans: %w", err)
	}
	for _, plan := range items {
		if err := s.Schedule(plan.ID, plan.Frequency); err != nil {
			return fmt.Errorf("re-arm plan %s: %w", plan.ID, err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("schedule recovered", zap.Int("plans", len(items)))
	}
	return nil
}

// Schedule arms the timer for a plan, replacing any prior entry for the same
// id so a plan never holds two live timers.
func (s *Scheduler) Schedule(planID string, freq models.Frequency) error {
	spec, err := CronSpec(freq)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[planID]; ok {
		s.cron.Remove(old)
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.fire(planID)
	})
	if err != nil {
		return fmt.Errorf("arm timer for plan %s: %w", planID, err)
	}
	s.entries[planID] = id
	return nil
}

// Cancel removes the plan's timer. An in-flight firing is allowed to finish;
// no further firings occur once Cancel returns.
func (s *Scheduler) Cancel(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[planID]; ok {
		s.cron.Remove(id)
		delete(s.entries, planID)
	}
}

// Scheduled reports whether the plan currently holds a live timer.
func (s *Scheduler) Scheduled(planID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[planID]
	return ok
}

func (s *Scheduler) Start() {
	if s.Logger != nil {
		s.Logger.Info("scheduler started")
	}
	s.cron.Start()
}

// Stop cancels all timers and waits for running firings to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	if s.Logger != nil {
		s.Logger.Info("scheduler stopped")
	}
}

// fire runs in its own goroutine per cron tick. The in-flight guard
// serializes firings per plan even when an execution outlives its cadence
// unit.
func (s *Scheduler) fire(planID string) {
	if !s.begin(planID) {
		if s.Logger != nil {
			s.Logger.Warn("skipping tick, previous firing still running",
				zap.String("plan_id", planID),
			)
		}
		return
	}
	defer s.end(planID)

	if s.Exec == nil {
		return
	}
	s.Exec.ExecutePlan(s.baseCtx, planID)
}

func (s *Scheduler) begin(planID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[planID] {
		return false
	}
	s.inFlight[planID] = true
	return true
}

func (s *Scheduler) end(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, planID)
}
