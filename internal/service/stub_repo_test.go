package service

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"dcaservice/internal/models"
)

// stubRepo is an in-memory repository for service tests. Individual calls can
// be forced to fail through the err* fields.
type stubRepo struct {
	mu      sync.Mutex
	users   map[string]models.User
	plans   map[string]models.InvestmentPlan
	records []models.ExecutionRecord

	errGetPlan  error
	errGetUser  error
	errSavePlan error
	errInsert   error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users: map[string]models.User{},
		plans: map[string]models.InvestmentPlan{},
	}
}

func (s *stubRepo) CreateUser(ctx context.Context, item *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[item.ID] = *item
	return nil
}

func (s *stubRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if s.errGetUser != nil {
		return nil, s.errGetUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		out := u
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) GetUserByAddress(ctx context.Context, address string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Address == address {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) InsertPlan(ctx context.Context, item *models.InvestmentPlan) error {
	if s.errInsert != nil {
		return s.errInsert
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[item.ID] = *item
	return nil
}

func (s *stubRepo) GetPlanByID(ctx context.Context, id string) (*models.InvestmentPlan, error) {
	if s.errGetPlan != nil {
		return nil, s.errGetPlan
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.plans[id]; ok {
		out := p
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) SavePlan(ctx context.Context, item *models.InvestmentPlan) error {
	if s.errSavePlan != nil {
		return s.errSavePlan
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[item.ID] = *item
	return nil
}

func (s *stubRepo) ListActivePlans(ctx context.Context) ([]models.InvestmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InvestmentPlan, 0, len(s.plans))
	for _, p := range s.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) ListPlansByUser(ctx context.Context, userID string) ([]models.InvestmentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InvestmentPlan
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) SumInvestedByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, p := range s.plans {
		if p.UserID == userID {
			total = total.Add(p.TotalInvested)
		}
	}
	return total, nil
}

func (s *stubRepo) InsertExecutionRecord(ctx context.Context, item *models.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *item)
	return nil
}

func (s *stubRepo) ListExecutionRecordsByPlan(ctx context.Context, planID string, limit int) ([]models.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExecutionRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].PlanID != planID {
			continue
		}
		out = append(out, s.records[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) mustPlan(id string) models.InvestmentPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plans[id]
}

func (s *stubRepo) recordsFor(planID string) []models.ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExecutionRecord
	for _, r := range s.records {
		if r.PlanID == planID {
			out = append(out, r)
		}
	}
	return out
}
