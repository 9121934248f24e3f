package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"dcaservice/internal/models"
)

// Repository is the durable registry for users, plans, and execution history.
// Get methods return (nil, nil) when the row does not exist.
//
// Concurrent updates to the same plan are serialized upstream: all plan
// mutation flows through the executor, which the scheduler never invokes
// twice concurrently for one plan id.
type Repository interface {
	// Users.
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByAddress(ctx context.Context, address string) (*models.User, error)

	// Plans.
	InsertPlan(ctx context.Context, item *models.InvestmentPlan) error
	GetPlanByID(ctx context.Context, id string) (*models.InvestmentPlan, error)
	SavePlan(ctx context.Context, item *models.InvestmentPlan) error
	ListActivePlans(ctx context.Context) ([]models.InvestmentPlan, error)
	ListPlansByUser(ctx context.Context, userID string) ([]models.InvestmentPlan, error)
	SumInvestedByUser(ctx context.Context, userID string) (decimal.Decimal, error)

	// Execution history.
	InsertExecutionRecord(ctx context.Context, item *models.ExecutionRecord) error
	ListExecutionRecordsByPlan(ctx context.Context, planID string, limit int) ([]models.ExecutionRecord, error)
}
