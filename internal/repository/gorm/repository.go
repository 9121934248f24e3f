package gormrepository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dcaservice/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByAddress(ctx context.Context, address string) (*models.User, error) {
	if s == nil || s.db == nil || strings.TrimSpace(address) == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("address = ?", strings.TrimSpace(address)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Plans ------------------------------------------------------------------

func (s *Store) InsertPlan(ctx context.Context, item *models.InvestmentPlan) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPlanByID(ctx context.Context, id string) (*models.InvestmentPlan, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.InvestmentPlan
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SavePlan(ctx context.Context, item *models.InvestmentPlan) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) ListActivePlans(ctx context.Context) ([]models.InvestmentPlan, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.InvestmentPlan
	if err := s.db.WithContext(ctx).
		Model(&models.InvestmentPlan{}).
		Where("is_active = ?", true).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPlansByUser(ctx context.Context, userID string) ([]models.InvestmentPlan, error) {
	if s == nil || s.db == nil || strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	var items []models.InvestmentPlan
	if err := s.db.WithContext(ctx).
		Model(&models.InvestmentPlan{}).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SumInvestedByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	if s == nil || s.db == nil || strings.TrimSpace(userID) == "" {
		return decimal.Zero, nil
	}
	var raw *string
	err := s.db.WithContext(ctx).
		Model(&models.InvestmentPlan{}).
		Where("user_id = ?", userID).
		Select("SUM(total_invested)::text").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.Zero, nil
	}
	total, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// --- Execution history ------------------------------------------------------

func (s *Store) InsertExecutionRecord(ctx context.Context, item *models.ExecutionRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListExecutionRecordsByPlan(ctx context.Context, planID string, limit int) ([]models.ExecutionRecord, error) {
	if s == nil || s.db == nil || strings.TrimSpace(planID) == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var items []models.ExecutionRecord
	if err := s.db.WithContext(ctx).
		Model(&models.ExecutionRecord{}).
		Where("plan_id = ?", planID).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
