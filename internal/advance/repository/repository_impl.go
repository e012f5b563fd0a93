package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paybook/internal/advance/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

// lockForUpdate adds a row lock where the dialect supports one. SQLite
// serializes writers on its own, so the clause is skipped there.
func (r *repository) lockForUpdate(query *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "sqlite" {
		return query
	}
	return query.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repository) Insert(ctx context.Context, advance *domain.Advance) error {
	return r.db.WithContext(ctx).Create(advance).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Advance, error) {
	return r.findByID(r.db.WithContext(ctx), orgID, id)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, orgID, id snowflake.ID) (*domain.Advance, error) {
	return r.findByID(r.lockForUpdate(r.db.WithContext(ctx)), orgID, id)
}

func (r *repository) findByID(query *gorm.DB, orgID, id snowflake.ID) (*domain.Advance, error) {
	var advance domain.Advance
	err := query.Where("org_id = ? AND id = ?", orgID, id).First(&advance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &advance, nil
}

func (r *repository) FindPendingForMonth(ctx context.Context, employeeID snowflake.ID, monthKey string) ([]domain.Advance, error) {
	return r.findPendingForMonth(r.db.WithContext(ctx), employeeID, monthKey)
}

func (r *repository) FindPendingForMonthForUpdate(ctx context.Context, employeeID snowflake.ID, monthKey string) ([]domain.Advance, error) {
	return r.findPendingForMonth(r.lockForUpdate(r.db.WithContext(ctx)), employeeID, monthKey)
}

// findPendingForMonth matches deduct_month by strict equality; the
// ordering fixes the consumption order.
func (r *repository) findPendingForMonth(query *gorm.DB, employeeID snowflake.ID, monthKey string) ([]domain.Advance, error) {
	var advances []domain.Advance
	err := query.
		Where("employee_id = ? AND status = ? AND remaining_balance > 0 AND deduct_month = ?",
			employeeID, domain.StatusActive, monthKey).
		Order("created_at asc, id asc").
		Find(&advances).Error
	if err != nil {
		return nil, err
	}
	return advances, nil
}

func (r *repository) Update(ctx context.Context, advance *domain.Advance) error {
	return r.db.WithContext(ctx).Save(advance).Error
}

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Advance{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) ListByEmployee(ctx context.Context, orgID, employeeID snowflake.ID) ([]domain.Advance, error) {
	var advances []domain.Advance
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND employee_id = ?", orgID, employeeID).
		Order("created_at desc").
		Find(&advances).Error
	if err != nil {
		return nil, err
	}
	return advances, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID, status domain.Status) ([]domain.Advance, error) {
	query := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var advances []domain.Advance
	if err := query.Order("created_at desc").Find(&advances).Error; err != nil {
		return nil, err
	}
	return advances, nil
}

func (r *repository) CountOpenByEmployee(ctx context.Context, employeeID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Advance{}).
		Where("employee_id = ? AND status = ?", employeeID, domain.StatusActive).
		Count(&count).Error
	return count, err
}
