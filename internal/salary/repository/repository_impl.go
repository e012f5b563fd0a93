package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paybook/internal/salary/domain"
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

func (r *repository) Insert(ctx context.Context, record *domain.SalaryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.SalaryRecord, error) {
	return r.findByID(r.db.WithContext(ctx), orgID, id)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, orgID, id snowflake.ID) (*domain.SalaryRecord, error) {
	return r.findByID(r.lockForUpdate(r.db.WithContext(ctx)), orgID, id)
}

func (r *repository) findByID(query *gorm.DB, orgID, id snowflake.ID) (*domain.SalaryRecord, error) {
	var record domain.SalaryRecord
	err := query.Where("org_id = ? AND id = ?", orgID, id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByPeriod(ctx context.Context, employeeID snowflake.ID, month, year int) (*domain.SalaryRecord, error) {
	return r.findByPeriod(r.db.WithContext(ctx), employeeID, month, year)
}

func (r *repository) FindByPeriodForUpdate(ctx context.Context, employeeID snowflake.ID, month, year int) (*domain.SalaryRecord, error) {
	return r.findByPeriod(r.lockForUpdate(r.db.WithContext(ctx)), employeeID, month, year)
}

func (r *repository) findByPeriod(query *gorm.DB, employeeID snowflake.ID, month, year int) (*domain.SalaryRecord, error) {
	var record domain.SalaryRecord
	err := query.
		Where("employee_id = ? AND month = ? AND year = ?", employeeID, month, year).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Update(ctx context.Context, record *domain.SalaryRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.SalaryRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter) ([]domain.SalaryRecord, error) {
	query := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if filter.EmployeeID != 0 {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.Month != 0 {
		query = query.Where("month = ?", filter.Month)
	}
	if filter.Year != 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var records []domain.SalaryRecord
	if err := query.Order("year desc, month desc, created_at desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
