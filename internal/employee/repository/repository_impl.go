package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paybook/internal/employee/domain"
	"gorm.io/gorm"
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

func (r *repository) Insert(ctx context.Context, employee *domain.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Employee, error) {
	var employee domain.Employee
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (r *repository) Update(ctx context.Context, employee *domain.Employee) error {
	return r.db.WithContext(ctx).Save(employee).Error
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, activeOnly bool) ([]domain.Employee, error) {
	query := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var employees []domain.Employee
	if err := query.Order("full_name asc").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}
