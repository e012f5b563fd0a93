package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, employee *Employee) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Employee, error)
	Update(ctx context.Context, employee *Employee) error
	List(ctx context.Context, orgID snowflake.ID, activeOnly bool) ([]Employee, error)
}

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateEmployeeRequest) (*Employee, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*Employee, error)
	Update(ctx context.Context, orgID, id snowflake.ID, req UpdateEmployeeRequest) (*Employee, error)
	Deactivate(ctx context.Context, orgID, id snowflake.ID) error
	List(ctx context.Context, orgID snowflake.ID, activeOnly bool) ([]Employee, error)
}

type CreateEmployeeRequest struct {
	FullName    string `json:"full_name"`
	Designation string `json:"designation"`
	Phone       string `json:"phone"`
	BasicSalary int64  `json:"basic_salary"`
}

// UpdateEmployeeRequest carries optional field changes; nil means keep.
type UpdateEmployeeRequest struct {
	FullName    *string `json:"full_name,omitempty"`
	Designation *string `json:"designation,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	BasicSalary *int64  `json:"basic_salary,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

var (
	ErrNotFound       = errors.New("employee_not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrNegativeSalary = errors.New("negative_salary")
)
