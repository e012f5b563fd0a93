package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, record *SalaryRecord) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*SalaryRecord, error)
	// FindByIDForUpdate takes a row lock; call inside a transaction.
	FindByIDForUpdate(ctx context.Context, orgID, id snowflake.ID) (*SalaryRecord, error)
	FindByPeriod(ctx context.Context, employeeID snowflake.ID, month, year int) (*SalaryRecord, error)
	FindByPeriodForUpdate(ctx context.Context, employeeID snowflake.ID, month, year int) (*SalaryRecord, error)
	Update(ctx context.Context, record *SalaryRecord) error
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	ListByOrg(ctx context.Context, orgID snowflake.ID, filter ListFilter) ([]SalaryRecord, error)
}

// ListFilter narrows salary listings; zero fields are ignored.
type ListFilter struct {
	EmployeeID snowflake.ID
	Month      int
	Year       int
	Status     Status
}

type Service interface {
	Generate(ctx context.Context, orgID snowflake.ID, req GenerateSalaryRequest) (*SalaryRecord, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*SalaryRecord, error)
	Edit(ctx context.Context, orgID, id snowflake.ID, req EditSalaryRequest) (*SalaryRecord, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	MarkPaid(ctx context.Context, orgID, id snowflake.ID) (*SalaryRecord, error)
	List(ctx context.Context, orgID snowflake.ID, filter ListFilter) ([]SalaryRecord, error)
}

type GenerateSalaryRequest struct {
	EmployeeID string `json:"employee_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Basic      int64  `json:"basic"`
	Bonus      int64  `json:"bonus"`
	Deductions int64  `json:"deductions"`
	Notes      string `json:"notes"`
}

// EditSalaryRequest carries optional field changes; nil means keep.
// The advance total is locked at generation time and never recomputed
// by an edit.
type EditSalaryRequest struct {
	Basic      *int64  `json:"basic,omitempty"`
	Bonus      *int64  `json:"bonus,omitempty"`
	Deductions *int64  `json:"deductions,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

var (
	ErrNotFound           = errors.New("salary_record_not_found")
	ErrDuplicateRecord    = errors.New("duplicate_salary_record")
	ErrImmutableRecord    = errors.New("salary_record_immutable")
	ErrNegativeNetPayable = errors.New("negative_net_payable")
	ErrInvalidEmployee    = errors.New("invalid_employee")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrInvalidAmount      = errors.New("invalid_amount")
)
