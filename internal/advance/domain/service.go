package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, advance *Advance) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Advance, error)
	// FindByIDForUpdate takes a row lock; call inside a transaction.
	FindByIDForUpdate(ctx context.Context, orgID, id snowflake.ID) (*Advance, error)
	// FindPendingForMonth returns active advances with balance left whose
	// deduct_month equals monthKey exactly, oldest-created first.
	FindPendingForMonth(ctx context.Context, employeeID snowflake.ID, monthKey string) ([]Advance, error)
	FindPendingForMonthForUpdate(ctx context.Context, employeeID snowflake.ID, monthKey string) ([]Advance, error)
	Update(ctx context.Context, advance *Advance) error
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	ListByEmployee(ctx context.Context, orgID, employeeID snowflake.ID) ([]Advance, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID, status Status) ([]Advance, error)
	CountOpenByEmployee(ctx context.Context, employeeID snowflake.ID) (int64, error)
}

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateAdvanceRequest) (*Advance, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*Advance, error)
	Edit(ctx context.Context, orgID, id snowflake.ID, req EditAdvanceRequest) (*Advance, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	ListByEmployee(ctx context.Context, orgID, employeeID snowflake.ID) ([]Advance, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID, status Status) ([]Advance, error)
}

type CreateAdvanceRequest struct {
	EmployeeID  string `json:"employee_id"`
	Amount      int64  `json:"amount"`
	DeductMonth string `json:"deduct_month"`
	Reason      string `json:"reason"`
}

// EditAdvanceRequest carries optional field changes; nil means keep.
type EditAdvanceRequest struct {
	Amount      *int64  `json:"amount,omitempty"`
	DeductMonth *string `json:"deduct_month,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

var (
	ErrNotFound           = errors.New("advance_not_found")
	ErrInvalidEmployee    = errors.New("invalid_employee")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrAmountLimit        = errors.New("amount_limit_exceeded")
	ErrOpenAdvanceLimit   = errors.New("open_advance_limit_reached")
	ErrInvalidDeductMonth = errors.New("invalid_deduct_month")
	ErrPaidSalaryLock     = errors.New("locked_by_paid_salary")
	ErrConsumedMonthFixed = errors.New("deduct_month_locked_after_consumption")
)
