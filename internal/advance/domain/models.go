package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the ledger state of an advance.
type Status string

const (
	// StatusActive means the advance still has balance to recoup.
	StatusActive Status = "active"
	// StatusSettled means the balance reached exactly zero.
	StatusSettled Status = "settled"
)

// Advance is cash handed to an employee ahead of payroll, recouped from
// the salary of exactly one designated month. Amounts are minor
// currency units.
type Advance struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	EmployeeID snowflake.ID `gorm:"column:employee_id;not null;index" json:"employee_id"`

	Amount           int64  `gorm:"not null" json:"amount"`
	RemainingBalance int64  `gorm:"column:remaining_balance;not null" json:"remaining_balance"`
	Status           Status `gorm:"type:text;not null;default:'active'" json:"status"`

	// DeductMonth is the only salary month allowed to consume this
	// advance, formatted YYYY-MM and matched by strict equality.
	DeductMonth string `gorm:"column:deduct_month;type:text;not null;index" json:"deduct_month"`
	Reason      string `gorm:"type:text" json:"reason,omitempty"`

	// Set when a salary record consumed from this advance.
	DeductedFromMonth *int `gorm:"column:deducted_from_month" json:"deducted_from_month,omitempty"`
	DeductedFromYear  *int `gorm:"column:deducted_from_year" json:"deducted_from_year,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Advance) TableName() string { return "advances" }

// Consumed reports whether any balance has been deducted.
func (a Advance) Consumed() bool {
	return a.RemainingBalance != a.Amount
}

var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthKey formats a (year, month) pair as the YYYY-MM ledger key.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ValidMonthKey reports whether s is a well-formed YYYY-MM key.
func ValidMonthKey(s string) bool {
	return monthKeyPattern.MatchString(s)
}
