package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the lifecycle state of a salary record. A record moves
// pending -> paid and never back; paid is immutable.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// DeductionDetail is one advance consumption performed when the salary
// record was generated. Order matters: it is the consumption order.
type DeductionDetail struct {
	AdvanceID      snowflake.ID `json:"advance_id"`
	AmountDeducted int64        `json:"amount_deducted"`
	RemainingAfter int64        `json:"remaining_after"`
}

// DeductionDetails is the ordered snapshot of advance consumptions,
// persisted as a JSON column. Parsing is strict; a malformed snapshot
// is an error, never silently treated as empty.
type DeductionDetails []DeductionDetail

// Value implements driver.Valuer.
func (d DeductionDetails) Value() (driver.Value, error) {
	if d == nil {
		d = DeductionDetails{}
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (d *DeductionDetails) Scan(value any) error {
	if value == nil {
		*d = DeductionDetails{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported deduction details type %T", value)
	}
	if len(raw) == 0 {
		*d = DeductionDetails{}
		return nil
	}
	var out DeductionDetails
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("malformed deduction details: %w", err)
	}
	*d = out
	return nil
}

// Total sums the deducted amounts.
func (d DeductionDetails) Total() int64 {
	var total int64
	for _, e := range d {
		total += e.AmountDeducted
	}
	return total
}

// Find returns the index of the entry for advanceID, or -1.
func (d DeductionDetails) Find(advanceID snowflake.ID) int {
	for i, e := range d {
		if e.AdvanceID == advanceID {
			return i
		}
	}
	return -1
}

// SalaryRecord is one employee's salary for one (month, year) period.
// All amounts are minor currency units.
type SalaryRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	EmployeeID snowflake.ID `gorm:"column:employee_id;not null;uniqueIndex:ux_salary_period" json:"employee_id"`

	Month int `gorm:"not null;uniqueIndex:ux_salary_period" json:"month"`
	Year  int `gorm:"not null;uniqueIndex:ux_salary_period" json:"year"`

	Basic           int64 `gorm:"not null" json:"basic"`
	Bonus           int64 `gorm:"not null;default:0" json:"bonus"`
	Deductions      int64 `gorm:"not null;default:0" json:"deductions"`
	AdvanceDeducted int64 `gorm:"column:advance_deducted;not null;default:0" json:"advance_deducted"`
	NetPayable      int64 `gorm:"column:net_payable;not null" json:"net_payable"`

	Status           Status           `gorm:"type:text;not null;default:'pending'" json:"status"`
	DeductionDetails DeductionDetails `gorm:"column:deduction_details;type:text" json:"deduction_details"`
	Notes            string           `gorm:"type:text" json:"notes,omitempty"`

	PaidAt    *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SalaryRecord) TableName() string { return "salary_records" }

// Gross is basic plus bonus.
func (s SalaryRecord) Gross() int64 {
	return s.Basic + s.Bonus
}

// ValidPeriod reports whether (month, year) is a usable salary period.
func ValidPeriod(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 2000 && year <= 2200
}
