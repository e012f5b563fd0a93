package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Employee is a payroll subject inside one organization. BasicSalary is
// stored in minor currency units.
type Employee struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	FullName    string       `gorm:"type:text;not null" json:"full_name"`
	Designation string       `gorm:"type:text" json:"designation,omitempty"`
	Phone       string       `gorm:"type:text" json:"phone,omitempty"`
	BasicSalary int64        `gorm:"not null;default:0" json:"basic_salary"`
	IsActive    bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Employee) TableName() string { return "employees" }
