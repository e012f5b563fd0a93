package migration

import (
	advancedomain "github.com/smallbiznis/paybook/internal/advance/domain"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	employeedomain "github.com/smallbiznis/paybook/internal/employee/domain"
	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
	salarydomain "github.com/smallbiznis/paybook/internal/salary/domain"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
	"gorm.io/gorm"
)

// AutoMigrate builds the schema from the model definitions. Postgres
// deployments use the versioned SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&subdomain.Subscription{},
		&employeedomain.Employee{},
		&advancedomain.Advance{},
		&salarydomain.SalaryRecord{},
		&auditdomain.AuditLog{},
	)
}
