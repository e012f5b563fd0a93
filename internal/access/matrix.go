package access

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
)

//go:embed model.conf
var modelText string

// Module identifies a guarded area of the product.
type Module string

const (
	ModuleOrganization Module = "organization"
	ModuleMember       Module = "member"
	ModuleEmployee     Module = "employee"
	ModuleSalary       Module = "salary"
	ModuleAdvance      Module = "advance"
	ModuleSubscription Module = "subscription"
	ModuleAuditLog     Module = "audit_log"
)

// Action identifies an operation on a module.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionPay    Action = "pay"
)

// policy binds one (module, action) pair to the organization roles
// allowed to perform it. The table is the single authority for the
// permission matrix; the enforcer is seeded from it at startup.
type policy struct {
	Module Module
	Action Action
	Roles  []orgdomain.Role
}

var allRoles = []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager, orgdomain.RoleAccounts, orgdomain.RoleStaff}

var policyTable = []policy{
	{ModuleOrganization, ActionView, allRoles},
	{ModuleOrganization, ActionUpdate, []orgdomain.Role{orgdomain.RoleOwner}},

	{ModuleMember, ActionView, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager}},
	{ModuleMember, ActionCreate, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager}},
	{ModuleMember, ActionDelete, []orgdomain.Role{orgdomain.RoleOwner}},

	{ModuleEmployee, ActionView, allRoles},
	{ModuleEmployee, ActionCreate, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager}},
	{ModuleEmployee, ActionUpdate, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager}},
	{ModuleEmployee, ActionDelete, []orgdomain.Role{orgdomain.RoleOwner}},

	{ModuleSalary, ActionView, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager, orgdomain.RoleAccounts}},
	{ModuleSalary, ActionCreate, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleAccounts}},
	{ModuleSalary, ActionUpdate, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleAccounts}},
	{ModuleSalary, ActionDelete, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleAccounts}},
	{ModuleSalary, ActionPay, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleAccounts}},

	{ModuleAdvance, ActionView, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager, orgdomain.RoleAccounts}},
	{ModuleAdvance, ActionCreate, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleAccounts}},
	{ModuleAdvance, ActionUpdate, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleAccounts}},
	{ModuleAdvance, ActionDelete, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleAccounts}},

	{ModuleSubscription, ActionView, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager}},
	{ModuleSubscription, ActionUpdate, []orgdomain.Role{orgdomain.RoleOwner}},

	{ModuleAuditLog, ActionView, []orgdomain.Role{orgdomain.RoleOwner, orgdomain.RoleManager}},
}

// NewEnforcer builds the in-memory enforcer seeded from the policy table.
// Policies are compile-time data, never persisted or mutated at runtime.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for _, p := range policyTable {
		for _, role := range p.Roles {
			if _, err := enforcer.AddPolicy(string(role), string(p.Module), string(p.Action)); err != nil {
				return nil, err
			}
		}
	}
	return enforcer, nil
}

// AllowedRoles returns the roles permitted for a (module, action) pair,
// in matrix order. Nil means no policy exists for the pair.
func AllowedRoles(module Module, action Action) []orgdomain.Role {
	for _, p := range policyTable {
		if p.Module == module && p.Action == action {
			out := make([]orgdomain.Role, len(p.Roles))
			copy(out, p.Roles)
			return out
		}
	}
	return nil
}
