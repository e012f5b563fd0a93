package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
)

func TestPlanFeatureSetsAreSupersets(t *testing.T) {
	plans := subdomain.PlansAscending()
	for i := 1; i < len(plans); i++ {
		lower, higher := plans[i-1], plans[i]
		for f := range planFeatures[lower] {
			assert.True(t, PlanHasFeature(higher, f),
				"feature %s present in %s but missing in %s", f, lower, higher)
		}
	}
}

func TestMinimumPlanFor(t *testing.T) {
	plan, ok := MinimumPlanFor(FeaturePayroll)
	assert.True(t, ok)
	assert.Equal(t, subdomain.PlanBasic, plan)

	plan, ok = MinimumPlanFor(FeatureInvoicing)
	assert.True(t, ok)
	assert.Equal(t, subdomain.PlanFree, plan)

	_, ok = MinimumPlanFor(Feature("no_such_feature"))
	assert.False(t, ok)
}

func TestPlanHasFeatureUnknownPlan(t *testing.T) {
	assert.False(t, PlanHasFeature(subdomain.Plan("gold"), FeaturePayroll))
}

func TestEnforcerMatchesPolicyTable(t *testing.T) {
	enforcer, err := NewEnforcer()
	assert.NoError(t, err)

	for _, p := range policyTable {
		allowed := map[orgdomain.Role]bool{}
		for _, r := range p.Roles {
			allowed[r] = true
		}
		for _, role := range allRoles {
			got, err := enforcer.Enforce(string(role), string(p.Module), string(p.Action))
			assert.NoError(t, err)
			assert.Equal(t, allowed[role], got, "%s %s %s", role, p.Module, p.Action)
		}
	}
}

func TestAllowedRolesUnknownPairIsNil(t *testing.T) {
	assert.Nil(t, AllowedRoles(ModuleAuditLog, ActionDelete))
}

func TestStaffCannotTouchSalary(t *testing.T) {
	enforcer, err := NewEnforcer()
	assert.NoError(t, err)

	for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete, ActionPay, ActionView} {
		got, err := enforcer.Enforce(string(orgdomain.RoleStaff), string(ModuleSalary), string(action))
		assert.NoError(t, err)
		assert.False(t, got)
	}
}
