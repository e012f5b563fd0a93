package access

import (
	"errors"

	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
)

// DenyReason classifies why a check failed. Reasons are never collapsed
// into a generic forbidden; callers surface each one distinctly.
type DenyReason string

const (
	DenyNone                DenyReason = ""
	DenyUnauthenticated     DenyReason = "unauthenticated"
	DenyNotAMember          DenyReason = "not_a_member"
	DenyByRole              DenyReason = "role_blocked"
	DenyByPlan              DenyReason = "plan_blocked"
	DenySubscriptionExpired DenyReason = "subscription_expired"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotAMember          = errors.New("not_a_member")
	ErrRoleBlocked         = errors.New("role_blocked")
	ErrPlanBlocked         = errors.New("plan_blocked")
	ErrSubscriptionExpired = errors.New("subscription_expired")
)

// Decision is the outcome of one access check.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`

	// Populated on allow for the caller's use.
	Role            orgdomain.Role `json:"role,omitempty"`
	Plan            subdomain.Plan `json:"plan,omitempty"`
	IsImpersonating bool           `json:"is_impersonating,omitempty"`

	// SystemLevelOnly marks a super-admin allow that carries no
	// organization authority. Callers performing organization business
	// operations must not accept it as organization authorization.
	SystemLevelOnly bool `json:"system_level_only,omitempty"`

	// Populated on DenyByRole.
	Module        Module           `json:"module,omitempty"`
	Action        Action           `json:"action,omitempty"`
	RequiredRoles []orgdomain.Role `json:"required_roles,omitempty"`

	// Populated on DenyByPlan.
	Feature     Feature        `json:"feature,omitempty"`
	MinimumPlan subdomain.Plan `json:"minimum_plan,omitempty"`
}

// Err maps a denied decision to its sentinel error, nil when allowed.
func (d Decision) Err() error {
	switch d.Reason {
	case DenyNone:
		return nil
	case DenyUnauthenticated:
		return ErrUnauthenticated
	case DenyNotAMember:
		return ErrNotAMember
	case DenyByRole:
		return ErrRoleBlocked
	case DenyByPlan:
		return ErrPlanBlocked
	case DenySubscriptionExpired:
		return ErrSubscriptionExpired
	default:
		return ErrNotAMember
	}
}
