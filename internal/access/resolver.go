package access

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
	"github.com/smallbiznis/paybook/pkg/log"
)

// Impersonation is a super-admin's request to act inside a tenant.
type Impersonation struct {
	OrgID snowflake.ID
}

// RoleResolution is the effective identity of a user inside one
// organization, computed fresh on every check.
type RoleResolution struct {
	UserID     snowflake.ID
	OrgID      snowflake.ID
	SystemRole authdomain.SystemRole

	// OrgRole is the caller's effective role in the organization. Zero
	// when the caller holds no role there (HasOrgRole reports this).
	OrgRole    orgdomain.Role
	HasOrgRole bool

	// IsImpersonating marks a synthetic owner role granted to a
	// super-admin. The stored membership table has no row for it.
	IsImpersonating bool
}

// Resolver computes effective roles. Nothing is cached between calls so
// a membership change takes effect on the next request.
type Resolver struct {
	users  authdomain.Repository
	orgs   orgdomain.Repository
	audit  auditdomain.Service
	logger *zap.Logger
}

func NewResolver(users authdomain.Repository, orgs orgdomain.Repository, audit auditdomain.Service, logger *zap.Logger) *Resolver {
	return &Resolver{users: users, orgs: orgs, audit: audit, logger: logger}
}

// Resolve determines the caller's effective role for orgID. A zero
// orgID means no organization context was supplied.
func (r *Resolver) Resolve(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, imp *Impersonation) (RoleResolution, error) {
	res := RoleResolution{UserID: userID, OrgID: orgID}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return res, err
	}
	res.SystemRole = user.SystemRole

	if user.IsSuperAdmin() && imp != nil {
		if _, err := r.orgs.FindOrganization(ctx, imp.OrgID); err != nil {
			return res, err
		}
		res.OrgID = imp.OrgID
		res.OrgRole = orgdomain.RoleOwner
		res.HasOrgRole = true
		res.IsImpersonating = true
		return res, nil
	}

	if orgID == 0 {
		return res, nil
	}

	member, err := r.orgs.FindMember(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, orgdomain.ErrMemberNotFound) {
			return res, nil
		}
		return res, err
	}
	res.OrgRole = member.Role
	res.HasOrgRole = true

	if member.Role == orgdomain.RoleOwner {
		r.checkOwnerConsistency(ctx, orgID, userID)
	}
	return res, nil
}

// checkOwnerConsistency flags a membership row claiming owner while the
// organization record points at someone else. The stored role still
// wins; this only reports the drift.
func (r *Resolver) checkOwnerConsistency(ctx context.Context, orgID, userID snowflake.ID) {
	org, err := r.orgs.FindOrganization(ctx, orgID)
	if err != nil {
		return
	}
	if org.OwnerID == userID {
		return
	}

	log.L(ctx).Warn("owner membership does not match organization owner",
		zap.String("org_id", orgID.String()),
		zap.String("member_user_id", userID.String()),
		zap.String("organization_owner_id", org.OwnerID.String()),
	)
	actorID := userID.String()
	targetID := orgID.String()
	if err := r.audit.AuditLog(ctx, &orgID, "system", &actorID, "access.owner_mismatch", "organization", &targetID, map[string]any{
		"member_user_id":        userID.String(),
		"organization_owner_id": org.OwnerID.String(),
	}); err != nil {
		r.logger.Warn("audit write failed", zap.Error(err))
	}
}
