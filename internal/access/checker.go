package access

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"

	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	"github.com/smallbiznis/paybook/internal/clock"
	"github.com/smallbiznis/paybook/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
	"github.com/smallbiznis/paybook/pkg/log"
	"go.uber.org/zap"
)

// CheckRequest describes one access check. Module/Action and Feature
// are each optional; an empty Module skips the matrix step and an empty
// Feature skips the plan gate.
type CheckRequest struct {
	UserID        snowflake.ID
	OrgID         snowflake.ID
	Module        Module
	Action        Action
	Feature       Feature
	Impersonation *Impersonation
}

// Service answers access checks and exposes role resolution.
type Service interface {
	Check(ctx context.Context, req CheckRequest) (Decision, error)
	ResolveRole(ctx context.Context, userID, orgID snowflake.ID, imp *Impersonation) (RoleResolution, error)
}

type service struct {
	resolver      *Resolver
	enforcer      *casbin.Enforcer
	subscriptions subdomain.Repository
	audit         auditdomain.Service
	clock         clock.Clock
	metrics       *metrics.Metrics
}

func NewService(resolver *Resolver, enforcer *casbin.Enforcer, subscriptions subdomain.Repository, audit auditdomain.Service, clk clock.Clock, m *metrics.Metrics) Service {
	return &service{
		resolver:      resolver,
		enforcer:      enforcer,
		subscriptions: subscriptions,
		audit:         audit,
		clock:         clk,
		metrics:       m,
	}
}

// ResolveRole re-derives the caller's effective role from persisted state.
func (s *service) ResolveRole(ctx context.Context, userID, orgID snowflake.ID, imp *Impersonation) (RoleResolution, error) {
	return s.resolver.Resolve(ctx, userID, orgID, imp)
}

// Check runs the ordered authorization pipeline and short-circuits on
// the first denial. The returned error is reserved for infrastructure
// failures; a denial is a valid Decision, not an error.
func (s *service) Check(ctx context.Context, req CheckRequest) (Decision, error) {
	decision, err := s.evaluate(ctx, req)
	if err != nil {
		return Decision{}, err
	}
	s.record(ctx, req, decision)
	return decision, nil
}

func (s *service) evaluate(ctx context.Context, req CheckRequest) (Decision, error) {
	if req.UserID == 0 {
		return Decision{Reason: DenyUnauthenticated}, nil
	}

	res, err := s.resolver.Resolve(ctx, req.UserID, req.OrgID, req.Impersonation)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrUserNotFound):
			return Decision{Reason: DenyUnauthenticated}, nil
		case errors.Is(err, orgdomain.ErrNotFound):
			return Decision{Reason: DenyNotAMember}, nil
		}
		return Decision{}, err
	}

	// A super-admin outside any organization context is allowed for
	// platform-level work only.
	if res.SystemRole == authdomain.SystemRoleSuperAdmin && req.OrgID == 0 && !res.IsImpersonating {
		return Decision{Allowed: true, SystemLevelOnly: true}, nil
	}

	if !res.HasOrgRole {
		return Decision{Reason: DenyNotAMember}, nil
	}

	orgID := res.OrgID
	sub, err := s.subscriptions.FindByOrg(ctx, orgID)
	if err != nil {
		if !errors.Is(err, subdomain.ErrNotFound) {
			return Decision{}, err
		}
		sub = nil
	}

	plan := subdomain.PlanFree
	active := false
	if sub != nil {
		plan = sub.Plan
		active = sub.IsActive(s.clock.Now())
	}

	// An expired subscription keeps read access; mutations stop.
	if !active && req.Action != ActionView {
		return Decision{Reason: DenySubscriptionExpired, Role: res.OrgRole, Plan: plan}, nil
	}

	if req.Feature != "" && !PlanHasFeature(plan, req.Feature) {
		minimum, ok := MinimumPlanFor(req.Feature)
		if !ok {
			minimum = subdomain.PlanEnterprise
		}
		return Decision{
			Reason:      DenyByPlan,
			Role:        res.OrgRole,
			Plan:        plan,
			Feature:     req.Feature,
			MinimumPlan: minimum,
		}, nil
	}

	if req.Module != "" {
		allowed, err := s.enforcer.Enforce(string(res.OrgRole), string(req.Module), string(req.Action))
		if err != nil {
			return Decision{}, err
		}
		if !allowed {
			return Decision{
				Reason:        DenyByRole,
				Role:          res.OrgRole,
				Plan:          plan,
				Module:        req.Module,
				Action:        req.Action,
				RequiredRoles: AllowedRoles(req.Module, req.Action),
			}, nil
		}
	}

	return Decision{
		Allowed:         true,
		Role:            res.OrgRole,
		Plan:            plan,
		IsImpersonating: res.IsImpersonating,
	}, nil
}

func (s *service) record(ctx context.Context, req CheckRequest, d Decision) {
	if d.Allowed {
		s.metrics.RecordAccessAllowed(ctx, string(req.Module), string(req.Action))
		if d.IsImpersonating {
			s.auditImpersonation(ctx, req)
		}
		return
	}

	s.metrics.RecordAccessDenied(ctx, string(req.Module), string(req.Action), string(d.Reason))
	log.L(ctx).Debug("access denied",
		zap.String("reason", string(d.Reason)),
		zap.String("module", string(req.Module)),
		zap.String("action", string(req.Action)),
		zap.String("user_id", req.UserID.String()),
		zap.String("org_id", req.OrgID.String()),
	)
	s.auditDenial(ctx, req, d)
}

// auditDenial records the denial with its reason. Fire-and-forget; a
// write failure never blocks the request.
func (s *service) auditDenial(ctx context.Context, req CheckRequest, d Decision) {
	var orgID *snowflake.ID
	if req.OrgID != 0 {
		orgID = &req.OrgID
	}
	var actorID *string
	if req.UserID != 0 {
		id := req.UserID.String()
		actorID = &id
	}
	if err := s.audit.AuditLog(ctx, orgID, string(auditdomain.ActorTypeUser), actorID, "access.denied", "access", nil, map[string]any{
		"reason": string(d.Reason),
		"module": string(req.Module),
		"action": string(req.Action),
	}); err != nil {
		log.L(ctx).Warn("audit write failed", zap.Error(err))
	}
}

// auditImpersonation leaves a trail for every allowed impersonated
// action. Fire-and-forget; a write failure never blocks the request.
func (s *service) auditImpersonation(ctx context.Context, req CheckRequest) {
	orgID := req.Impersonation.OrgID
	actorID := req.UserID.String()
	targetID := orgID.String()
	if err := s.audit.AuditLog(ctx, &orgID, "super_admin", &actorID, "access.impersonated", "organization", &targetID, map[string]any{
		"module": string(req.Module),
		"action": string(req.Action),
	}); err != nil {
		log.L(ctx).Warn("audit write failed", zap.Error(err))
	}
}
