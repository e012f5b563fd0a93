package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/paybook/internal/access"
	"github.com/smallbiznis/paybook/internal/orgcontext"
)

// requireAccess gates a route on the full authorization pipeline. The
// caller's role is re-resolved from the membership table on every
// request; nothing is trusted from the session beyond identity.
func (s *Server) requireAccess(module access.Module, action access.Action, feature access.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := s.userIDFromSession(c)

		imp, err := impersonationFromRequest(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		orgID, ok := orgIDFromRequest(c)
		if !ok && imp == nil {
			AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
			return
		}

		decision, err := s.accessSvc.Check(c.Request.Context(), access.CheckRequest{
			UserID:        userID,
			OrgID:         orgID,
			Module:        module,
			Action:        action,
			Feature:       feature,
			Impersonation: imp,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !decision.Allowed || decision.SystemLevelOnly {
			AbortWithError(c, decisionError{Decision: decision})
			return
		}

		c.Set(contextDecisionKey, decision)

		// An impersonating super-admin operates on the impersonated
		// organization for the rest of the request.
		if decision.IsImpersonating && imp != nil {
			ctx := orgcontext.WithOrgID(c.Request.Context(), int64(imp.OrgID))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func decisionFromContext(c *gin.Context) (access.Decision, bool) {
	value, ok := c.Get(contextDecisionKey)
	if !ok {
		return access.Decision{}, false
	}
	decision, ok := value.(access.Decision)
	return decision, ok
}
