package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/paybook/internal/access"
)

type checkAccessRequest struct {
	OrgID   string `json:"org_id"`
	Module  string `json:"module"`
	Action  string `json:"action"`
	Feature string `json:"feature"`
}

// CheckAccess answers "could I do this" without doing it. The response
// is a full decision, including the denial reason when blocked, so the
// client can disable or annotate actions up front.
func (s *Server) CheckAccess(c *gin.Context) {
	userID, _ := s.userIDFromSession(c)

	var req checkAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orgID, err := parseOptionalSnowflakeID(req.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if orgID == 0 {
		if fromCtx, ok := orgIDFromRequest(c); ok {
			orgID = fromCtx
		}
	}

	imp, err := impersonationFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	decision, err := s.accessSvc.Check(c.Request.Context(), access.CheckRequest{
		UserID:        userID,
		OrgID:         orgID,
		Module:        access.Module(strings.TrimSpace(req.Module)),
		Action:        access.Action(strings.TrimSpace(req.Action)),
		Feature:       access.Feature(strings.TrimSpace(req.Feature)),
		Impersonation: imp,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}
