package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
)

type changePlanRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) GetSubscription(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	sub, err := s.subscriptionSvc.GetByOrg(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (s *Server) StartTrial(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	sub, err := s.subscriptionSvc.StartTrial(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

func (s *Server) ChangePlan(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan := subdomain.Plan(strings.ToLower(strings.TrimSpace(req.Plan)))
	sub, err := s.subscriptionSvc.ChangePlan(c.Request.Context(), orgID, plan)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}
