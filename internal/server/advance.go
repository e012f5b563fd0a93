package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	advancedomain "github.com/smallbiznis/paybook/internal/advance/domain"
)

func (s *Server) CreateAdvance(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	var req advancedomain.CreateAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	advance, err := s.advanceSvc.Create(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, advance)
}

func (s *Server) GetAdvance(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	advance, err := s.advanceSvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, advance)
}

func (s *Server) EditAdvance(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req advancedomain.EditAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	advance, err := s.advanceSvc.Edit(c.Request.Context(), orgID, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, advance)
}

func (s *Server) DeleteAdvance(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.advanceSvc.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListAdvances(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	employeeID, err := parseOptionalSnowflakeID(c.Query("employee_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if employeeID != 0 {
		advances, err := s.advanceSvc.ListByEmployee(c.Request.Context(), orgID, employeeID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": advances})
		return
	}

	status := advancedomain.Status(strings.TrimSpace(c.Query("status")))
	advances, err := s.advanceSvc.ListByOrg(c.Request.Context(), orgID, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": advances})
}
