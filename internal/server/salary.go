package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	salarydomain "github.com/smallbiznis/paybook/internal/salary/domain"
)

func (s *Server) GenerateSalary(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, newValidationError("org_id", "missing_org", "organization context required"))
		return
	}

	var req salarydomain.GenerateSalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.salarySvc.Generate(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) GetSalary(c *gin.Context) {
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

	record, err := s.salarySvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) EditSalary(c *gin.Context) {
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

	var req salarydomain.EditSalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.salarySvc.Edit(c.Request.Context(), orgID, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) DeleteSalary(c *gin.Context) {
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

	if err := s.salarySvc.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) MarkSalaryPaid(c *gin.Context) {
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

	record, err := s.salarySvc.MarkPaid(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) ListSalaries(c *gin.Context) {
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
	month, err := parseOptionalInt(c.Query("month"), "month")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := parseOptionalInt(c.Query("year"), "year")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records, err := s.salarySvc.List(c.Request.Context(), orgID, salarydomain.ListFilter{
		EmployeeID: employeeID,
		Month:      month,
		Year:       year,
		Status:     salarydomain.Status(strings.TrimSpace(c.Query("status"))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}
