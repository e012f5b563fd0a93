package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/paybook/internal/access"
	advancedomain "github.com/smallbiznis/paybook/internal/advance/domain"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	employeedomain "github.com/smallbiznis/paybook/internal/employee/domain"
	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
	salarydomain "github.com/smallbiznis/paybook/internal/salary/domain"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`

	// Populated for access denials so the client can explain exactly
	// what blocked the call.
	Reason        string   `json:"reason,omitempty"`
	RequiredRoles []string `json:"required_roles,omitempty"`
	Feature       string   `json:"feature,omitempty"`
	MinimumPlan   string   `json:"minimum_plan,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// decisionError wraps a denied access decision so the error middleware
// can render the denial with its full context.
type decisionError struct {
	Decision access.Decision
}

func (e decisionError) Error() string {
	return string(e.Decision.Reason)
}

func (e decisionError) Unwrap() error {
	return e.Decision.Err()
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var dErr decisionError
	if errors.As(err, &dErr) {
		return mapDecision(dErr.Decision)
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Code: code, Message: "invalid value"},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, access.ErrUnauthenticated),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionNotFound):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// mapDecision renders each denial reason distinctly. A plan or role
// denial tells the caller what would unblock it.
func mapDecision(d access.Decision) (int, errorPayload) {
	switch d.Reason {
	case access.DenyUnauthenticated:
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "authentication required",
			Reason:  string(d.Reason),
		}
	case access.DenyNotAMember:
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "you are not a member of this organization",
			Reason:  string(d.Reason),
		}
	case access.DenyByRole:
		return http.StatusForbidden, errorPayload{
			Type:          "forbidden",
			Message:       "your role does not permit this action",
			Reason:        string(d.Reason),
			RequiredRoles: roleStrings(d.RequiredRoles),
		}
	case access.DenyByPlan:
		return http.StatusForbidden, errorPayload{
			Type:        "forbidden",
			Message:     "this feature is not included in your plan",
			Reason:      string(d.Reason),
			Feature:     string(d.Feature),
			MinimumPlan: string(d.MinimumPlan),
		}
	case access.DenySubscriptionExpired:
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "your subscription has expired; renew to make changes",
			Reason:  string(d.Reason),
		}
	default:
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
			Reason:  string(d.Reason),
		}
	}
}

func roleStrings(roles []orgdomain.Role) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, orgdomain.ErrInvalidName),
		errors.Is(err, orgdomain.ErrInvalidUser),
		errors.Is(err, orgdomain.ErrInvalidRole),
		errors.Is(err, orgdomain.ErrInvalidOrganization),
		errors.Is(err, employeedomain.ErrInvalidName),
		errors.Is(err, employeedomain.ErrNegativeSalary),
		errors.Is(err, advancedomain.ErrInvalidEmployee),
		errors.Is(err, advancedomain.ErrInvalidAmount),
		errors.Is(err, advancedomain.ErrInvalidDeductMonth),
		errors.Is(err, salarydomain.ErrInvalidEmployee),
		errors.Is(err, salarydomain.ErrInvalidPeriod),
		errors.Is(err, salarydomain.ErrInvalidAmount),
		errors.Is(err, salarydomain.ErrNegativeNetPayable),
		errors.Is(err, subdomain.ErrInvalidPlan),
		errors.Is(err, subdomain.ErrInvalidOrganization),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, orgdomain.ErrMemberNotFound),
		errors.Is(err, employeedomain.ErrNotFound),
		errors.Is(err, advancedomain.ErrNotFound),
		errors.Is(err, salarydomain.ErrNotFound),
		errors.Is(err, subdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, orgdomain.ErrMemberExists),
		errors.Is(err, orgdomain.ErrCannotRemoveOwner),
		errors.Is(err, subdomain.ErrAlreadyExists),
		errors.Is(err, salarydomain.ErrDuplicateRecord),
		errors.Is(err, salarydomain.ErrImmutableRecord),
		errors.Is(err, advancedomain.ErrPaidSalaryLock),
		errors.Is(err, advancedomain.ErrConsumedMonthFixed),
		errors.Is(err, advancedomain.ErrAmountLimit),
		errors.Is(err, advancedomain.ErrOpenAdvanceLimit):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, salarydomain.ErrDuplicateRecord):
		return "a salary record already exists for this employee and month"
	case errors.Is(err, salarydomain.ErrImmutableRecord):
		return "paid salary records cannot be changed"
	case errors.Is(err, advancedomain.ErrPaidSalaryLock):
		return "this advance was deducted in a paid salary and is locked"
	case errors.Is(err, advancedomain.ErrConsumedMonthFixed):
		return "the deduction month cannot change after the advance was consumed"
	case errors.Is(err, advancedomain.ErrAmountLimit):
		return "amount exceeds the configured advance limit"
	case errors.Is(err, advancedomain.ErrOpenAdvanceLimit):
		return "the employee already has the maximum number of open advances"
	default:
		return "conflict"
	}
}

// classifyErrorForLog labels request failures for the access log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "", ""
	}
}
