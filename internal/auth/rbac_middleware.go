package auth

import (
	"net/http"

	"crm-service/internal/audit"
	"crm-service/internal/rbac"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacChecker *rbac.Checker
	audit       *audit.Logger
}

func NewRBACMiddleware(checker *rbac.Checker, auditLogger *audit.Logger) *RBACMiddleware {
	return &RBACMiddleware{rbacChecker: checker, audit: auditLogger}
}

// RequirePermission admits session requests whose role may perform action
// on resource. Must run after RequireSession.
func (m *RBACMiddleware) RequirePermission(resource rbac.Resource, action rbac.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject, err := Subject(c)
			if err != nil {
				return respondError(c, http.StatusUnauthorized, msgUserNotAuthenticated)
			}

			if err := m.rbacChecker.Authorize(subject, resource, action); err != nil {
				m.deny(c, subject, map[string]any{
					"resource": string(resource),
					"action":   string(action),
				})
				return respondError(c, http.StatusForbidden, msgPermissionDenied)
			}

			return next(c)
		}
	}
}

// RequireRole admits session requests whose role is at least minRole
func (m *RBACMiddleware) RequireRole(minRole rbac.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject, err := Subject(c)
			if err != nil {
				return respondError(c, http.StatusUnauthorized, msgUserNotAuthenticated)
			}

			if err := m.rbacChecker.RequireRole(subject, minRole); err != nil {
				m.deny(c, subject, map[string]any{"min_role": string(minRole)})
				return respondError(c, http.StatusForbidden, msgPermissionDenied)
			}

			return next(c)
		}
	}
}

func (m *RBACMiddleware) deny(c echo.Context, subject *rbac.AuthSubject, metadata map[string]any) {
	if m.audit == nil {
		return
	}
	metadata["role"] = string(subject.UserRole)
	m.audit.LogFromContext(c, audit.ResourceTypeCRM, nil, audit.ActionAccess, audit.StatusDenied, metadata)
}
