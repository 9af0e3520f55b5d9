package handler

import (
	"fmt"
	"net/http"
	"strings"

	"crm-service/internal/auth"
	"crm-service/internal/rbac"

	"github.com/labstack/echo/v4"
)

type PermissionHandler struct {
	checker *rbac.Checker
}

func NewPermissionHandler(checker *rbac.Checker) *PermissionHandler {
	return &PermissionHandler{checker: checker}
}

type ActionResponse struct {
	Action     rbac.Action     `json:"action"`
	Label      string          `json:"label"`
	Allowed    bool            `json:"allowed"`
	Permission rbac.Permission `json:"apiKeyPermission"`
}

type ResourcePermissionsResponse struct {
	Resource  rbac.Resource    `json:"resource"`
	CanAccess bool             `json:"canAccess"`
	Actions   []ActionResponse `json:"actions"`
}

type PermissionsResponse struct {
	Role        rbac.Role                     `json:"role"`
	Permissions rbac.RolePermissions          `json:"permissions"`
	Resources   []ResourcePermissionsResponse `json:"resources"`
}

type PermissionCheckResponse struct {
	Role     rbac.Role     `json:"role"`
	Resource rbac.Resource `json:"resource"`
	Action   rbac.Action   `json:"action"`
	Label    string        `json:"label"`
	Allowed  bool          `json:"allowed"`
}

// List returns the full permission matrix of the caller's role, plus an
// ordered, labelled view of it.
func (h *PermissionHandler) List(c echo.Context) error {
	identity, err := auth.GetIdentity(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	matrix := h.checker.PermissionsFor(identity.Role)
	defs := h.checker.Resources()
	resources := make([]ResourcePermissionsResponse, 0, len(defs))
	for _, rd := range defs {
		actions := make([]ActionResponse, 0, len(rd.Actions))
		for _, act := range rd.Actions {
			actions = append(actions, ActionResponse{
				Action:     act,
				Label:      h.checker.ActionLabel(act),
				Allowed:    matrix.Allows(rd.Name, act),
				Permission: h.checker.ActionToPermission(act),
			})
		}
		resources = append(resources, ResourcePermissionsResponse{
			Resource:  rd.Name,
			CanAccess: h.checker.CanAccessResource(identity.Role, rd.Name),
			Actions:   actions,
		})
	}

	return c.JSON(http.StatusOK, PermissionsResponse{
		Role:        identity.Role,
		Permissions: matrix,
		Resources:   resources,
	})
}

// Check answers whether the caller's role may perform ?action on ?resource
func (h *PermissionHandler) Check(c echo.Context) error {
	identity, err := auth.GetIdentity(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	resource := rbac.Resource(strings.TrimSpace(c.QueryParam(queryResource)))
	action := rbac.Action(strings.TrimSpace(c.QueryParam(queryAction)))
	if resource == "" || action == "" {
		return respondError(c, http.StatusBadRequest, msgResourceRequired)
	}
	if !h.checker.IsValidResource(resource) {
		return respondError(c, http.StatusBadRequest, fmt.Sprintf(msgUnknownResourceFmt, resource))
	}
	if !h.declaresAction(resource, action) {
		return respondError(c, http.StatusBadRequest, fmt.Sprintf(msgUnknownActionFmt, action, resource))
	}

	return c.JSON(http.StatusOK, PermissionCheckResponse{
		Role:     identity.Role,
		Resource: resource,
		Action:   action,
		Label:    h.checker.ActionLabel(action),
		Allowed:  h.checker.HasPermission(identity.Role, resource, action),
	})
}

func (h *PermissionHandler) declaresAction(resource rbac.Resource, action rbac.Action) bool {
	for _, rd := range h.checker.Resources() {
		if rd.Name != resource {
			continue
		}
		for _, act := range rd.Actions {
			if act == action {
				return true
			}
		}
	}
	return false
}
