package handler

import (
	"fmt"
	"net/http"

	"crm-service/internal/auth"
	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac"

	"github.com/labstack/echo/v4"
)

const adHocScenarioID = "live"

// methodPermissions maps an HTTP method onto the API key permission it needs
var methodPermissions = map[string]apikey.Permission{
	http.MethodGet:    apikey.PermissionRead,
	http.MethodPost:   apikey.PermissionWrite,
	http.MethodPut:    apikey.PermissionWrite,
	http.MethodPatch:  apikey.PermissionWrite,
	http.MethodDelete: apikey.PermissionDelete,
}

// SimulateHandler answers the public /v1 API on behalf of the CRM backends.
// Every request runs through the same executor the API key tester uses.
type SimulateHandler struct {
	executor RequestExecutor
	checker  *rbac.Checker
}

func NewSimulateHandler(executor RequestExecutor, checker *rbac.Checker) *SimulateHandler {
	return &SimulateHandler{executor: executor, checker: checker}
}

type SimulatedResponse struct {
	Status   int           `json:"status"`
	Outcome  authz.Outcome `json:"outcome"`
	Resource rbac.Resource `json:"resource"`
	Method   string        `json:"method"`
	ID       string        `json:"id,omitempty"`
}

func (h *SimulateHandler) Handle(c echo.Context) error {
	key, err := auth.GetAPIKey(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	resource := rbac.Resource(c.Param(paramResource))
	if !h.checker.IsValidResource(resource) {
		return respondError(c, http.StatusNotFound, fmt.Sprintf(msgUnknownResourceFmt, resource))
	}

	method := c.Request().Method
	perm, ok := methodPermissions[method]
	if !ok {
		return respondError(c, http.StatusMethodNotAllowed, msgUnsupportedMethod)
	}

	scenario := authz.Scenario{
		ID:                 adHocScenarioID,
		Name:               method + " " + c.Request().URL.Path,
		Method:             method,
		Endpoint:           c.Request().URL.Path,
		Resource:           resource,
		RequiredPermission: perm,
	}

	resp, err := h.executor.Execute(c.Request().Context(), key, scenario)
	if err != nil {
		return err
	}

	return c.JSON(resp.StatusCode, SimulatedResponse{
		Status:   resp.StatusCode,
		Outcome:  resp.Outcome,
		Resource: resource,
		Method:   method,
		ID:       c.Param(paramID),
	})
}
