package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crm-service/internal/audit"
	"crm-service/internal/auth"
	"crm-service/internal/authz"
	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac"
	apperrors "crm-service/pkg/errors"
	"crm-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type APIKeyHandler struct {
	keys        APIKeyManager
	runner      SuiteRunner
	checker     *rbac.Checker
	limiter     KeyForgetter
	auditLogger AuditLogger
	now         func() time.Time
}

func NewAPIKeyHandler(keys APIKeyManager, runner SuiteRunner, checker *rbac.Checker, limiter KeyForgetter, auditLogger AuditLogger) *APIKeyHandler {
	return &APIKeyHandler{
		keys:        keys,
		runner:      runner,
		checker:     checker,
		limiter:     limiter,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

type ResourcePermissionRequest struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

type CreateAPIKeyRequest struct {
	Name                string                      `json:"name"`
	Permissions         []string                    `json:"permissions"`
	ResourcePermissions []ResourcePermissionRequest `json:"resourcePermissions,omitempty"`
	ExpiresAt           string                      `json:"expiresAt,omitempty"`
	RateLimit           *int                        `json:"rateLimit,omitempty"`
	AllowedIPs          []string                    `json:"allowedIps,omitempty"`
}

type APIKeyResponse struct {
	ID                  string                      `json:"id"`
	Name                string                      `json:"name"`
	KeyPrefix           string                      `json:"keyPrefix"`
	Status              apikey.Status               `json:"status"`
	IsActive            bool                        `json:"isActive"`
	Permissions         []apikey.Permission         `json:"permissions"`
	ResourcePermissions []apikey.ResourcePermission `json:"resourcePermissions,omitempty"`
	ExpiresAt           *time.Time                  `json:"expiresAt,omitempty"`
	RateLimit           *int                        `json:"rateLimit,omitempty"`
	AllowedIPs          []string                    `json:"allowedIps,omitempty"`
	CreatedBy           string                      `json:"createdBy"`
	CreatedAt           time.Time                   `json:"createdAt"`
	LastUsedAt          *time.Time                  `json:"lastUsedAt,omitempty"`
	UsageCount          int64                       `json:"usageCount"`
	RevokedAt           *time.Time                  `json:"revokedAt,omitempty"`
}

type CreateAPIKeyResponse struct {
	APIKey APIKeyResponse `json:"apiKey"`
	Key    string         `json:"key"`
}

type RunTestsRequest struct {
	ScenarioIDs []string `json:"scenarioIds,omitempty"`
}

func (h *APIKeyHandler) CreateAPIKey(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	var req CreateAPIKeyRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	input, err := h.buildCreateInput(req, userID)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	issued, err := h.keys.Create(c.Request().Context(), input)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return RespondWithMappedError(c, err)
		}
		h.auditLogger.LogError(c, audit.ResourceTypeAPIKey, nil, audit.ActionCreate, err)
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgCreateAPIKeyFail)
	}

	h.auditLogger.LogFromContext(c, audit.ResourceTypeAPIKey, &issued.Key.ID, audit.ActionCreate, audit.StatusSuccess, map[string]any{
		"name":       issued.Key.Name,
		"key_prefix": issued.Key.KeyPrefix,
	})

	return c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKey: h.toAPIKeyResponse(issued.Key),
		Key:    issued.Secret,
	})
}

func (h *APIKeyHandler) buildCreateInput(req CreateAPIKeyRequest, createdBy uuid.UUID) (apikey.CreateAPIKeyInput, error) {
	name := strings.TrimSpace(req.Name)
	if err := validator.APIKeyName(name); err != nil {
		return apikey.CreateAPIKeyInput{}, err
	}

	permissions, err := normalizePermissions(req.Permissions, apikey.Permission.Validate)
	if err != nil {
		return apikey.CreateAPIKeyInput{}, err
	}

	scoped := make([]apikey.ResourcePermission, 0, len(req.ResourcePermissions))
	for _, rp := range req.ResourcePermissions {
		resource := rbac.Resource(strings.ToLower(strings.TrimSpace(rp.Resource)))
		if !h.checker.IsValidResource(resource) {
			return apikey.CreateAPIKeyInput{}, fmt.Errorf(msgUnknownResourceFmt, rp.Resource)
		}
		actions, err := normalizePermissions(rp.Actions, apikey.Permission.ValidateScoped)
		if err != nil {
			return apikey.CreateAPIKeyInput{}, err
		}
		scoped = append(scoped, apikey.ResourcePermission{Resource: resource, Actions: actions})
	}

	expiresAt, err := apikey.ParseExpiry(strings.TrimSpace(req.ExpiresAt))
	if err != nil {
		return apikey.CreateAPIKeyInput{}, err
	}
	if expiresAt != nil {
		if err := validator.Expiry(*expiresAt, h.now()); err != nil {
			return apikey.CreateAPIKeyInput{}, err
		}
	}

	if req.RateLimit != nil {
		if err := validator.RateLimit(*req.RateLimit); err != nil {
			return apikey.CreateAPIKeyInput{}, err
		}
	}

	allowed := make([]string, 0, len(req.AllowedIPs))
	for _, ip := range req.AllowedIPs {
		if ip = strings.TrimSpace(ip); ip != "" {
			allowed = append(allowed, ip)
		}
	}

	input := apikey.CreateAPIKeyInput{
		Name:                name,
		Permissions:         permissions,
		ResourcePermissions: scoped,
		ExpiresAt:           expiresAt,
		RateLimit:           req.RateLimit,
		AllowedIPs:          allowed,
		CreatedBy:           createdBy,
	}
	if len(input.ResourcePermissions) == 0 {
		input.ResourcePermissions = nil
	}
	if len(input.AllowedIPs) == 0 {
		input.AllowedIPs = nil
	}
	return input, nil
}

func normalizePermissions(raw []string, validate func(apikey.Permission) error) ([]apikey.Permission, error) {
	seen := make(map[apikey.Permission]struct{}, len(raw))
	out := make([]apikey.Permission, 0, len(raw))
	for _, p := range raw {
		perm := apikey.Permission(strings.ToLower(strings.TrimSpace(p)))
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		if err := validate(perm); err != nil {
			return nil, err
		}
		out = append(out, perm)
	}
	return out, nil
}

func (h *APIKeyHandler) ListAPIKeys(c echo.Context) error {
	keys, err := h.keys.List(c.Request().Context())
	if err != nil {
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgListAPIKeysFail)
	}

	out := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, h.toAPIKeyResponse(key))
	}

	return c.JSON(http.StatusOK, out)
}

func (h *APIKeyHandler) GetAPIKey(c echo.Context) error {
	keyID, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidAPIKeyID)
	}

	key, err := h.keys.Get(c.Request().Context(), keyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgAPIKeyNotFound)
		}
		return RespondWithMappedError(c, err)
	}

	return c.JSON(http.StatusOK, h.toAPIKeyResponse(key))
}

func (h *APIKeyHandler) RevokeAPIKey(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	keyID, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidAPIKeyID)
	}

	key, err := h.keys.Revoke(c.Request().Context(), keyID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgAPIKeyNotFound)
		}
		h.auditLogger.LogError(c, audit.ResourceTypeAPIKey, &keyID, audit.ActionRevoke, err)
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgRevokeAPIKeyFail)
	}

	h.auditLogger.LogFromContext(c, audit.ResourceTypeAPIKey, &keyID, audit.ActionRevoke, audit.StatusSuccess, nil)
	return c.JSON(http.StatusOK, h.toAPIKeyResponse(key))
}

func (h *APIKeyHandler) DeleteAPIKey(c echo.Context) error {
	keyID, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidAPIKeyID)
	}

	if _, err := h.keys.Delete(c.Request().Context(), keyID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgAPIKeyNotFound)
		}
		h.auditLogger.LogError(c, audit.ResourceTypeAPIKey, &keyID, audit.ActionDelete, err)
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgDeleteAPIKeyFail)
	}
	if h.limiter != nil {
		h.limiter.Forget(keyID.String())
	}

	h.auditLogger.LogFromContext(c, audit.ResourceTypeAPIKey, &keyID, audit.ActionDelete, audit.StatusSuccess, nil)
	return respondMessage(c, http.StatusOK, msgAPIKeyDeleted)
}

// ListScenarios returns the built-in test scenario catalogue
func (h *APIKeyHandler) ListScenarios(c echo.Context) error {
	return c.JSON(http.StatusOK, authz.Scenarios())
}

// RunTests executes the scenario catalogue (or the requested subset) against
// the key through the simulated backend and reports how each run compared
// with the expected outcome.
func (h *APIKeyHandler) RunTests(c echo.Context) error {
	keyID, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidAPIKeyID)
	}

	var req RunTestsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	scenarios := authz.Scenarios()
	if len(req.ScenarioIDs) > 0 {
		scenarios = make([]authz.Scenario, 0, len(req.ScenarioIDs))
		for _, id := range req.ScenarioIDs {
			sc, ok := authz.ScenarioByID(id)
			if !ok {
				return respondError(c, http.StatusBadRequest, fmt.Sprintf(msgUnknownScenarioFmt, id))
			}
			scenarios = append(scenarios, sc)
		}
	}

	key, err := h.keys.Get(c.Request().Context(), keyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgAPIKeyNotFound)
		}
		return RespondWithMappedError(c, err)
	}

	report, err := h.runner.Run(c.Request().Context(), key, scenarios)
	if err != nil {
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgRunTestsFail)
	}

	return c.JSON(http.StatusOK, report)
}

func (h *APIKeyHandler) toAPIKeyResponse(key *apikey.APIKey) APIKeyResponse {
	perms := key.Permissions
	if perms == nil {
		perms = []apikey.Permission{}
	}

	return APIKeyResponse{
		ID:                  key.ID.String(),
		Name:                key.Name,
		KeyPrefix:           key.KeyPrefix,
		Status:              key.Status(h.now()),
		IsActive:            key.Active,
		Permissions:         perms,
		ResourcePermissions: key.ResourcePermissions,
		ExpiresAt:           key.ExpiresAt,
		RateLimit:           key.RateLimit,
		AllowedIPs:          key.AllowedIPs,
		CreatedBy:           key.CreatedBy.String(),
		CreatedAt:           key.CreatedAt,
		LastUsedAt:          key.LastUsedAt,
		UsageCount:          key.UsageCount,
		RevokedAt:           key.RevokedAt,
	}
}
