package handler

import (
	"errors"
	"net/http"
	"time"

	"crm-service/internal/audit"
	"crm-service/internal/auth"
	"crm-service/internal/domain/user"
	"crm-service/internal/rbac"
	apperrors "crm-service/pkg/errors"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	logins      LoginService
	users       UserGetter
	checker     *rbac.Checker
	auditLogger AuditLogger
}

func NewAuthHandler(logins LoginService, users UserGetter, checker *rbac.Checker, auditLogger AuditLogger) *AuthHandler {
	return &AuthHandler{
		logins:      logins,
		users:       users,
		checker:     checker,
		auditLogger: auditLogger,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  rbac.Role `json:"role"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type SessionResponse struct {
	User        UserResponse         `json:"user"`
	Permissions rbac.RolePermissions `json:"permissions"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	res, err := h.logins.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			h.auditLogger.LogFromContext(c, audit.ResourceTypeSession, nil, audit.ActionLogin, audit.StatusFailure, map[string]any{
				"email": req.Email,
			})
			return respondError(c, http.StatusUnauthorized, msgInvalidCredentials)
		}
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgLoginFail)
	}

	c.Set(auth.ContextKeyUserID, res.User.ID)
	h.auditLogger.LogFromContext(c, audit.ResourceTypeSession, &res.User.ID, audit.ActionLogin, audit.StatusSuccess, nil)

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      toUserResponse(res.User),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	if err := h.logins.Logout(c.Request().Context(), userID.String()); err != nil {
		h.auditLogger.LogError(c, audit.ResourceTypeSession, &userID, audit.ActionLogout, err)
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgLogoutFail)
	}

	h.auditLogger.LogFromContext(c, audit.ResourceTypeSession, &userID, audit.ActionLogout, audit.StatusSuccess, nil)
	return respondMessage(c, http.StatusOK, msgLoggedOut)
}

// Session returns the caller's account and the permission matrix of the
// role carried by the session token.
func (h *AuthHandler) Session(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}
	identity, err := auth.GetIdentity(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	u, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgUserNotFound)
		}
		return SafeErrorResponse(c, err, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}

	resp := toUserResponse(u)
	resp.Role = identity.Role

	return c.JSON(http.StatusOK, SessionResponse{
		User:        resp,
		Permissions: h.checker.PermissionsFor(identity.Role),
	})
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:    u.ID.String(),
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}
