package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"crm-service/internal/audit"
	"crm-service/internal/auth"
	"crm-service/internal/domain/user"
	"crm-service/internal/rbac"
	apperrors "crm-service/pkg/errors"
	"crm-service/pkg/password"
	"crm-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TeamHandler administers the team directory. Members linked to an account
// have their account role kept in step with the member role, and their
// session dropped whenever the role changes or the member is removed.
type TeamHandler struct {
	members     MemberRepository
	users       UserRepository
	sessions    SessionInvalidator
	checker     *rbac.Checker
	auditLogger AuditLogger
	log         *zap.Logger
}

func NewTeamHandler(members MemberRepository, users UserRepository, sessions SessionInvalidator, checker *rbac.Checker, auditLogger AuditLogger, log *zap.Logger) *TeamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TeamHandler{
		members:     members,
		users:       users,
		sessions:    sessions,
		checker:     checker,
		auditLogger: auditLogger,
		log:         log,
	}
}

type InviteMemberRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type MemberResponse struct {
	ID        string            `json:"id"`
	UserID    *string           `json:"userId,omitempty"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      rbac.Role         `json:"role"`
	Status    user.MemberStatus `json:"status"`
	InvitedAt time.Time         `json:"invitedAt"`
}

func (h *TeamHandler) ListMembers(c echo.Context) error {
	members, err := h.members.List(c.Request().Context())
	if err != nil {
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgListMembersFail)
	}

	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	return c.JSON(http.StatusOK, out)
}

// InviteMember adds a member. With a password the member also gets an
// account and joins immediately; without one the member stays invited.
func (h *TeamHandler) InviteMember(c echo.Context) error {
	actor, err := auth.Subject(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}
	actorID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	var req InviteMemberRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.PersonName(req.Name); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	if err := validator.Email(req.Email); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	role, err := h.checker.ValidateRole(strings.TrimSpace(req.Role))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidRole)
	}
	if !h.checker.IsRoleElevated(actor.UserRole, role) {
		return h.deny(c, nil, audit.ActionInvite, msgRoleAboveOwn)
	}

	ctx := c.Request().Context()
	var member *user.Member
	if req.Password == "" {
		member, err = h.members.Invite(ctx, user.InviteMemberInput{
			Name:      req.Name,
			Email:     req.Email,
			Role:      role,
			InvitedBy: actorID,
		})
	} else {
		member, err = h.addWithAccount(c, req, role, actorID)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrEmailExists) {
			return respondError(c, http.StatusConflict, msgEmailAlreadyExists)
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return handleHTTPError(c, he)
		}
		h.auditLogger.LogError(c, audit.ResourceTypeMember, nil, audit.ActionInvite, err)
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgInviteMemberFail)
	}

	h.auditLogger.LogFromContext(c, audit.ResourceTypeMember, &member.ID, audit.ActionInvite, audit.StatusSuccess, map[string]any{
		"email": req.Email,
		"role":  string(role),
	})
	return c.JSON(http.StatusCreated, toMemberResponse(member))
}

func (h *TeamHandler) addWithAccount(c echo.Context, req InviteMemberRequest, role rbac.Role, actorID uuid.UUID) (*user.Member, error) {
	if err := validator.Password(req.Password); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, msgPasswordProcessFail)
	}

	ctx := c.Request().Context()
	account, err := h.users.Create(ctx, user.CreateUserInput{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	member, err := h.members.Add(ctx, user.Member{
		UserID:    &account.ID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		Status:    user.MemberActive,
		InvitedBy: &actorID,
	})
	if err != nil {
		if delErr := h.users.Delete(ctx, account.ID); delErr != nil {
			h.log.Error("failed to roll back account", zap.String("user_id", account.ID.String()), zap.Error(delErr))
		}
		return nil, err
	}
	return member, nil
}

func (h *TeamHandler) ChangeRole(c echo.Context) error {
	actor, err := auth.Subject(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}
	actorID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	memberID, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidMemberID)
	}

	var req ChangeRoleRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	role, err := h.checker.ValidateRole(strings.TrimSpace(req.Role))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidRole)
	}

	ctx := c.Request().Context()
	current, err := h.members.GetByID(ctx, memberID)
	if err != nil {
		return h.memberLookupError(c, err)
	}
	if current.UserID != nil && *current.UserID == actorID {
		return h.deny(c, &memberID, audit.ActionChangeRole, msgCannotChangeSelf)
	}
	if !h.checker.IsRoleElevated(actor.UserRole, current.Role) {
		return h.deny(c, &memberID, audit.ActionChangeRole, msgMemberAboveOwn)
	}
	if !h.checker.IsRoleElevated(actor.UserRole, role) {
		return h.deny(c, &memberID, audit.ActionChangeRole, msgRoleAboveOwn)
	}

	updated, err := h.members.UpdateRole(ctx, memberID, role)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgMemberNotFound)
		}
		h.auditLogger.LogError(c, audit.ResourceTypeMember, &memberID, audit.ActionChangeRole, err)
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgUpdateMemberFail)
	}

	if updated.UserID != nil {
		if err := h.users.UpdateRole(ctx, *updated.UserID, role); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			h.auditLogger.LogError(c, audit.ResourceTypeUser, updated.UserID, audit.ActionChangeRole, err)
			return SafeErrorResponse(c, err, http.StatusInternalServerError, msgUpdateMemberFail)
		}
		if err := h.sessions.Invalidate(ctx, updated.UserID.String()); err != nil {
			h.log.Error("failed to drop session", zap.String("user_id", updated.UserID.String()), zap.Error(err))
		}
	}

	h.auditLogger.LogFromContext(c, audit.ResourceTypeMember, &memberID, audit.ActionChangeRole, audit.StatusSuccess, map[string]any{
		"from": string(current.Role),
		"to":   string(role),
	})
	return c.JSON(http.StatusOK, toMemberResponse(updated))
}

func (h *TeamHandler) RemoveMember(c echo.Context) error {
	actor, err := auth.Subject(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}
	actorID, err := auth.GetUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, err.Error())
	}

	memberID, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidMemberID)
	}

	ctx := c.Request().Context()
	current, err := h.members.GetByID(ctx, memberID)
	if err != nil {
		return h.memberLookupError(c, err)
	}
	if current.UserID != nil && *current.UserID == actorID {
		return h.deny(c, &memberID, audit.ActionRemove, msgCannotRemoveSelf)
	}
	if !h.checker.IsRoleElevated(actor.UserRole, current.Role) {
		return h.deny(c, &memberID, audit.ActionRemove, msgMemberAboveOwn)
	}

	removed, err := h.members.Remove(ctx, memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgMemberNotFound)
		}
		h.auditLogger.LogError(c, audit.ResourceTypeMember, &memberID, audit.ActionRemove, err)
		return SafeErrorResponse(c, err, http.StatusInternalServerError, msgRemoveMemberFail)
	}

	if removed.UserID != nil {
		if err := h.users.Delete(ctx, *removed.UserID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			h.auditLogger.LogError(c, audit.ResourceTypeUser, removed.UserID, audit.ActionRemove, err)
			return SafeErrorResponse(c, err, http.StatusInternalServerError, msgRemoveMemberFail)
		}
		if err := h.sessions.Invalidate(ctx, removed.UserID.String()); err != nil {
			h.log.Error("failed to drop session", zap.String("user_id", removed.UserID.String()), zap.Error(err))
		}
	}

	h.auditLogger.LogFromContext(c, audit.ResourceTypeMember, &memberID, audit.ActionRemove, audit.StatusSuccess, map[string]any{
		"email": removed.Email,
	})
	return respondMessage(c, http.StatusOK, msgMemberRemoved)
}

func (h *TeamHandler) memberLookupError(c echo.Context, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return respondError(c, http.StatusNotFound, msgMemberNotFound)
	}
	return SafeErrorResponse(c, err, http.StatusInternalServerError, msgUpdateMemberFail)
}

func (h *TeamHandler) deny(c echo.Context, memberID *uuid.UUID, action audit.Action, message string) error {
	h.auditLogger.LogFromContext(c, audit.ResourceTypeMember, memberID, action, audit.StatusDenied, map[string]any{
		"reason": message,
	})
	return respondError(c, http.StatusForbidden, message)
}

func toMemberResponse(m *user.Member) MemberResponse {
	resp := MemberResponse{
		ID:        m.ID.String(),
		Name:      m.Name,
		Email:     m.Email,
		Role:      m.Role,
		Status:    m.Status,
		InvitedAt: m.InvitedAt,
	}
	if m.UserID != nil {
		id := m.UserID.String()
		resp.UserID = &id
	}
	return resp
}
