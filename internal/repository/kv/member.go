package kv

import (
	"context"
	"errors"
	"time"

	"crm-service/internal/domain/user"
	"crm-service/internal/kvstore"
	"crm-service/internal/rbac"
	"crm-service/internal/repository"
	apperrors "crm-service/pkg/errors"

	"github.com/google/uuid"
)

// MemberRepository keeps the team directory under "team-members"
type MemberRepository struct {
	store kvstore.Store
	now   func() time.Time
}

func NewMemberRepository(store kvstore.Store) *MemberRepository {
	return &MemberRepository{store: store, now: time.Now}
}

func (r *MemberRepository) update(ctx context.Context, fn func([]user.Member) ([]user.Member, error)) error {
	err := kvstore.UpdateJSON(ctx, r.store, repository.KeyTeamMembers, []user.Member{}, fn)
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return errFailedUpdate(repository.KeyTeamMembers, err)
}

func (r *MemberRepository) Invite(ctx context.Context, input user.InviteMemberInput) (*user.Member, error) {
	by := input.InvitedBy
	return r.Add(ctx, user.Member{
		Name:      input.Name,
		Email:     input.Email,
		Role:      input.Role,
		Status:    user.MemberInvited,
		InvitedBy: &by,
	})
}

// Add inserts a member, filling in the id and invitation time when unset
func (r *MemberRepository) Add(ctx context.Context, m user.Member) (*user.Member, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.InvitedAt.IsZero() {
		m.InvitedAt = r.now().UTC()
	}
	m.Email = normalizeEmail(m.Email)

	err := r.update(ctx, func(members []user.Member) ([]user.Member, error) {
		for _, existing := range members {
			if existing.Email == m.Email {
				return nil, apperrors.Conflict(errMemberExists)
			}
		}
		return append(members, m), nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.Member, error) {
	members, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].ID == id {
			m := members[i]
			return &m, nil
		}
	}
	return nil, apperrors.NotFound(errMemberNotFound)
}

func (r *MemberRepository) list(ctx context.Context) ([]user.Member, error) {
	members, err := kvstore.GetJSON(ctx, r.store, repository.KeyTeamMembers, []user.Member{})
	if err != nil {
		return nil, errFailedLoad(repository.KeyTeamMembers, err)
	}
	return members, nil
}

// List returns members in invitation order
func (r *MemberRepository) List(ctx context.Context) ([]*user.Member, error) {
	members, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*user.Member, 0, len(members))
	for i := range members {
		out = append(out, &members[i])
	}
	return out, nil
}

func (r *MemberRepository) UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*user.Member, error) {
	var updated user.Member
	err := r.update(ctx, func(members []user.Member) ([]user.Member, error) {
		for i := range members {
			if members[i].ID == id {
				members[i].Role = role
				updated = members[i]
				return members, nil
			}
		}
		return nil, apperrors.NotFound(errMemberNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove deletes a member and returns what was removed
func (r *MemberRepository) Remove(ctx context.Context, id uuid.UUID) (*user.Member, error) {
	var removed user.Member
	err := r.update(ctx, func(members []user.Member) ([]user.Member, error) {
		for i := range members {
			if members[i].ID == id {
				removed = members[i]
				return append(members[:i], members[i+1:]...), nil
			}
		}
		return nil, apperrors.NotFound(errMemberNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}
