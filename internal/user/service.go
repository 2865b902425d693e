// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

var ErrRoleNotGrantable = errors.New("cannot grant a role above your own")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get profile: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

// UpdateRole changes the target's role on behalf of actor. The target row is
// locked, the guard runs against its stored role, and the write is
// conditioned on that role, all inside one transaction. Nothing is written
// when the guard refuses.
func (s *Service) UpdateRole(
	ctx context.Context,
	actor rbac.Identity,
	targetID string,
	newRole rbac.Role,
) (updated *User, err error) {
	ctx, span := core.StartSpan(ctx, "user.UpdateRole",
		attribute.String("actor.role", actor.Role.String()),
		attribute.String("role.requested", newRole.String()),
	)
	defer func() { core.EndSpan(span, err) }()

	if !newRole.Valid() {
		return nil, fmt.Errorf(
			"update role: role %q: %w",
			newRole,
			core.ErrInvalidInput,
		)
	}

	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		target, err := repo.GetByIDForUpdate(ctx, targetID)
		if err != nil {
			return err
		}

		if !rbac.CanModifyRole(actor.Role, target.Role) {
			return fmt.Errorf(
				"update role: %s may not modify %s: %w",
				actor.Role,
				target.Role,
				core.ErrForbidden,
			)
		}

		if !rbac.CanAssignRole(actor.Role, newRole) {
			return fmt.Errorf(
				"update role: %s may not grant %s: %w: %w",
				actor.Role,
				newRole,
				ErrRoleNotGrantable,
				core.ErrForbidden,
			)
		}

		if target.Role == newRole {
			updated = target
			return nil
		}

		updatedAt, err := repo.UpdateRoleIf(ctx, target.ID, target.Role, newRole)
		if err != nil {
			return err
		}

		slog.InfoContext(ctx, "user role changed",
			"actor_id", actor.UserID,
			"target_id", target.ID,
			"from", target.Role,
			"to", newRole,
		)

		target.Role = newRole
		target.UpdatedAt = updatedAt
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// EnsureSuperAdmin creates the bootstrap SUPER_ADMIN account. An existing
// account with the same email is left exactly as it is and reported with
// created false.
func (s *Service) EnsureSuperAdmin(
	ctx context.Context,
	email, name, password string,
) (*User, bool, error) {
	email = NormalizeEmail(email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, false, fmt.Errorf("ensure super admin: %w", err)
	}

	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:            uuid.New().String(),
		Email:         email,
		PasswordHash:  passwordHash,
		Name:          name,
		Role:          rbac.SuperAdmin,
		EmailVerified: true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("ensure super admin: %w", err)
	}

	slog.InfoContext(ctx, "super admin created", "user_id", u.ID)
	return u, true, nil
}
