package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type roleRepository interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	ActiveRoleNamesForUser(ctx context.Context, userID string) ([]string, error)
	ActiveSystemRoleNamesForUser(ctx context.Context, userID string) ([]string, error)
	CreateGrant(ctx context.Context, grant *models.UserRole) error
	RevokeSystemGrants(ctx context.Context, userID string, roleNames []string) error
}

// roleDisplayNames maps well-known role names to their display form. Unknown
// names fall back to the raw name.
var roleDisplayNames = map[string]string{
	models.RoleUser:      "Standard User",
	models.RoleAdmin:     "Administrator",
	models.RoleSales:     "Sales Representative",
	models.RoleModerator: "Moderator",
}

// RoleService resolves role names to definitions, creating missing roles on
// demand, and keeps user role grants in sync.
type RoleService struct {
	repo   roleRepository
	logger *zap.Logger
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(repo roleRepository, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{repo: repo, logger: logger}
}

// GetRoleIDsByNames resolves role names to role IDs. Names without an active
// role are created as system roles first.
func (s *RoleService) GetRoleIDsByNames(ctx context.Context, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		role, err := s.ensureRole(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, role.ID)
	}
	return ids, nil
}

func (s *RoleService) ensureRole(ctx context.Context, name string) (*models.Role, error) {
	role, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	displayName, ok := roleDisplayNames[name]
	if !ok {
		displayName = name
	}
	created := &models.Role{
		Name:        name,
		DisplayName: displayName,
		Description: displayName + " role",
		IsActive:    true,
		IsSystem:    true,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}
	s.logger.Info("created missing role", zap.String("role", name))
	return created, nil
}

// GetUserRoles returns the names of roles currently granted to a user.
func (s *RoleService) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	names, err := s.repo.ActiveRoleNamesForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user roles")
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// HasUserRole reports whether the user holds the given role.
func (s *RoleService) HasUserRole(ctx context.Context, userID, roleName string) (bool, error) {
	names, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == roleName {
			return true, nil
		}
	}
	return false, nil
}

// HasUserAnyRole reports whether the user holds at least one of the given
// roles.
func (s *RoleService) HasUserAnyRole(ctx context.Context, userID string, roleNames []string) (bool, error) {
	names, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	held := make(map[string]struct{}, len(names))
	for _, name := range names {
		held[name] = struct{}{}
	}
	for _, name := range roleNames {
		if _, ok := held[name]; ok {
			return true, nil
		}
	}
	return false, nil
}

// AssignRolesToUser grants the given roles to a user on behalf of the
// synchroniser. Roles the user already holds are skipped.
func (s *RoleService) AssignRolesToUser(ctx context.Context, userID string, roleNames []string) error {
	current, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return err
	}
	held := make(map[string]struct{}, len(current))
	for _, name := range current {
		held[name] = struct{}{}
	}

	for _, name := range roleNames {
		if _, ok := held[name]; ok {
			continue
		}
		role, err := s.ensureRole(ctx, name)
		if err != nil {
			return err
		}
		grant := &models.UserRole{
			UserID:     userID,
			RoleID:     role.ID,
			AssignedBy: models.AssignedBySystem,
			IsActive:   true,
		}
		if err := s.repo.CreateGrant(ctx, grant); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant role")
		}
	}
	return nil
}

// SyncUserRoles reconciles the user's synchroniser-managed grants with the
// desired set. Manually assigned grants are never touched. Calling twice with
// the same input is a no-op.
func (s *RoleService) SyncUserRoles(ctx context.Context, userID string, desired []string) error {
	current, err := s.repo.ActiveSystemRoleNamesForUser(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system role grants")
	}

	want := make(map[string]struct{}, len(desired))
	for _, name := range desired {
		want[name] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))
	for _, name := range current {
		have[name] = struct{}{}
	}

	var toRevoke []string
	for _, name := range current {
		if _, ok := want[name]; !ok {
			toRevoke = append(toRevoke, name)
		}
	}
	var toAssign []string
	for _, name := range desired {
		if _, ok := have[name]; !ok {
			toAssign = append(toAssign, name)
		}
	}

	if len(toRevoke) > 0 {
		if err := s.repo.RevokeSystemGrants(ctx, userID, toRevoke); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke role grants")
		}
	}
	if len(toAssign) > 0 {
		if err := s.AssignRolesToUser(ctx, userID, toAssign); err != nil {
			return err
		}
	}
	return nil
}
