package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

type mockRoleRepo struct {
	roles       map[string]*models.Role
	userRoles   []string
	systemRoles []string
	grants      []*models.UserRole
	revoked     []string
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: map[string]*models.Role{}}
}

func (m *mockRoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	role, ok := m.roles[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return role, nil
}

func (m *mockRoleRepo) Create(ctx context.Context, role *models.Role) error {
	role.ID = fmt.Sprintf("role-%d", len(m.roles)+1)
	m.roles[role.Name] = role
	return nil
}

func (m *mockRoleRepo) ActiveRoleNamesForUser(ctx context.Context, userID string) ([]string, error) {
	return m.userRoles, nil
}

func (m *mockRoleRepo) ActiveSystemRoleNamesForUser(ctx context.Context, userID string) ([]string, error) {
	return m.systemRoles, nil
}

func (m *mockRoleRepo) CreateGrant(ctx context.Context, grant *models.UserRole) error {
	m.grants = append(m.grants, grant)
	return nil
}

func (m *mockRoleRepo) RevokeSystemGrants(ctx context.Context, userID string, roleNames []string) error {
	m.revoked = append(m.revoked, roleNames...)
	return nil
}

func TestRoleServiceCreatesMissingRole(t *testing.T) {
	repo := newMockRoleRepo()
	svc := NewRoleService(repo, zap.NewNop())

	ids, err := svc.GetRoleIDsByNames(context.Background(), []string{models.RoleSales})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	created := repo.roles[models.RoleSales]
	require.NotNil(t, created)
	assert.Equal(t, "Sales Representative", created.DisplayName)
	assert.Equal(t, "Sales Representative role", created.Description)
	assert.True(t, created.IsSystem)
	assert.True(t, created.IsActive)
}

func TestRoleServiceUnknownNameFallsBackToRawName(t *testing.T) {
	repo := newMockRoleRepo()
	svc := NewRoleService(repo, zap.NewNop())

	_, err := svc.GetRoleIDsByNames(context.Background(), []string{"AUDITOR"})
	require.NoError(t, err)
	assert.Equal(t, "AUDITOR", repo.roles["AUDITOR"].DisplayName)
}

func TestRoleServiceAssignSkipsHeldRoles(t *testing.T) {
	repo := newMockRoleRepo()
	repo.roles[models.RoleUser] = &models.Role{ID: "r1", Name: models.RoleUser}
	repo.roles[models.RoleAdmin] = &models.Role{ID: "r2", Name: models.RoleAdmin}
	repo.userRoles = []string{models.RoleUser}
	svc := NewRoleService(repo, zap.NewNop())

	err := svc.AssignRolesToUser(context.Background(), "u1", []string{models.RoleUser, models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, repo.grants, 1)
	assert.Equal(t, "r2", repo.grants[0].RoleID)
	assert.Equal(t, models.AssignedBySystem, repo.grants[0].AssignedBy)
}

func TestRoleServiceSyncRevokesAndAssigns(t *testing.T) {
	repo := newMockRoleRepo()
	repo.roles[models.RoleSales] = &models.Role{ID: "r1", Name: models.RoleSales}
	repo.systemRoles = []string{models.RoleUser}
	svc := NewRoleService(repo, zap.NewNop())

	err := svc.SyncUserRoles(context.Background(), "u1", []string{models.RoleSales})
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleUser}, repo.revoked)
	require.Len(t, repo.grants, 1)
	assert.Equal(t, "r1", repo.grants[0].RoleID)
}

func TestRoleServiceSyncIsIdempotent(t *testing.T) {
	repo := newMockRoleRepo()
	repo.systemRoles = []string{models.RoleUser}
	repo.userRoles = []string{models.RoleUser}
	svc := NewRoleService(repo, zap.NewNop())

	err := svc.SyncUserRoles(context.Background(), "u1", []string{models.RoleUser})
	require.NoError(t, err)
	assert.Empty(t, repo.revoked)
	assert.Empty(t, repo.grants)
}

func TestRoleServiceHasUserAnyRole(t *testing.T) {
	repo := newMockRoleRepo()
	repo.userRoles = []string{models.RoleSales}
	svc := NewRoleService(repo, zap.NewNop())

	ok, err := svc.HasUserAnyRole(context.Background(), "u1", []string{models.RoleAdmin, models.RoleSales})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasUserAnyRole(context.Background(), "u1", []string{models.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, ok)
}
