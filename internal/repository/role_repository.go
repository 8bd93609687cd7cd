package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

// RoleRepository provides database access for roles and role grants.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new instance of RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByName returns an active role by its unique name.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	const query = `SELECT id, name, display_name, description, is_active, is_system, permissions, created_at, updated_at FROM roles WHERE name = $1 AND is_active = TRUE LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

// Create inserts a new role definition.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	const query = `INSERT INTO roles (id, name, display_name, description, is_active, is_system, permissions, created_at, updated_at) VALUES (:id, :name, :display_name, :description, :is_active, :is_system, :permissions, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// ActiveRoleNamesForUser returns the names of roles granted to a user. Grants
// past their expiry are excluded.
func (r *RoleRepository) ActiveRoleNamesForUser(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT ro.name
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
		  AND ur.is_active = TRUE
		  AND ro.is_active = TRUE
		  AND (ur.expires_at IS NULL OR ur.expires_at > $2)
		ORDER BY ro.name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("list role names for user: %w", err)
	}
	return names, nil
}

// ActiveSystemRoleNamesForUser returns role names from grants assigned by the
// synchroniser only.
func (r *RoleRepository) ActiveSystemRoleNamesForUser(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT ro.name
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
		  AND ur.assigned_by = $2
		  AND ur.is_active = TRUE
		  AND ro.is_active = TRUE
		  AND (ur.expires_at IS NULL OR ur.expires_at > $3)
		ORDER BY ro.name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, userID, models.AssignedBySystem, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("list system role names for user: %w", err)
	}
	return names, nil
}

// CreateGrant inserts a role grant for a user.
func (r *RoleRepository) CreateGrant(ctx context.Context, grant *models.UserRole) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	if grant.AssignedAt.IsZero() {
		grant.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO user_roles (id, user_id, role_id, assigned_by, assigned_at, expires_at, is_active) VALUES (:id, :user_id, :role_id, :assigned_by, :assigned_at, :expires_at, :is_active)`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("create role grant: %w", err)
	}
	return nil
}

// RevokeSystemGrants deactivates synchroniser-managed grants for the given
// role names. Manually assigned grants are untouched.
func (r *RoleRepository) RevokeSystemGrants(ctx context.Context, userID string, roleNames []string) error {
	if len(roleNames) == 0 {
		return nil
	}
	const query = `
		UPDATE user_roles ur
		SET is_active = FALSE
		FROM roles ro
		WHERE ro.id = ur.role_id
		  AND ur.user_id = $1
		  AND ur.assigned_by = $2
		  AND ur.is_active = TRUE
		  AND ro.name = ANY($3)`
	if _, err := r.db.ExecContext(ctx, query, userID, models.AssignedBySystem, pq.Array(roleNames)); err != nil {
		return fmt.Errorf("revoke system role grants: %w", err)
	}
	return nil
}
