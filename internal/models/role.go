package models

import (
	"encoding/json"
	"time"
)

// Role is a named role definition. Roles are soft-retired via is_active and
// never hard-deleted.
type Role struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	DisplayName string          `db:"display_name" json:"display_name"`
	Description string          `db:"description" json:"description"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	IsSystem    bool            `db:"is_system" json:"is_system"`
	Permissions json.RawMessage `db:"permissions" json:"permissions,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// UserRole is a role grant. A grant is in effect while is_active and not past
// expires_at; revocation flips is_active instead of deleting the row.
type UserRole struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	RoleID     string     `db:"role_id" json:"role_id"`
	AssignedBy string     `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time  `db:"assigned_at" json:"assigned_at"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	IsActive   bool       `db:"is_active" json:"is_active"`
}

// AssignedBySystem marks grants managed by role synchronisation.
const AssignedBySystem = "SYSTEM"

// Well-known role names.
const (
	RoleUser         = "USER"
	RoleAdmin        = "ADMIN"
	RoleSales        = "SALES"
	RoleSalesManager = "SALES_MANAGER"
	RoleModerator    = "MODERATOR"
)

// AdminRoles are the role names granted cross-tenant visibility.
var AdminRoles = []string{RoleAdmin, RoleSalesManager}
