// Copyright 2026 The Authsys Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/authsys/authsys/internal/rbac"
)

// RoleRepository implements rbac.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a new role
func (r *RoleRepository) Create(ctx context.Context, role *rbac.Role) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO roles (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, role.ID, role.Name, role.Description, role.CreatedAt, role.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return rbac.ErrDuplicateName
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*rbac.Role, error) {
	var role rbac.Role
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// GetByName retrieves a role by its unique name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*rbac.Role, error) {
	var role rbac.Role
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		WHERE name = $1
	`, name).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// List retrieves all roles ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

// Delete removes a role by ID. The ON DELETE CASCADE constraints drop the
// role's permission links and user assignments with it.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

// AddPermission links a permission to a role, ignoring an existing link
func (r *RoleRepository) AddPermission(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`, roleID, permissionID)

	if err != nil {
		if isForeignKeyViolation(err) {
			return rbac.ErrUnknownReference
		}
		return fmt.Errorf("failed to add role permission: %w", err)
	}
	return nil
}

// RemovePermission unlinks a permission from a role, ignoring an absent link
func (r *RoleRepository) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)

	if err != nil {
		return fmt.Errorf("failed to remove role permission: %w", err)
	}
	return nil
}

// Permissions retrieves all permissions linked to a role
func (r *RoleRepository) Permissions(ctx context.Context, roleID string) ([]*rbac.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT p.id, p.resource_code, p.action_code, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.seq
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	var permissions []*rbac.Permission
	for rows.Next() {
		var permission rbac.Permission
		if err := rows.Scan(&permission.ID, &permission.ResourceCode, &permission.ActionCode, &permission.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, &permission)
	}
	return permissions, rows.Err()
}

// RemovePermissionEverywhere unlinks a permission from every role
func (r *RoleRepository) RemovePermissionEverywhere(ctx context.Context, permissionID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM role_permissions WHERE permission_id = $1
	`, permissionID)

	if err != nil {
		return fmt.Errorf("failed to remove permission from roles: %w", err)
	}
	return nil
}
