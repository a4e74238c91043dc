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

// PermissionRepository implements rbac.PermissionRepository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create inserts a new permission
func (r *PermissionRepository) Create(ctx context.Context, permission *rbac.Permission) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, resource_code, action_code, created_at)
		VALUES ($1, $2, $3, $4)
	`, permission.ID, permission.ResourceCode, permission.ActionCode, permission.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return rbac.ErrDuplicatePermission
		}
		if isForeignKeyViolation(err) {
			return rbac.ErrUnknownReference
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

// GetByID retrieves a permission by ID
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*rbac.Permission, error) {
	var permission rbac.Permission
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, resource_code, action_code, created_at
		FROM permissions
		WHERE id = $1
	`, id).Scan(&permission.ID, &permission.ResourceCode, &permission.ActionCode, &permission.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &permission, nil
}

// GetByPair retrieves a permission by its (resource, action) pair
func (r *PermissionRepository) GetByPair(ctx context.Context, resourceCode, actionCode string) (*rbac.Permission, error) {
	var permission rbac.Permission
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, resource_code, action_code, created_at
		FROM permissions
		WHERE resource_code = $1 AND action_code = $2
	`, resourceCode, actionCode).Scan(&permission.ID, &permission.ResourceCode, &permission.ActionCode, &permission.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &permission, nil
}

// List retrieves all permissions in insertion order
func (r *PermissionRepository) List(ctx context.Context) ([]*rbac.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, resource_code, action_code, created_at
		FROM permissions
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
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

// Delete removes a permission by ID. Role links go with it via the
// ON DELETE CASCADE on role_permissions.
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rbac.ErrPermissionNotFound
	}
	return nil
}

// CountByResource counts permissions referencing a resource code
func (r *PermissionRepository) CountByResource(ctx context.Context, resourceCode string) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM permissions WHERE resource_code = $1
	`, resourceCode).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count permissions: %w", err)
	}
	return n, nil
}

// CountByAction counts permissions referencing an action code
func (r *PermissionRepository) CountByAction(ctx context.Context, actionCode string) (int, error) {
	var n int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM permissions WHERE action_code = $1
	`, actionCode).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count permissions: %w", err)
	}
	return n, nil
}
