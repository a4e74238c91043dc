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
	"fmt"

	"github.com/authsys/authsys/internal/rbac"
)

// AssignmentRepository implements rbac.AssignmentRepository
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Assign links a user to a role, ignoring an existing link
func (r *AssignmentRepository) Assign(ctx context.Context, link *rbac.UserRole) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, granted_at, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, link.UserID, link.RoleID, link.GrantedAt, link.GrantedBy)

	if err != nil {
		if isForeignKeyViolation(err) {
			return rbac.ErrUnknownReference
		}
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// Unassign removes a user-role link, ignoring an absent link
func (r *AssignmentRepository) Unassign(ctx context.Context, userID, roleID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2
	`, userID, roleID)

	if err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}
	return nil
}

// RolesOf retrieves all roles assigned to a user
func (r *AssignmentRepository) RolesOf(ctx context.Context, userID string) ([]*rbac.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
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

// UnassignAllForRole removes every user's link to a role
func (r *AssignmentRepository) UnassignAllForRole(ctx context.Context, roleID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE role_id = $1
	`, roleID)

	if err != nil {
		return fmt.Errorf("failed to unassign role from users: %w", err)
	}
	return nil
}
