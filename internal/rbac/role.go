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

package rbac

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authsys/authsys/internal/audit"
)

// Roles is the registry of named permission bundles and the role→permission
// adjacency. Grants are additive only; a role holds each permission at most
// once regardless of how many times it is granted.
type Roles struct {
	repo        RoleRepository
	perms       PermissionRepository
	assignments AssignmentRepository
	audit       audit.Logger
}

// NewRoles creates a new role registry
func NewRoles(repo RoleRepository, perms PermissionRepository, assignments AssignmentRepository, auditLogger audit.Logger) *Roles {
	return &Roles{
		repo:        repo,
		perms:       perms,
		assignments: assignments,
		audit:       auditLogger,
	}
}

// Define creates a new named role.
func (r *Roles) Define(ctx context.Context, name, description, actorID string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("role name required: %w", ErrDuplicateName)
	}

	if _, err := r.repo.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("role %q: %w", name, ErrDuplicateName)
	}

	now := time.Now()
	role := &Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.repo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	r.audit.Log(ctx, audit.Event{
		Type:    audit.TypeRoleCreated,
		ActorID: actorID,
		Subject: role.Name,
	})

	return role, nil
}

// Get retrieves a role by ID.
func (r *Roles) Get(ctx context.Context, id string) (*Role, error) {
	return r.repo.GetByID(ctx, id)
}

// GetByName retrieves a role by its unique name.
func (r *Roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.repo.GetByName(ctx, name)
}

// List returns all roles.
func (r *Roles) List(ctx context.Context) ([]*Role, error) {
	return r.repo.List(ctx)
}

// Grant links a permission to a role. Granting an already-held permission
// is a no-op, not an error.
func (r *Roles) Grant(ctx context.Context, roleID, permissionID, actorID string) error {
	role, err := r.repo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	permission, err := r.perms.GetByID(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("permission %q: %w", permissionID, ErrUnknownReference)
	}

	if err := r.repo.AddPermission(ctx, roleID, permissionID); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}

	r.audit.Log(ctx, audit.Event{
		Type:    audit.TypePermissionGranted,
		ActorID: actorID,
		Subject: role.Name,
		Metadata: map[string]any{
			"permission": permission.Code(),
		},
	})

	return nil
}

// Revoke unlinks a permission from a role. Revoking an absent permission
// is a no-op.
func (r *Roles) Revoke(ctx context.Context, roleID, permissionID, actorID string) error {
	role, err := r.repo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	if err := r.repo.RemovePermission(ctx, roleID, permissionID); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}

	r.audit.Log(ctx, audit.Event{
		Type:    audit.TypePermissionRevoked,
		ActorID: actorID,
		Subject: role.Name,
		Metadata: map[string]any{
			"permission_id": permissionID,
		},
	})

	return nil
}

// PermissionsOf returns the permissions linked to a role.
func (r *Roles) PermissionsOf(ctx context.Context, roleID string) ([]*Permission, error) {
	if _, err := r.repo.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	return r.repo.Permissions(ctx, roleID)
}

// Delete removes a role. The delete cascades: every user's assignment to
// the role is removed first, so no orphaned references survive. The
// cascade is recorded in the audit trail.
func (r *Roles) Delete(ctx context.Context, roleID, actorID string) error {
	role, err := r.repo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	if err := r.assignments.UnassignAllForRole(ctx, roleID); err != nil {
		return fmt.Errorf("failed to cascade role assignments: %w", err)
	}
	if err := r.repo.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	r.audit.Log(ctx, audit.Event{
		Type:    audit.TypeRoleDeletedCascade,
		ActorID: actorID,
		Subject: role.Name,
	})

	return nil
}
