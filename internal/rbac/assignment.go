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
	"time"

	"github.com/authsys/authsys/internal/audit"
)

// Assignments manages the user→role adjacency. Besides explicit
// administrative assignment it exposes the two automatic lifecycle
// triggers: user creation (Default role) and promotion (Admin role). The
// identity layer calls these synchronously; there is no event bus.
type Assignments struct {
	repo  AssignmentRepository
	roles RoleRepository
	audit audit.Logger
}

// NewAssignments creates a new assignment service
func NewAssignments(repo AssignmentRepository, roles RoleRepository, auditLogger audit.Logger) *Assignments {
	return &Assignments{
		repo:  repo,
		roles: roles,
		audit: auditLogger,
	}
}

// Assign links a user to a role. Assigning an already-held role is a
// no-op.
func (a *Assignments) Assign(ctx context.Context, userID, roleID, actorID string) error {
	role, err := a.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	link := &UserRole{
		UserID:    userID,
		RoleID:    roleID,
		GrantedAt: time.Now(),
		GrantedBy: actorID,
	}
	if err := a.repo.Assign(ctx, link); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	a.audit.Log(ctx, audit.Event{
		Type:    audit.TypeRoleAssigned,
		ActorID: actorID,
		Subject: userID,
		Metadata: map[string]any{
			"role": role.Name,
		},
	})

	return nil
}

// Unassign removes a user's role. Removing an absent assignment is a
// no-op.
func (a *Assignments) Unassign(ctx context.Context, userID, roleID, actorID string) error {
	role, err := a.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	if err := a.repo.Unassign(ctx, userID, roleID); err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}

	a.audit.Log(ctx, audit.Event{
		Type:    audit.TypeRoleUnassigned,
		ActorID: actorID,
		Subject: userID,
		Metadata: map[string]any{
			"role": role.Name,
		},
	})

	return nil
}

// RolesOf returns all roles currently assigned to a user. A user with no
// assignments gets an empty slice, not an error.
func (a *Assignments) RolesOf(ctx context.Context, userID string) ([]*Role, error) {
	return a.repo.RolesOf(ctx, userID)
}

// UserCreated is the automatic trigger for new users: it assigns the
// Default role. Fails with ErrRoleNotFound if bootstrap never ran.
func (a *Assignments) UserCreated(ctx context.Context, userID string) error {
	return a.assignByName(ctx, userID, RoleDefault)
}

// UserPromoted is the automatic trigger for superuser promotion: it
// assigns the Admin role.
func (a *Assignments) UserPromoted(ctx context.Context, userID string) error {
	return a.assignByName(ctx, userID, RoleAdmin)
}

func (a *Assignments) assignByName(ctx context.Context, userID, roleName string) error {
	role, err := a.roles.GetByName(ctx, roleName)
	if err != nil {
		return fmt.Errorf("distinguished role %q missing, run bootstrap: %w", roleName, err)
	}
	return a.Assign(ctx, userID, role.ID, SystemActor)
}
