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

	"github.com/google/uuid"

	"github.com/authsys/authsys/internal/audit"
)

// Permissions is the registry of atomic grantable rights. Each permission
// pairs one registered resource with one registered action; the pair is
// unique across the registry.
type Permissions struct {
	repo    PermissionRepository
	catalog CatalogRepository
	roles   RoleRepository
	audit   audit.Logger
}

// NewPermissions creates a new permission registry
func NewPermissions(repo PermissionRepository, catalog CatalogRepository, roles RoleRepository, auditLogger audit.Logger) *Permissions {
	return &Permissions{
		repo:    repo,
		catalog: catalog,
		roles:   roles,
		audit:   auditLogger,
	}
}

// Define creates the permission (resourceCode, actionCode). Both codes must
// already be registered in the catalog; unknown references are never
// auto-created.
func (p *Permissions) Define(ctx context.Context, resourceCode, actionCode string) (*Permission, error) {
	if _, err := p.catalog.GetResource(ctx, resourceCode); err != nil {
		return nil, fmt.Errorf("resource %q: %w", resourceCode, ErrUnknownReference)
	}
	if _, err := p.catalog.GetAction(ctx, actionCode); err != nil {
		return nil, fmt.Errorf("action %q: %w", actionCode, ErrUnknownReference)
	}

	if _, err := p.repo.GetByPair(ctx, resourceCode, actionCode); err == nil {
		return nil, fmt.Errorf("%s%s%s: %w", resourceCode, CodeSeparator, actionCode, ErrDuplicatePermission)
	}

	permission := &Permission{
		ID:           uuid.NewString(),
		ResourceCode: resourceCode,
		ActionCode:   actionCode,
		CreatedAt:    time.Now(),
	}
	if err := p.repo.Create(ctx, permission); err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	return permission, nil
}

// List returns all permissions in insertion order.
func (p *Permissions) List(ctx context.Context) ([]*Permission, error) {
	return p.repo.List(ctx)
}

// Get retrieves a permission by ID.
func (p *Permissions) Get(ctx context.Context, id string) (*Permission, error) {
	return p.repo.GetByID(ctx, id)
}

// Resolve parses a canonical "resource:action" code and returns the
// matching permission. A string that does not contain exactly one separator
// fails with ErrMalformedCode; a well-formed code with no matching
// permission fails with ErrPermissionNotFound.
func (p *Permissions) Resolve(ctx context.Context, code string) (*Permission, error) {
	resourceCode, actionCode, err := ParseCode(code)
	if err != nil {
		return nil, err
	}

	permission, err := p.repo.GetByPair(ctx, resourceCode, actionCode)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", code, ErrPermissionNotFound)
	}
	return permission, nil
}

// Delete removes a permission and cascades the removal out of every role
// that holds it. The cascade is audited: revoking a right from every role
// at once is a privilege change worth a trail.
func (p *Permissions) Delete(ctx context.Context, id, actorID string) error {
	permission, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := p.roles.RemovePermissionEverywhere(ctx, id); err != nil {
		return fmt.Errorf("failed to cascade permission removal: %w", err)
	}
	if err := p.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	p.audit.Log(ctx, audit.Event{
		Type:    audit.TypePermissionDeletedCascade,
		ActorID: actorID,
		Subject: permission.Code(),
	})

	return nil
}
