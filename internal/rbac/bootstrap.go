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
	"errors"
	"fmt"
	"log/slog"
)

// Bootstrap seeds the registries with the data the system needs to
// function: the foundational actions and resources, the cross-product of
// permissions over them, and the two distinguished roles. The Admin role
// is granted every permission in the registry, making it a true
// super-role. Every step tolerates already-existing data, so bootstrap is
// safe to re-run.
func Bootstrap(ctx context.Context, catalog *Catalog, permissions *Permissions, roles *Roles) error {
	for _, a := range SeedActions {
		if _, err := catalog.DefineAction(ctx, a.Code, a.Description); err != nil && !errors.Is(err, ErrDuplicateCode) {
			return fmt.Errorf("failed to seed action %q: %w", a.Code, err)
		}
	}
	for _, r := range SeedResources {
		if _, err := catalog.DefineResource(ctx, r.Code, r.Description); err != nil && !errors.Is(err, ErrDuplicateCode) {
			return fmt.Errorf("failed to seed resource %q: %w", r.Code, err)
		}
	}

	// Every (resource, action) pair becomes a grantable permission.
	resources, err := catalog.ListResources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list resources: %w", err)
	}
	actions, err := catalog.ListActions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list actions: %w", err)
	}
	for _, resource := range resources {
		for _, action := range actions {
			if _, err := permissions.Define(ctx, resource.Code, action.Code); err != nil && !errors.Is(err, ErrDuplicatePermission) {
				return fmt.Errorf("failed to seed permission %s%s%s: %w",
					resource.Code, CodeSeparator, action.Code, err)
			}
		}
	}

	if _, err := roles.Define(ctx, RoleDefault,
		"Default permissions for new users. This role is assigned automatically.",
		SystemActor); err != nil && !errors.Is(err, ErrDuplicateName) {
		return fmt.Errorf("failed to seed role %q: %w", RoleDefault, err)
	}

	if _, err := roles.Define(ctx, RoleAdmin,
		"Provides full access to the system for administrators.",
		SystemActor); err != nil && !errors.Is(err, ErrDuplicateName) {
		return fmt.Errorf("failed to seed role %q: %w", RoleAdmin, err)
	}

	admin, err := roles.GetByName(ctx, RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to load admin role: %w", err)
	}
	all, err := permissions.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}
	for _, permission := range all {
		// Grant is idempotent, so re-running bootstrap is harmless.
		if err := roles.Grant(ctx, admin.ID, permission.ID, SystemActor); err != nil {
			return fmt.Errorf("failed to grant %q to admin role: %w", permission.Code(), err)
		}
	}

	slog.InfoContext(ctx, "rbac bootstrap complete",
		slog.Int("resources", len(resources)),
		slog.Int("actions", len(actions)),
		slog.Int("permissions", len(all)),
	)
	return nil
}
