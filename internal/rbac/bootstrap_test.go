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

package rbac_test

import (
	"context"
	"testing"

	"github.com/authsys/authsys/internal/rbac"
)

func TestBootstrap_SeedsCatalogAndRoles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := rbac.Bootstrap(ctx, f.catalog, f.permissions, f.roles); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	resources, err := f.catalog.ListResources(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actions, err := f.catalog.ListActions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	perms, err := f.permissions.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resources) != len(rbac.SeedResources) {
		t.Errorf("expected %d resources, got %d", len(rbac.SeedResources), len(resources))
	}
	if len(actions) != len(rbac.SeedActions) {
		t.Errorf("expected %d actions, got %d", len(rbac.SeedActions), len(actions))
	}
	// Full cross-product
	if want := len(rbac.SeedResources) * len(rbac.SeedActions); len(perms) != want {
		t.Errorf("expected %d permissions, got %d", want, len(perms))
	}

	if _, err := f.roles.GetByName(ctx, rbac.RoleDefault); err != nil {
		t.Errorf("Default role missing: %v", err)
	}
	if _, err := f.roles.GetByName(ctx, rbac.RoleAdmin); err != nil {
		t.Errorf("Admin role missing: %v", err)
	}
}

// TestPurpose: The Default role carries no permissions and the Admin
// role carries all of them. Admin authority comes from those grants,
// not from any bypass in the permission check.
func TestBootstrap_RoleGrants(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := rbac.Bootstrap(ctx, f.catalog, f.permissions, f.roles); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	def, err := f.roles.GetByName(ctx, rbac.RoleDefault)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defPerms, err := f.roles.PermissionsOf(ctx, def.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defPerms) != 0 {
		t.Errorf("Default role must start empty, got %d permissions", len(defPerms))
	}

	admin, err := f.roles.GetByName(ctx, rbac.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adminPerms, err := f.roles.PermissionsOf(ctx, admin.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, err := f.permissions.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(adminPerms) != len(all) {
		t.Errorf("Admin role should hold every permission: got %d of %d", len(adminPerms), len(all))
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := rbac.Bootstrap(ctx, f.catalog, f.permissions, f.roles); err != nil {
		t.Fatalf("first bootstrap failed: %v", err)
	}

	// Operator customization survives a re-run
	billing := f.mustDefineRole(t, "Billing")

	if err := rbac.Bootstrap(ctx, f.catalog, f.permissions, f.roles); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	perms, err := f.permissions.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := len(rbac.SeedResources) * len(rbac.SeedActions); len(perms) != want {
		t.Errorf("re-run must not duplicate permissions: got %d, want %d", len(perms), want)
	}

	if _, err := f.roles.Get(ctx, billing.ID); err != nil {
		t.Errorf("custom role should survive re-run: %v", err)
	}
}
