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
	"errors"
	"testing"

	"github.com/authsys/authsys/internal/rbac"
)

func TestPermissions_Define(t *testing.T) {
	f := newFixture()

	perm := f.mustDefinePermission(t, "projects", "read")
	if perm.Code() != "projects:read" {
		t.Errorf("expected code projects:read, got %q", perm.Code())
	}
	if perm.ID == "" {
		t.Error("expected a generated permission ID")
	}
}

// TestPurpose: A permission may only pair codes already registered in
// the catalog. An unregistered resource or action is a client error,
// not an implicit registration.
func TestPermissions_Define_UnknownReference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.catalog.DefineAction(ctx, "read", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.permissions.Define(ctx, "ghost", "read"); !errors.Is(err, rbac.ErrUnknownReference) {
		t.Errorf("unregistered resource: expected ErrUnknownReference, got %v", err)
	}

	if _, err := f.catalog.DefineResource(ctx, "projects", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.permissions.Define(ctx, "projects", "destroy"); !errors.Is(err, rbac.ErrUnknownReference) {
		t.Errorf("unregistered action: expected ErrUnknownReference, got %v", err)
	}
}

func TestPermissions_Define_DuplicatePair(t *testing.T) {
	f := newFixture()

	f.mustDefinePermission(t, "projects", "read")

	_, err := f.permissions.Define(context.Background(), "projects", "read")
	if !errors.Is(err, rbac.ErrDuplicatePermission) {
		t.Errorf("expected ErrDuplicatePermission, got %v", err)
	}
}

func TestPermissions_List_InsertionOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.mustDefinePermission(t, "projects", "read")
	f.mustDefinePermission(t, "invoices", "create")
	f.mustDefinePermission(t, "projects", "update")

	perms, err := f.permissions.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"projects:read", "invoices:create", "projects:update"}
	if len(perms) != len(want) {
		t.Fatalf("expected %d permissions, got %d", len(want), len(perms))
	}
	for i, perm := range perms {
		if perm.Code() != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], perm.Code())
		}
	}
}

func TestPermissions_Resolve(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	defined := f.mustDefinePermission(t, "projects", "read")

	perm, err := f.permissions.Resolve(ctx, "projects:read")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if perm.ID != defined.ID {
		t.Errorf("expected resolution to the defined permission")
	}
}

func TestPermissions_Resolve_MalformedCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, code := range []string{"projects", "a:b:c", ":read", "projects:", ""} {
		if _, err := f.permissions.Resolve(ctx, code); !errors.Is(err, rbac.ErrMalformedCode) {
			t.Errorf("code %q: expected ErrMalformedCode, got %v", code, err)
		}
	}
}

func TestPermissions_Resolve_Unknown(t *testing.T) {
	f := newFixture()

	if _, err := f.permissions.Resolve(context.Background(), "projects:read"); !errors.Is(err, rbac.ErrPermissionNotFound) {
		t.Errorf("expected ErrPermissionNotFound, got %v", err)
	}
}

// TestPurpose: Deleting a permission revokes it from every role that
// holds it in the same operation, so no role retains a dangling grant.
func TestPermissions_Delete_CascadesToRoles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	perm := f.mustDefinePermission(t, "projects", "read")
	keep := f.mustDefinePermission(t, "projects", "update")

	editors := f.mustDefineRole(t, "Editors")
	viewers := f.mustDefineRole(t, "Viewers")
	for _, role := range []*rbac.Role{editors, viewers} {
		if err := f.roles.Grant(ctx, role.ID, perm.ID, "test"); err != nil {
			t.Fatalf("grant failed: %v", err)
		}
	}
	if err := f.roles.Grant(ctx, editors.ID, keep.ID, "test"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if err := f.permissions.Delete(ctx, perm.ID, "test"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	for _, role := range []*rbac.Role{editors, viewers} {
		perms, err := f.roles.PermissionsOf(ctx, role.ID)
		if err != nil {
			t.Fatalf("list role permissions: %v", err)
		}
		for _, p := range perms {
			if p.ID == perm.ID {
				t.Errorf("role %s still holds deleted permission", role.Name)
			}
		}
	}

	// The unrelated grant survives
	perms, err := f.roles.PermissionsOf(ctx, editors.ID)
	if err != nil {
		t.Fatalf("list role permissions: %v", err)
	}
	if len(perms) != 1 || perms[0].ID != keep.ID {
		t.Errorf("expected Editors to keep exactly the unrelated permission")
	}
}
