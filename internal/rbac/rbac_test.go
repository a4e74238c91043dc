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

	"github.com/authsys/authsys/internal/audit"
	"github.com/authsys/authsys/internal/rbac"
	"github.com/authsys/authsys/internal/store/memory"
)

// fixture wires the access-control services over the in-memory store,
// the same wiring the server uses with STORE_DRIVER=memory.
type fixture struct {
	catalog     *rbac.Catalog
	permissions *rbac.Permissions
	roles       *rbac.Roles
	assignments *rbac.Assignments
	resolver    *rbac.Resolver
	gate        *rbac.Gate
}

func newFixture() *fixture {
	catalogRepo := memory.NewCatalogRepository()
	permRepo := memory.NewPermissionRepository()
	roleRepo := memory.NewRoleRepository(permRepo)
	assignRepo := memory.NewAssignmentRepository(roleRepo)
	nop := audit.Nop{}

	permissions := rbac.NewPermissions(permRepo, catalogRepo, roleRepo, nop)
	resolver := rbac.NewResolver(assignRepo, roleRepo)

	return &fixture{
		catalog:     rbac.NewCatalog(catalogRepo, permRepo),
		permissions: permissions,
		roles:       rbac.NewRoles(roleRepo, permRepo, assignRepo, nop),
		assignments: rbac.NewAssignments(assignRepo, roleRepo, nop),
		resolver:    resolver,
		gate:        rbac.NewGate(permissions, resolver),
	}
}

// mustDefinePermission registers the resource and action if needed and
// defines the permission, failing the test on any error.
func (f *fixture) mustDefinePermission(t *testing.T, resource, action string) *rbac.Permission {
	t.Helper()
	ctx := context.Background()

	if _, err := f.catalog.DefineResource(ctx, resource, ""); err != nil && !errors.Is(err, rbac.ErrDuplicateCode) {
		t.Fatalf("define resource %q: %v", resource, err)
	}
	if _, err := f.catalog.DefineAction(ctx, action, ""); err != nil && !errors.Is(err, rbac.ErrDuplicateCode) {
		t.Fatalf("define action %q: %v", action, err)
	}

	perm, err := f.permissions.Define(ctx, resource, action)
	if err != nil {
		t.Fatalf("define permission %s:%s: %v", resource, action, err)
	}
	return perm
}

// mustDefineRole creates a role, failing the test on error.
func (f *fixture) mustDefineRole(t *testing.T, name string) *rbac.Role {
	t.Helper()
	role, err := f.roles.Define(context.Background(), name, "", "test")
	if err != nil {
		t.Fatalf("define role %q: %v", name, err)
	}
	return role
}
