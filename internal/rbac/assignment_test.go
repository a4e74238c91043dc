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

func TestAssignments_Assign_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	role := f.mustDefineRole(t, "Billing")

	if err := f.assignments.Assign(ctx, "user-1", role.ID, "admin"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := f.assignments.Assign(ctx, "user-1", role.ID, "admin"); err != nil {
		t.Fatalf("repeated assign should succeed: %v", err)
	}

	roles, err := f.assignments.RolesOf(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 1 {
		t.Errorf("expected exactly 1 role, got %d", len(roles))
	}
}

func TestAssignments_Assign_UnknownRole(t *testing.T) {
	f := newFixture()

	if err := f.assignments.Assign(context.Background(), "user-1", "ghost", "admin"); !errors.Is(err, rbac.ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestAssignments_Unassign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	role := f.mustDefineRole(t, "Billing")

	if err := f.assignments.Assign(ctx, "user-1", role.ID, "admin"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := f.assignments.Unassign(ctx, "user-1", role.ID, "admin"); err != nil {
		t.Fatalf("unassign failed: %v", err)
	}

	roles, err := f.assignments.RolesOf(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("expected no roles after unassign, got %d", len(roles))
	}
}

func TestAssignments_RolesOf_NoAssignments(t *testing.T) {
	f := newFixture()

	roles, err := f.assignments.RolesOf(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("expected empty role list for unknown user, got %d", len(roles))
	}
}

// TestPurpose: A freshly created user is assigned the Default role and
// a promoted user gains the Admin role, mirroring the registration and
// promotion flows.
func TestAssignments_LifecycleHooks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := bootstrapFixture(ctx, f); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	if err := f.assignments.UserCreated(ctx, "user-1"); err != nil {
		t.Fatalf("UserCreated failed: %v", err)
	}
	roles, err := f.assignments.RolesOf(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 1 || roles[0].Name != rbac.RoleDefault {
		t.Fatalf("expected new user to hold only the Default role")
	}

	if err := f.assignments.UserPromoted(ctx, "user-1"); err != nil {
		t.Fatalf("UserPromoted failed: %v", err)
	}
	roles, err = f.assignments.RolesOf(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := map[string]bool{}
	for _, role := range roles {
		names[role.Name] = true
	}
	if !names[rbac.RoleDefault] || !names[rbac.RoleAdmin] {
		t.Errorf("expected promoted user to hold Default and Admin, got %v", names)
	}
}

// Without the distinguished roles seeded, the lifecycle hooks must fail
// loudly rather than silently skip the assignment.
func TestAssignments_LifecycleHooks_Unseeded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.assignments.UserCreated(ctx, "user-1"); err == nil {
		t.Error("expected UserCreated to fail before bootstrap")
	}
	if err := f.assignments.UserPromoted(ctx, "user-1"); err == nil {
		t.Error("expected UserPromoted to fail before bootstrap")
	}
}

func bootstrapFixture(ctx context.Context, f *fixture) error {
	return rbac.Bootstrap(ctx, f.catalog, f.permissions, f.roles)
}
