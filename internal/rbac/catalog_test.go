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

func TestCatalog_DefineResource(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.catalog.DefineResource(ctx, "projects", "project records")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != "projects" {
		t.Errorf("expected code projects, got %q", res.Code)
	}

	got, err := f.catalog.LookupResource(ctx, "projects")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.Description != "project records" {
		t.Errorf("expected description to round-trip, got %q", got.Description)
	}
}

func TestCatalog_DefineResource_DuplicateCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.catalog.DefineResource(ctx, "projects", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.catalog.DefineResource(ctx, "projects", "second definition")
	if !errors.Is(err, rbac.ErrDuplicateCode) {
		t.Errorf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestCatalog_DefineResource_MalformedCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, code := range []string{"", "projects:read", ":"} {
		if _, err := f.catalog.DefineResource(ctx, code, ""); !errors.Is(err, rbac.ErrMalformedCode) {
			t.Errorf("code %q: expected ErrMalformedCode, got %v", code, err)
		}
	}
}

func TestCatalog_DefineAction_DuplicateAndMalformed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.catalog.DefineAction(ctx, "read", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.catalog.DefineAction(ctx, "read", ""); !errors.Is(err, rbac.ErrDuplicateCode) {
		t.Errorf("expected ErrDuplicateCode, got no error or wrong error")
	}
	if _, err := f.catalog.DefineAction(ctx, "re:ad", ""); !errors.Is(err, rbac.ErrMalformedCode) {
		t.Errorf("expected ErrMalformedCode for code containing separator")
	}
}

// TestPurpose: Deleting a catalog entry that a permission still
// references must be rejected, not cascaded. Permissions are the unit
// of cascade; catalog entries are load-bearing once referenced.
func TestCatalog_DeleteResource_InUse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.mustDefinePermission(t, "projects", "read")

	err := f.catalog.DeleteResource(ctx, "projects")
	if !errors.Is(err, rbac.ErrResourceInUse) {
		t.Fatalf("expected ErrResourceInUse, got %v", err)
	}

	// Still present
	if _, err := f.catalog.LookupResource(ctx, "projects"); err != nil {
		t.Errorf("resource should survive rejected delete: %v", err)
	}
}

func TestCatalog_DeleteAction_InUse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.mustDefinePermission(t, "projects", "read")

	if err := f.catalog.DeleteAction(ctx, "read"); !errors.Is(err, rbac.ErrActionInUse) {
		t.Fatalf("expected ErrActionInUse, got %v", err)
	}
}

func TestCatalog_DeleteResource_Unreferenced(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.catalog.DefineResource(ctx, "drafts", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.catalog.DeleteResource(ctx, "drafts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.catalog.LookupResource(ctx, "drafts"); !errors.Is(err, rbac.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound after delete, got %v", err)
	}
}

func TestCatalog_DeleteResource_NotFound(t *testing.T) {
	f := newFixture()

	if err := f.catalog.DeleteResource(context.Background(), "ghost"); !errors.Is(err, rbac.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestCatalog_List(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, code := range []string{"projects", "invoices", "users"} {
		if _, err := f.catalog.DefineResource(ctx, code, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	resources, err := f.catalog.ListResources(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resources) != 3 {
		t.Errorf("expected 3 resources, got %d", len(resources))
	}
}
