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
)

// Catalog manages the resource and action reference data that permissions
// are built from. Codes are stable identifiers: once a permission references
// a code, the catalog refuses to delete it.
type Catalog struct {
	repo  CatalogRepository
	perms PermissionRepository
}

// NewCatalog creates a new catalog service
func NewCatalog(repo CatalogRepository, perms PermissionRepository) *Catalog {
	return &Catalog{repo: repo, perms: perms}
}

// DefineResource registers a new protected entity class.
func (c *Catalog) DefineResource(ctx context.Context, code, description string) (*Resource, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	if _, err := c.repo.GetResource(ctx, code); err == nil {
		return nil, fmt.Errorf("resource %q: %w", code, ErrDuplicateCode)
	}

	resource := &Resource{
		Code:        code,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := c.repo.CreateResource(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return resource, nil
}

// DefineAction registers a new operation verb.
func (c *Catalog) DefineAction(ctx context.Context, code, description string) (*Action, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	if _, err := c.repo.GetAction(ctx, code); err == nil {
		return nil, fmt.Errorf("action %q: %w", code, ErrDuplicateCode)
	}

	action := &Action{
		Code:        code,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := c.repo.CreateAction(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}

	return action, nil
}

// LookupResource retrieves a resource by code.
func (c *Catalog) LookupResource(ctx context.Context, code string) (*Resource, error) {
	return c.repo.GetResource(ctx, code)
}

// LookupAction retrieves an action by code.
func (c *Catalog) LookupAction(ctx context.Context, code string) (*Action, error) {
	return c.repo.GetAction(ctx, code)
}

// ListResources returns all registered resources.
func (c *Catalog) ListResources(ctx context.Context) ([]*Resource, error) {
	return c.repo.ListResources(ctx)
}

// ListActions returns all registered actions.
func (c *Catalog) ListActions(ctx context.Context) ([]*Action, error) {
	return c.repo.ListActions(ctx)
}

// DeleteResource removes a resource from the catalog. It fails with
// ErrResourceInUse while any permission references the code: deleting a
// referenced catalog entry would silently change existing grants.
func (c *Catalog) DeleteResource(ctx context.Context, code string) error {
	if _, err := c.repo.GetResource(ctx, code); err != nil {
		return err
	}

	n, err := c.perms.CountByResource(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to count permissions for resource: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("resource %q referenced by %d permission(s): %w", code, n, ErrResourceInUse)
	}

	return c.repo.DeleteResource(ctx, code)
}

// DeleteAction removes an action from the catalog, rejecting the delete
// while any permission references it.
func (c *Catalog) DeleteAction(ctx context.Context, code string) error {
	if _, err := c.repo.GetAction(ctx, code); err != nil {
		return err
	}

	n, err := c.perms.CountByAction(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to count permissions for action: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("action %q referenced by %d permission(s): %w", code, n, ErrActionInUse)
	}

	return c.repo.DeleteAction(ctx, code)
}

// normalizeCode trims and validates a catalog code. Codes appear inside
// permission codes, so they must not be empty or contain the separator.
func normalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.Contains(code, CodeSeparator) {
		return "", fmt.Errorf("%w: %q", ErrMalformedCode, code)
	}
	return code, nil
}
