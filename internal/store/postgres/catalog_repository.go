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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/authsys/authsys/internal/rbac"
)

// CatalogRepository implements rbac.CatalogRepository
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// CreateResource inserts a new resource
func (r *CatalogRepository) CreateResource(ctx context.Context, resource *rbac.Resource) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO resources (code, description, created_at)
		VALUES ($1, $2, $3)
	`, resource.Code, resource.Description, resource.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return rbac.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

// GetResource retrieves a resource by code
func (r *CatalogRepository) GetResource(ctx context.Context, code string) (*rbac.Resource, error) {
	var resource rbac.Resource
	err := r.db.pool.QueryRow(ctx, `
		SELECT code, description, created_at
		FROM resources
		WHERE code = $1
	`, code).Scan(&resource.Code, &resource.Description, &resource.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &resource, nil
}

// ListResources retrieves all resources ordered by code
func (r *CatalogRepository) ListResources(ctx context.Context) ([]*rbac.Resource, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT code, description, created_at
		FROM resources
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []*rbac.Resource
	for rows.Next() {
		var resource rbac.Resource
		if err := rows.Scan(&resource.Code, &resource.Description, &resource.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, &resource)
	}
	return resources, rows.Err()
}

// DeleteResource removes a resource by code
func (r *CatalogRepository) DeleteResource(ctx context.Context, code string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM resources WHERE code = $1`, code)
	if err != nil {
		if isForeignKeyViolation(err) {
			return rbac.ErrResourceInUse
		}
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rbac.ErrResourceNotFound
	}
	return nil
}

// CreateAction inserts a new action
func (r *CatalogRepository) CreateAction(ctx context.Context, action *rbac.Action) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO actions (code, description, created_at)
		VALUES ($1, $2, $3)
	`, action.Code, action.Description, action.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return rbac.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create action: %w", err)
	}
	return nil
}

// GetAction retrieves an action by code
func (r *CatalogRepository) GetAction(ctx context.Context, code string) (*rbac.Action, error) {
	var action rbac.Action
	err := r.db.pool.QueryRow(ctx, `
		SELECT code, description, created_at
		FROM actions
		WHERE code = $1
	`, code).Scan(&action.Code, &action.Description, &action.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rbac.ErrActionNotFound
		}
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return &action, nil
}

// ListActions retrieves all actions ordered by code
func (r *CatalogRepository) ListActions(ctx context.Context) ([]*rbac.Action, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT code, description, created_at
		FROM actions
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []*rbac.Action
	for rows.Next() {
		var action rbac.Action
		if err := rows.Scan(&action.Code, &action.Description, &action.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, &action)
	}
	return actions, rows.Err()
}

// DeleteAction removes an action by code
func (r *CatalogRepository) DeleteAction(ctx context.Context, code string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM actions WHERE code = $1`, code)
	if err != nil {
		if isForeignKeyViolation(err) {
			return rbac.ErrActionInUse
		}
		return fmt.Errorf("failed to delete action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rbac.ErrActionNotFound
	}
	return nil
}
