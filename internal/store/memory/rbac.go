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

// Package memory provides RWMutex-guarded map implementations of every
// repository interface. They back the unit and e2e tests and the
// STORE_DRIVER=memory development mode; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/authsys/authsys/internal/rbac"
)

// CatalogRepository implements rbac.CatalogRepository
type CatalogRepository struct {
	mu        sync.RWMutex
	resources map[string]*rbac.Resource
	actions   map[string]*rbac.Action

	resourceOrder []string
	actionOrder   []string
}

// NewCatalogRepository creates an empty in-memory catalog
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		resources: make(map[string]*rbac.Resource),
		actions:   make(map[string]*rbac.Action),
	}
}

func (r *CatalogRepository) CreateResource(_ context.Context, resource *rbac.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[resource.Code]; ok {
		return rbac.ErrDuplicateCode
	}
	cp := *resource
	r.resources[resource.Code] = &cp
	r.resourceOrder = append(r.resourceOrder, resource.Code)
	return nil
}

func (r *CatalogRepository) GetResource(_ context.Context, code string) (*rbac.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resource, ok := r.resources[code]
	if !ok {
		return nil, rbac.ErrResourceNotFound
	}
	cp := *resource
	return &cp, nil
}

func (r *CatalogRepository) ListResources(_ context.Context) ([]*rbac.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*rbac.Resource, 0, len(r.resourceOrder))
	for _, code := range r.resourceOrder {
		if resource, ok := r.resources[code]; ok {
			cp := *resource
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *CatalogRepository) DeleteResource(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[code]; !ok {
		return rbac.ErrResourceNotFound
	}
	delete(r.resources, code)
	r.resourceOrder = removeString(r.resourceOrder, code)
	return nil
}

func (r *CatalogRepository) CreateAction(_ context.Context, action *rbac.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[action.Code]; ok {
		return rbac.ErrDuplicateCode
	}
	cp := *action
	r.actions[action.Code] = &cp
	r.actionOrder = append(r.actionOrder, action.Code)
	return nil
}

func (r *CatalogRepository) GetAction(_ context.Context, code string) (*rbac.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[code]
	if !ok {
		return nil, rbac.ErrActionNotFound
	}
	cp := *action
	return &cp, nil
}

func (r *CatalogRepository) ListActions(_ context.Context) ([]*rbac.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*rbac.Action, 0, len(r.actionOrder))
	for _, code := range r.actionOrder {
		if action, ok := r.actions[code]; ok {
			cp := *action
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *CatalogRepository) DeleteAction(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[code]; !ok {
		return rbac.ErrActionNotFound
	}
	delete(r.actions, code)
	r.actionOrder = removeString(r.actionOrder, code)
	return nil
}

// PermissionRepository implements rbac.PermissionRepository
type PermissionRepository struct {
	mu    sync.RWMutex
	byID  map[string]*rbac.Permission
	order []string // insertion order of IDs
}

// NewPermissionRepository creates an empty in-memory permission store
func NewPermissionRepository() *PermissionRepository {
	return &PermissionRepository{byID: make(map[string]*rbac.Permission)}
}

func (r *PermissionRepository) Create(_ context.Context, permission *rbac.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.ResourceCode == permission.ResourceCode && p.ActionCode == permission.ActionCode {
			return rbac.ErrDuplicatePermission
		}
	}
	cp := *permission
	r.byID[permission.ID] = &cp
	r.order = append(r.order, permission.ID)
	return nil
}

func (r *PermissionRepository) GetByID(_ context.Context, id string) (*rbac.Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	permission, ok := r.byID[id]
	if !ok {
		return nil, rbac.ErrPermissionNotFound
	}
	cp := *permission
	return &cp, nil
}

func (r *PermissionRepository) GetByPair(_ context.Context, resourceCode, actionCode string) (*rbac.Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byID {
		if p.ResourceCode == resourceCode && p.ActionCode == actionCode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, rbac.ErrPermissionNotFound
}

func (r *PermissionRepository) List(_ context.Context) ([]*rbac.Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*rbac.Permission, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.byID[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *PermissionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return rbac.ErrPermissionNotFound
	}
	delete(r.byID, id)
	r.order = removeString(r.order, id)
	return nil
}

func (r *PermissionRepository) CountByResource(_ context.Context, resourceCode string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.byID {
		if p.ResourceCode == resourceCode {
			n++
		}
	}
	return n, nil
}

func (r *PermissionRepository) CountByAction(_ context.Context, actionCode string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.byID {
		if p.ActionCode == actionCode {
			n++
		}
	}
	return n, nil
}

// RoleRepository implements rbac.RoleRepository. The role→permission
// adjacency lives here as a set per role ID.
type RoleRepository struct {
	mu    sync.RWMutex
	roles map[string]*rbac.Role
	links map[string]map[string]struct{} // roleID → set of permissionID

	perms *PermissionRepository
}

// NewRoleRepository creates an empty in-memory role store. It reads
// permission records from perms when listing a role's permissions.
func NewRoleRepository(perms *PermissionRepository) *RoleRepository {
	return &RoleRepository{
		roles: make(map[string]*rbac.Role),
		links: make(map[string]map[string]struct{}),
		perms: perms,
	}
}

func (r *RoleRepository) Create(_ context.Context, role *rbac.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.Name == role.Name {
			return rbac.ErrDuplicateName
		}
	}
	cp := *role
	r.roles[role.ID] = &cp
	r.links[role.ID] = make(map[string]struct{})
	return nil
}

func (r *RoleRepository) GetByID(_ context.Context, id string) (*rbac.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, rbac.ErrRoleNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *RoleRepository) GetByName(_ context.Context, name string) (*rbac.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, role := range r.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, rbac.ErrRoleNotFound
}

func (r *RoleRepository) List(_ context.Context) ([]*rbac.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*rbac.Role, 0, len(r.roles))
	for _, role := range r.roles {
		cp := *role
		out = append(out, &cp)
	}
	return out, nil
}

func (r *RoleRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return rbac.ErrRoleNotFound
	}
	delete(r.roles, id)
	delete(r.links, id)
	return nil
}

func (r *RoleRepository) AddPermission(_ context.Context, roleID, permissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.links[roleID]
	if !ok {
		return rbac.ErrRoleNotFound
	}
	set[permissionID] = struct{}{}
	return nil
}

func (r *RoleRepository) RemovePermission(_ context.Context, roleID, permissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.links[roleID]
	if !ok {
		return rbac.ErrRoleNotFound
	}
	delete(set, permissionID)
	return nil
}

func (r *RoleRepository) Permissions(ctx context.Context, roleID string) ([]*rbac.Permission, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.links[roleID]))
	for id := range r.links[roleID] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	out := make([]*rbac.Permission, 0, len(ids))
	for _, id := range ids {
		permission, err := r.perms.GetByID(ctx, id)
		if err != nil {
			// Link to a vanished permission; skip it.
			continue
		}
		out = append(out, permission)
	}
	return out, nil
}

func (r *RoleRepository) RemovePermissionEverywhere(_ context.Context, permissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.links {
		delete(set, permissionID)
	}
	return nil
}

// AssignmentRepository implements rbac.AssignmentRepository
type AssignmentRepository struct {
	mu    sync.RWMutex
	links map[string]map[string]*rbac.UserRole // userID → roleID → link

	roles *RoleRepository
}

// NewAssignmentRepository creates an empty in-memory assignment store.
func NewAssignmentRepository(roles *RoleRepository) *AssignmentRepository {
	return &AssignmentRepository{
		links: make(map[string]map[string]*rbac.UserRole),
		roles: roles,
	}
}

func (r *AssignmentRepository) Assign(_ context.Context, link *rbac.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byRole, ok := r.links[link.UserID]
	if !ok {
		byRole = make(map[string]*rbac.UserRole)
		r.links[link.UserID] = byRole
	}
	if _, exists := byRole[link.RoleID]; exists {
		return nil
	}
	cp := *link
	byRole[link.RoleID] = &cp
	return nil
}

func (r *AssignmentRepository) Unassign(_ context.Context, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if byRole, ok := r.links[userID]; ok {
		delete(byRole, roleID)
	}
	return nil
}

func (r *AssignmentRepository) RolesOf(ctx context.Context, userID string) ([]*rbac.Role, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.links[userID]))
	for roleID := range r.links[userID] {
		ids = append(ids, roleID)
	}
	r.mu.RUnlock()

	out := make([]*rbac.Role, 0, len(ids))
	for _, id := range ids {
		role, err := r.roles.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, role)
	}
	return out, nil
}

func (r *AssignmentRepository) UnassignAllForRole(_ context.Context, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, byRole := range r.links {
		delete(byRole, roleID)
	}
	return nil
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
