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

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/authsys/authsys/internal/identity"
	"github.com/authsys/authsys/internal/observability/logger"
	"github.com/authsys/authsys/internal/rbac"
)

// Catalog administration

// CreateCatalogEntryRequest creates a resource or action
type CreateCatalogEntryRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ListResources lists all registered resources
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.catalog.ListResources(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list resources")
		return
	}

	out := make([]map[string]any, 0, len(resources))
	for _, res := range resources {
		out = append(out, map[string]any{
			"code":        res.Code,
			"description": res.Description,
			"created_at":  res.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"resources": out})
}

// CreateResource registers a new resource code
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req CreateCatalogEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.catalog.DefineResource(r.Context(), req.Code, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrMalformedCode):
			respondError(w, http.StatusBadRequest, "malformed resource code")
		case errors.Is(err, rbac.ErrDuplicateCode):
			respondError(w, http.StatusConflict, "resource code already exists")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create resource")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"code":        res.Code,
		"description": res.Description,
	})
}

// DeleteResource removes a resource that no permission references
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.catalog.DeleteResource(r.Context(), code); err != nil {
		switch {
		case errors.Is(err, rbac.ErrResourceNotFound):
			respondError(w, http.StatusNotFound, "resource not found")
		case errors.Is(err, rbac.ErrResourceInUse):
			respondError(w, http.StatusConflict, "resource is referenced by permissions")
		default:
			respondError(w, http.StatusInternalServerError, "failed to delete resource")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "resource deleted"})
}

// ListActions lists all registered actions
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.catalog.ListActions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list actions")
		return
	}

	out := make([]map[string]any, 0, len(actions))
	for _, act := range actions {
		out = append(out, map[string]any{
			"code":        act.Code,
			"description": act.Description,
			"created_at":  act.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"actions": out})
}

// CreateAction registers a new action code
func (h *Handler) CreateAction(w http.ResponseWriter, r *http.Request) {
	var req CreateCatalogEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	act, err := h.catalog.DefineAction(r.Context(), req.Code, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrMalformedCode):
			respondError(w, http.StatusBadRequest, "malformed action code")
		case errors.Is(err, rbac.ErrDuplicateCode):
			respondError(w, http.StatusConflict, "action code already exists")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create action")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"code":        act.Code,
		"description": act.Description,
	})
}

// DeleteAction removes an action that no permission references
func (h *Handler) DeleteAction(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.catalog.DeleteAction(r.Context(), code); err != nil {
		switch {
		case errors.Is(err, rbac.ErrActionNotFound):
			respondError(w, http.StatusNotFound, "action not found")
		case errors.Is(err, rbac.ErrActionInUse):
			respondError(w, http.StatusConflict, "action is referenced by permissions")
		default:
			respondError(w, http.StatusInternalServerError, "failed to delete action")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "action deleted"})
}

// Permission administration

// CreatePermissionRequest pairs a resource with an action
type CreatePermissionRequest struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// ListPermissions lists all permissions in definition order
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.permissions.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"permissions": permissionList(perms)})
}

// CreatePermission defines a new resource:action permission
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req CreatePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm, err := h.permissions.Define(r.Context(), req.Resource, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrUnknownReference):
			respondError(w, http.StatusBadRequest, "resource or action is not registered")
		case errors.Is(err, rbac.ErrDuplicatePermission):
			respondError(w, http.StatusConflict, "permission already exists")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create permission")
		}
		return
	}

	respondJSON(w, http.StatusCreated, permissionResponse(perm))
}

// DeletePermission deletes a permission and revokes it from every role
func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	permissionID := chi.URLParam(r, "permissionID")

	if err := h.permissions.Delete(r.Context(), permissionID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, rbac.ErrPermissionNotFound) {
			respondError(w, http.StatusNotFound, "permission not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete permission")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "permission deleted"})
}

// Role administration

// CreateRoleRequest creates a named role
type CreateRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListRoles lists all roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}

	out := make([]map[string]any, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse(role))
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": out})
}

// CreateRole creates a new role with an empty permission set
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.roles.Define(r.Context(), req.Name, req.Description, GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, rbac.ErrDuplicateName) {
			respondError(w, http.StatusConflict, "role name already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create role")
		return
	}

	respondJSON(w, http.StatusCreated, roleResponse(role))
}

// DeleteRole deletes a role, removing it from every user holding it
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")

	if err := h.roles.Delete(r.Context(), roleID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "role deleted"})
}

// ListRolePermissions lists the permissions granted to a role
func (h *Handler) ListRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")

	perms, err := h.roles.PermissionsOf(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to list role permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"role_id":     roleID,
		"permissions": permissionList(perms),
	})
}

// GrantPermissionRequest grants a permission to a role
type GrantPermissionRequest struct {
	PermissionID string `json:"permission_id"`
}

// GrantPermission adds a permission to a role. Granting a permission a
// role already holds succeeds without change.
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")

	var req GrantPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.roles.Grant(r.Context(), roleID, req.PermissionID, GetUserID(r.Context())); err != nil {
		switch {
		case errors.Is(err, rbac.ErrRoleNotFound):
			respondError(w, http.StatusNotFound, "role not found")
		case errors.Is(err, rbac.ErrPermissionNotFound):
			respondError(w, http.StatusNotFound, "permission not found")
		default:
			respondError(w, http.StatusInternalServerError, "failed to grant permission")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "permission granted"})
}

// RevokePermission removes a permission from a role
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	permissionID := chi.URLParam(r, "permissionID")

	if err := h.roles.Revoke(r.Context(), roleID, permissionID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to revoke permission")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "permission revoked"})
}

// User administration

// ListUsers lists all user accounts, including deactivated ones
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, user := range users {
		out = append(out, userResponse(user))
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}

// GetUser returns one user account
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identityService.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// PromoteUser makes a user a superuser and assigns the Admin role
func (h *Handler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.identityService.Promote(r.Context(), userID, GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to promote user",
			logger.Error(err),
			logger.UserID(userID),
		)
		respondError(w, http.StatusInternalServerError, "failed to promote user")
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// DeactivateUser soft-deletes a user account
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.identityService.Deactivate(r.Context(), userID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to deactivate user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}

// RestoreUser reverses a soft delete
func (h *Handler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.identityService.Restore(r.Context(), userID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to restore user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "user restored"})
}

// ListUserRoles lists the roles assigned to a user
func (h *Handler) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	roles, err := h.assignments.RolesOf(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list user roles")
		return
	}

	out := make([]map[string]any, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse(role))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"roles":   out,
	})
}

// ListUserPermissions returns a user's effective permission codes
func (h *Handler) ListUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	set, err := h.resolver.EffectivePermissions(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"permissions": set.Codes(),
	})
}

// AssignRoleRequest assigns a role to a user
type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}

// AssignRole assigns a role to a user. Assigning a role the user
// already holds succeeds without change.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.assignments.Assign(r.Context(), userID, req.RoleID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to assign role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "role assigned"})
}

// UnassignRole removes a role from a user
func (h *Handler) UnassignRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	roleID := chi.URLParam(r, "roleID")

	if err := h.assignments.Unassign(r.Context(), userID, roleID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			respondError(w, http.StatusNotFound, "role not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to unassign role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "role unassigned"})
}

// Response shaping helpers

func roleResponse(role *rbac.Role) map[string]any {
	return map[string]any{
		"role_id":     role.ID,
		"name":        role.Name,
		"description": role.Description,
		"created_at":  role.CreatedAt,
	}
}

func permissionResponse(perm *rbac.Permission) map[string]any {
	return map[string]any{
		"permission_id": perm.ID,
		"resource":      perm.ResourceCode,
		"action":        perm.ActionCode,
		"code":          perm.Code(),
		"created_at":    perm.CreatedAt,
	}
}

func permissionList(perms []*rbac.Permission) []map[string]any {
	out := make([]map[string]any, 0, len(perms))
	for _, perm := range perms {
		out = append(out, permissionResponse(perm))
	}
	return out
}
