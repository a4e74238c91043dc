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
	"sort"
)

// PermissionSet is an immutable snapshot of a user's effective permissions,
// keyed by canonical code. Snapshots are safe to share within a request;
// nothing mutates one after construction.
type PermissionSet struct {
	byCode map[string]*Permission
}

func newPermissionSet(byCode map[string]*Permission) *PermissionSet {
	return &PermissionSet{byCode: byCode}
}

// Has reports whether the set contains the permission with the given
// canonical code.
func (s *PermissionSet) Has(code string) bool {
	_, ok := s.byCode[code]
	return ok
}

// Len returns the number of distinct permissions in the set.
func (s *PermissionSet) Len() int {
	return len(s.byCode)
}

// Codes returns the canonical codes in the set, sorted for stable display.
func (s *PermissionSet) Codes() []string {
	codes := make([]string, 0, len(s.byCode))
	for code := range s.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Resolver computes effective permission sets: the union, over every role
// assigned to a user, of that role's permissions. The fan-out is two
// levels deep and roles never reference roles, so resolution is a pair of
// adjacency lookups with no recursion.
type Resolver struct {
	assignments AssignmentRepository
	roles       RoleRepository
}

// NewResolver creates a new permission resolver
func NewResolver(assignments AssignmentRepository, roles RoleRepository) *Resolver {
	return &Resolver{assignments: assignments, roles: roles}
}

// EffectivePermissions returns the user's effective permission set.
//
// When the context carries a request cache (see WithRequestCache), the set
// is computed at most once per user per request; repeated checks inside
// the same request reuse the snapshot. The cache dies with the request, so
// revocations are visible on the next one. A user with no roles resolves
// to the empty set.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID string) (*PermissionSet, error) {
	if cache := requestCacheFrom(ctx); cache != nil {
		if set, ok := cache.sets[userID]; ok {
			return set, nil
		}
	}

	roles, err := r.assignments.RolesOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	byCode := make(map[string]*Permission)
	for _, role := range roles {
		permissions, err := r.roles.Permissions(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get permissions of role %q: %w", role.Name, err)
		}
		for _, permission := range permissions {
			byCode[permission.Code()] = permission
		}
	}

	set := newPermissionSet(byCode)
	if cache := requestCacheFrom(ctx); cache != nil {
		cache.sets[userID] = set
	}
	return set, nil
}

// requestCache holds resolved permission sets for the lifetime of one
// request context. It is owned by exactly one request and is never shared
// across goroutines handling different requests, so it needs no lock.
type requestCache struct {
	sets map[string]*PermissionSet
}

type requestCacheKey struct{}

// WithRequestCache returns a context carrying a fresh permission cache.
// The auth middleware installs one per request; anything resolved through
// the returned context is discarded when the request ends. Never install a
// cache on a long-lived context: stale snapshots would outlive
// revocations.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestCacheKey{}, &requestCache{
		sets: make(map[string]*PermissionSet),
	})
}

func requestCacheFrom(ctx context.Context) *requestCache {
	cache, _ := ctx.Value(requestCacheKey{}).(*requestCache)
	return cache
}
