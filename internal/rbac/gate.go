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
	"log/slog"
)

// Gate is the single decision boundary request handlers call before any
// protected operation. It is strictly fail-closed: a malformed code, an
// undefined permission, or a store failure all produce a deny, never a
// grant. Those are configuration or infrastructure faults, so they are
// logged before the deny.
type Gate struct {
	permissions *Permissions
	resolver    *Resolver
}

// NewGate creates a new access decision gate
func NewGate(permissions *Permissions, resolver *Resolver) *Gate {
	return &Gate{permissions: permissions, resolver: resolver}
}

// HasPermission reports whether the user holds the permission identified
// by the canonical "resource:action" code.
func (g *Gate) HasPermission(ctx context.Context, userID, code string) bool {
	permission, err := g.permissions.Resolve(ctx, code)
	if err != nil {
		slog.ErrorContext(ctx, "permission code did not resolve, denying",
			slog.String("code", code),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}

	set, err := g.resolver.EffectivePermissions(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "permission resolution failed, denying",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}

	return set.Has(permission.Code())
}
