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
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/authsys/authsys/internal/observability/logger"
	"github.com/authsys/authsys/internal/rbac"
)

// Authorization principles:
// 1. Every protected route names the permission it requires
// 2. Denial is the default: any failure to resolve permissions denies
// 3. No hardcoded role checks (use permission checks)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware validates the bearer access token, adds the user ID to
// the request context, and installs the per-request permission cache.
// Permissions resolved anywhere downstream of this middleware are cached
// for the lifetime of this request only; the cache is gone when the
// request ends, so grant and revocation changes are visible on the very
// next request.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		claims, err := h.tokenService.VerifyAccess(r.Context(), tokenString)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, tokenIDKey, claims.ID)
		ctx = rbac.WithRequestCache(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission guards a route with a permission check. The check
// fails closed: unknown permission codes, malformed codes, and resolver
// failures all deny.
func (h *Handler) RequirePermission(code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			start := time.Now()
			allowed := h.gate.HasPermission(r.Context(), userID, code)
			if h.authzMetrics != nil {
				h.authzMetrics.RecordDecision(r.Context(), code, allowed)
				h.authzMetrics.ResolveDuration.Record(r.Context(), float64(time.Since(start).Milliseconds()))
			}

			if !allowed {
				h.accessLogger.AccessDenied(r.Context(), userID, code, "permission not held", getIPAddress(r))
				respondError(w, http.StatusForbidden, "permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
