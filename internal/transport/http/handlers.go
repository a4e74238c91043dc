package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/authsys/authsys/internal/audit"
	"github.com/authsys/authsys/internal/identity"
	"github.com/authsys/authsys/internal/observability/logger"
	"github.com/authsys/authsys/internal/observability/metrics"
	"github.com/authsys/authsys/internal/rbac"
	"github.com/authsys/authsys/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	tokenService    *token.Service
	catalog         *rbac.Catalog
	permissions     *rbac.Permissions
	roles           *rbac.Roles
	assignments     *rbac.Assignments
	resolver        *rbac.Resolver
	gate            *rbac.Gate
	auditLogger     audit.Logger
	accessLogger    *logger.AccessLogger
	authzMetrics    *metrics.AuthzMetrics
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	tokenService *token.Service,
	catalog *rbac.Catalog,
	permissions *rbac.Permissions,
	roles *rbac.Roles,
	assignments *rbac.Assignments,
	resolver *rbac.Resolver,
	gate *rbac.Gate,
	auditLogger audit.Logger,
	accessLogger *logger.AccessLogger,
	authzMetrics *metrics.AuthzMetrics,
) *Handler {
	return &Handler{
		identityService: identityService,
		tokenService:    tokenService,
		catalog:         catalog,
		permissions:     permissions,
		roles:           roles,
		assignments:     assignments,
		resolver:        resolver,
		gate:            gate,
		auditLogger:     auditLogger,
		accessLogger:    accessLogger,
		authzMetrics:    authzMetrics,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.RefreshToken)
		r.Post("/auth/logout", h.Logout)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/me", h.GetCurrentUser)
			r.Get("/me/permissions", h.GetMyPermissions)
			r.Put("/me/profile", h.UpdateProfile)
			r.Post("/me/change-password", h.ChangePassword)

			// User administration
			r.Route("/users", func(r chi.Router) {
				r.With(h.RequirePermission("users:read")).Get("/", h.ListUsers)
				r.With(h.RequirePermission("users:read")).Get("/{userID}", h.GetUser)
				r.With(h.RequirePermission("users:update")).Post("/{userID}/promote", h.PromoteUser)
				r.With(h.RequirePermission("users:update")).Post("/{userID}/restore", h.RestoreUser)
				r.With(h.RequirePermission("users:delete")).Delete("/{userID}", h.DeactivateUser)

				r.With(h.RequirePermission("rbac:read")).Get("/{userID}/roles", h.ListUserRoles)
				r.With(h.RequirePermission("rbac:read")).Get("/{userID}/permissions", h.ListUserPermissions)
				r.With(h.RequirePermission("rbac:update")).Post("/{userID}/roles", h.AssignRole)
				r.With(h.RequirePermission("rbac:update")).Delete("/{userID}/roles/{roleID}", h.UnassignRole)
			})

			// Access-control administration
			r.Route("/rbac", func(r chi.Router) {
				r.Route("/resources", func(r chi.Router) {
					r.With(h.RequirePermission("rbac:read")).Get("/", h.ListResources)
					r.With(h.RequirePermission("rbac:create")).Post("/", h.CreateResource)
					r.With(h.RequirePermission("rbac:delete")).Delete("/{code}", h.DeleteResource)
				})
				r.Route("/actions", func(r chi.Router) {
					r.With(h.RequirePermission("rbac:read")).Get("/", h.ListActions)
					r.With(h.RequirePermission("rbac:create")).Post("/", h.CreateAction)
					r.With(h.RequirePermission("rbac:delete")).Delete("/{code}", h.DeleteAction)
				})
				r.Route("/permissions", func(r chi.Router) {
					r.With(h.RequirePermission("rbac:read")).Get("/", h.ListPermissions)
					r.With(h.RequirePermission("rbac:create")).Post("/", h.CreatePermission)
					r.With(h.RequirePermission("rbac:delete")).Delete("/{permissionID}", h.DeletePermission)
				})
				r.Route("/roles", func(r chi.Router) {
					r.With(h.RequirePermission("rbac:read")).Get("/", h.ListRoles)
					r.With(h.RequirePermission("rbac:create")).Post("/", h.CreateRole)
					r.With(h.RequirePermission("rbac:delete")).Delete("/{roleID}", h.DeleteRole)
					r.With(h.RequirePermission("rbac:read")).Get("/{roleID}/permissions", h.ListRolePermissions)
					r.With(h.RequirePermission("rbac:update")).Post("/{roleID}/permissions", h.GrantPermission)
					r.With(h.RequirePermission("rbac:update")).Delete("/{roleID}/permissions/{permissionID}", h.RevokePermission)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "authsys",
	})
}

// RegisterRequest represents registration data
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register handles user registration. New users get the Default role.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to register user",
			logger.Error(err),
			logger.Email(req.Email),
		)

		switch {
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeUserCreated,
		ActorID:   user.ID, // Self-registration
		Subject:   user.ID,
		IPAddress: getIPAddress(r),
		Metadata:  map[string]any{"email": user.Email},
	})

	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and issues a token pair
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		reason := "invalid_credentials"
		if errors.Is(err, identity.ErrAccountLocked) {
			reason = "account_locked"
		}
		h.accessLogger.LoginFailure(r.Context(), req.Email, getIPAddress(r), reason)
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeLoginFailed,
			Subject:   req.Email,
			IPAddress: getIPAddress(r),
			UserAgent: r.UserAgent(),
			Metadata:  map[string]any{"reason": reason},
		})
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := h.tokenService.Issue(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	h.accessLogger.LoginSuccess(r.Context(), user.ID, getIPAddress(r))
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLoginSuccess,
		ActorID:   user.ID,
		Subject:   user.ID,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
		"token_type":    "Bearer",
	})
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a refresh token for a new pair. The spent
// refresh token is blacklisted, so each refresh token works once.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.tokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
		"token_type":    "Bearer",
	})
}

// LogoutRequest carries the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the presented refresh token. Revoking an already
// invalid token still reports success; logout is idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tokenService.Revoke(r.Context(), req.RefreshToken); err != nil {
		slog.ErrorContext(r.Context(), "failed to revoke token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentUser returns the current authenticated user identity
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	user, err := h.identityService.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// GetMyPermissions returns the caller's effective permission codes,
// the union over all of their roles, sorted.
func (h *Handler) GetMyPermissions(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	set, err := h.resolver.EffectivePermissions(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to resolve permissions",
			logger.Error(err),
			logger.UserID(userID),
		)
		respondError(w, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"permissions": set.Codes(),
	})
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateProfile updates the caller's profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// ChangePasswordRequest represents password change data
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword changes the caller's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.identityService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid old password")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "new password does not meet security requirements")
		default:
			respondError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password changed successfully",
	})
}

// Helper functions

func userResponse(user *identity.User) map[string]any {
	return map[string]any{
		"user_id":      user.ID,
		"email":        user.Email,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"is_active":    user.IsActive,
		"is_superuser": user.IsSuperuser,
		"created_at":   user.CreatedAt,
		"deleted":      user.Deleted(),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
