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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authsys/authsys/internal/audit"
	"github.com/authsys/authsys/internal/config"
	"github.com/authsys/authsys/internal/identity"
	"github.com/authsys/authsys/internal/observability/logger"
	"github.com/authsys/authsys/internal/observability/metrics"
	"github.com/authsys/authsys/internal/observability/tracing"
	"github.com/authsys/authsys/internal/rbac"
	"github.com/authsys/authsys/internal/store/memory"
	"github.com/authsys/authsys/internal/store/postgres"
	"github.com/authsys/authsys/internal/token"
	transportHTTP "github.com/authsys/authsys/internal/transport/http"
)

// repositories groups the persistence interfaces behind one wiring point
// so the postgres and memory drivers build identically.
type repositories struct {
	users       identity.UserRepository
	catalog     rbac.CatalogRepository
	permissions rbac.PermissionRepository
	roles       rbac.RoleRepository
	assignments rbac.AssignmentRepository
	blacklist   token.BlacklistRepository

	close func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting authsys")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if len(os.Args) > 1 && os.Args[1] == "bootstrap" {
		if err := runBootstrap(cfg); err != nil {
			fmt.Printf("Bootstrap failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}
	authzMetrics, err := meter.NewAuthzMetrics()
	if err != nil {
		slog.Error("failed to create authz instruments", logger.Error(err))
	}

	repos, err := buildRepositories(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize store", logger.Error(err))
		os.Exit(1)
	}
	defer repos.close()
	slog.Info("store ready", logger.String("driver", cfg.Store.Driver))

	// Helpers
	auditLogger := audit.NewSlogLogger()
	accessLogger := logger.NewAccessLogger(slog.Default())
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	// Services
	catalog := rbac.NewCatalog(repos.catalog, repos.permissions)
	permissions := rbac.NewPermissions(repos.permissions, repos.catalog, repos.roles, auditLogger)
	roles := rbac.NewRoles(repos.roles, repos.permissions, repos.assignments, auditLogger)
	assignments := rbac.NewAssignments(repos.assignments, repos.roles, auditLogger)
	resolver := rbac.NewResolver(repos.assignments, repos.roles)
	gate := rbac.NewGate(permissions, resolver)

	identityService := identity.NewService(
		repos.users,
		assignments,
		passwordHasher,
		auditLogger,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)
	tokenService := token.NewService(
		[]byte(cfg.Token.Secret),
		cfg.Token.AccessTTL,
		cfg.Token.RefreshTTL,
		repos.blacklist,
		auditLogger,
	)

	// Seed the catalog, the permission cross-product and the
	// distinguished roles. Re-running is a no-op.
	if err := rbac.Bootstrap(ctx, catalog, permissions, roles); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
		os.Exit(1)
	}

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	handler := transportHTTP.NewHandler(
		identityService,
		tokenService,
		catalog,
		permissions,
		roles,
		assignments,
		resolver,
		gate,
		auditLogger,
		accessLogger,
		authzMetrics,
	)

	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Purge revoked refresh tokens whose natural expiry has passed
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			purged, err := repos.blacklist.PurgeExpired(ctx, time.Now())
			if err != nil {
				slog.ErrorContext(ctx, "failed to purge token blacklist", logger.Error(err))
				continue
			}
			if purged > 0 {
				slog.InfoContext(ctx, "purged expired blacklist entries", logger.RowsAffected(purged))
			}
		}
	}()

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func buildRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Store.Driver == "memory" {
		permRepo := memory.NewPermissionRepository()
		roleRepo := memory.NewRoleRepository(permRepo)
		return &repositories{
			users:       memory.NewUserRepository(),
			catalog:     memory.NewCatalogRepository(),
			permissions: permRepo,
			roles:       roleRepo,
			assignments: memory.NewAssignmentRepository(roleRepo),
			blacklist:   memory.NewBlacklistRepository(),
			close:       func() {},
		}, nil
	}

	db, err := connectPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &repositories{
		users:       postgres.NewUserRepository(db),
		catalog:     postgres.NewCatalogRepository(db),
		permissions: postgres.NewPermissionRepository(db),
		roles:       postgres.NewRoleRepository(db),
		assignments: postgres.NewAssignmentRepository(db),
		blacklist:   postgres.NewBlacklistRepository(db),
		close:       db.Close,
	}, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	return postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}

// runBootstrap seeds the catalog and the distinguished roles, and, when
// BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD are set, creates
// the first superuser. The superuser gets the Admin role, which holds
// every seeded permission; there is no bypass around the permission
// check itself.
func runBootstrap(cfg *config.Config) error {
	ctx := context.Background()
	repos, err := buildRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	auditLogger := audit.NewSlogLogger()
	catalog := rbac.NewCatalog(repos.catalog, repos.permissions)
	permissions := rbac.NewPermissions(repos.permissions, repos.catalog, repos.roles, auditLogger)
	roles := rbac.NewRoles(repos.roles, repos.permissions, repos.assignments, auditLogger)
	assignments := rbac.NewAssignments(repos.assignments, repos.roles, auditLogger)

	if err := rbac.Bootstrap(ctx, catalog, permissions, roles); err != nil {
		return err
	}

	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminEmail == "" {
		return nil
	}

	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	identityService := identity.NewService(
		repos.users,
		assignments,
		passwordHasher,
		auditLogger,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)

	user, err := identityService.RegisterSuperuser(ctx, adminEmail, adminPassword, "", "")
	if err != nil {
		if errors.Is(err, identity.ErrUserAlreadyExists) {
			slog.Info("bootstrap admin already exists", logger.Email(adminEmail))
			return nil
		}
		return err
	}

	slog.Info("bootstrap admin created", logger.UserID(user.ID), logger.Email(user.Email))
	return nil
}
