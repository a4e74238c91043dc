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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/authsys/authsys/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, email, first_name, last_name, is_active, is_superuser,
	failed_login_attempts, locked_until, created_at, updated_at, deleted_at`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, first_name, last_name, is_active, is_superuser,
			failed_login_attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID, user.Email, user.FirstName, user.LastName, user.IsActive,
		user.IsSuperuser, user.FailedLoginAttempts, user.CreatedAt, user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// AddCredentials stores the password hash for a user
func (r *UserRepository) AddCredentials(ctx context.Context, credentials *identity.Credentials) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_credentials (user_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
	`, credentials.UserID, credentials.PasswordHash, credentials.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to add credentials: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID, including soft-deleted users
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves a non-deleted user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT`+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)
	return scanUser(row)
}

// List retrieves all users ordered by creation time
func (r *UserRepository) List(ctx context.Context) ([]*identity.User, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT`+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update updates user information
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, is_active = $5,
		    is_superuser = $6, updated_at = $7, deleted_at = $8
		WHERE id = $1
	`,
		user.ID, user.Email, user.FirstName, user.LastName, user.IsActive,
		user.IsSuperuser, user.UpdatedAt, user.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// UpdateLockout updates the lockout counters for a user
func (r *UserRepository) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = $2, locked_until = $3, updated_at = now()
		WHERE id = $1
	`, userID, failedAttempts, lockedUntil)

	if err != nil {
		return fmt.Errorf("failed to update lockout: %w", err)
	}
	return nil
}

// GetCredentials retrieves the password hash for a user
func (r *UserRepository) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	var credentials identity.Credentials
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, password_hash, updated_at
		FROM user_credentials
		WHERE user_id = $1
	`, userID).Scan(&credentials.UserID, &credentials.PasswordHash, &credentials.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &credentials, nil
}

// UpdatePassword replaces the password hash for a user
func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE user_credentials
		SET password_hash = $2, updated_at = now()
		WHERE user_id = $1
	`, userID, passwordHash)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var user identity.User
	var lockedUntil, deletedAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.IsActive,
		&user.IsSuperuser, &user.FailedLoginAttempts, &lockedUntil,
		&user.CreatedAt, &user.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}
	if deletedAt.Valid {
		user.DeletedAt = &deletedAt.Time
	}
	return &user, nil
}
