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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountDeleted     = errors.New("account is deactivated")
)

// User represents a user account. Email is the unique login identifier;
// there is no separate username. Deletion is soft: a deactivated user
// keeps their row (and role assignments) but cannot authenticate until
// restored.
type User struct {
	ID                  string
	Email               string
	FirstName           string
	LastName            string
	IsActive            bool
	IsSuperuser         bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// Deleted reports whether the user has been soft-deleted.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// Credentials represents user authentication credentials
type Credentials struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// AddCredentials adds credentials for a user
	AddCredentials(ctx context.Context, credentials *Credentials) error

	// GetByID retrieves a user by ID (including soft-deleted users)
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List retrieves all users
	List(ctx context.Context) ([]*User, error)

	// Update updates user information
	Update(ctx context.Context, user *User) error

	// UpdateLockout updates user lockout status
	UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error

	// GetCredentials retrieves user credentials
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)

	// UpdatePassword updates user password
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}

// RoleAssigner is the boundary to the authorization layer. The identity
// service calls it synchronously at the two defined trigger points:
// creation and promotion. No other automatic assignment exists.
type RoleAssigner interface {
	UserCreated(ctx context.Context, userID string) error
	UserPromoted(ctx context.Context, userID string) error
}
