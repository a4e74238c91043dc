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
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/authsys/authsys/internal/audit"
)

// PasswordHasher handles password hashing using Argon2id
type PasswordHasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewPasswordHasher creates a new password hasher with Argon2id
func NewPasswordHasher(memory, iterations uint32, parallelism uint8, saltLength, keyLength uint32) *PasswordHasher {
	return &PasswordHasher{
		memory:      memory,
		iterations:  iterations,
		parallelism: parallelism,
		saltLength:  saltLength,
		keyLength:   keyLength,
	}
}

// DefaultPasswordHasher returns a hasher with the RFC 9106 low-memory
// parameters.
func DefaultPasswordHasher() *PasswordHasher {
	return NewPasswordHasher(64*1024, 3, 4, 16, 32)
}

// Hash hashes a password using Argon2id
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.iterations,
		h.memory,
		h.parallelism,
		h.keyLength,
	)

	// Encode as: $argon2id$v=19$m=memory,t=iterations,p=parallelism$salt$hash
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.iterations,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify verifies a password against an encoded hash
func (h *PasswordHasher) Verify(password, encodedHash string) (bool, error) {
	// Format: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	sections := strings.Split(strings.TrimPrefix(encodedHash, "$"), "$")
	if len(sections) != 5 || sections[0] != "argon2id" {
		return false, fmt.Errorf("invalid hash format: got %d sections", len(sections))
	}

	var version int
	if _, err := fmt.Sscanf(sections[1], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid version: %w", err)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("invalid parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	actualHash := argon2.IDKey(
		[]byte(password),
		salt,
		iterations,
		memory,
		parallelism,
		uint32(len(expectedHash)),
	)

	// Constant-time comparison
	if len(actualHash) != len(expectedHash) {
		return false, nil
	}
	var diff byte
	for i := range actualHash {
		diff |= actualHash[i] ^ expectedHash[i]
	}
	return diff == 0, nil
}

// Service provides identity-related business logic
type Service struct {
	repo               UserRepository
	roles              RoleAssigner
	hasher             *PasswordHasher
	auditLogger        audit.Logger
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	roles RoleAssigner,
	hasher *PasswordHasher,
	auditLogger audit.Logger,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	return &Service{
		repo:               repo,
		roles:              roles,
		hasher:             hasher,
		auditLogger:        auditLogger,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
	}
}

// Register creates a new regular user. The Default role is assigned as
// part of the same call, so a freshly registered user already has an
// effective permission set (usually empty) on their first request.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	return s.register(ctx, email, password, firstName, lastName, false)
}

// RegisterSuperuser creates a superuser. Superusers receive the Admin
// role instead of the Default role.
func (s *Service) RegisterSuperuser(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	return s.register(ctx, email, password, firstName, lastName, true)
}

func (s *Service) register(ctx context.Context, email, password, firstName, lastName string, superuser bool) (*User, error) {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}

	now := time.Now()
	user := &User{
		ID:          uuid.NewString(),
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		IsActive:    true,
		IsSuperuser: superuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.AddCredentials(ctx, &Credentials{
		UserID:       user.ID,
		PasswordHash: passwordHash,
		UpdatedAt:    now,
	}); err != nil {
		return nil, fmt.Errorf("failed to add credentials: %w", err)
	}

	// Automatic role assignment: superusers get Admin, everyone else
	// gets Default.
	if superuser {
		err = s.roles.UserPromoted(ctx, user.ID)
	} else {
		err = s.roles.UserCreated(ctx, user.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assign initial role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeUserCreated,
		ActorID: user.ID,
		Subject: user.Email,
		Metadata: map[string]any{
			"superuser": superuser,
		},
	})

	return user, nil
}

// Promote elevates an existing user to superuser status and triggers the
// automatic Admin role assignment. Promoting a superuser again is a
// no-op.
func (s *Service) Promote(ctx context.Context, userID, actorID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if !user.IsSuperuser {
		user.IsSuperuser = true
		user.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	// Idempotent: the assignment layer treats re-assigning as a no-op.
	if err := s.roles.UserPromoted(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to assign admin role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeUserPromoted,
		ActorID: actorID,
		Subject: user.Email,
	})

	return user, nil
}

// Authenticate authenticates a user with email and password
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Subject:  email,
			Metadata: map[string]any{"reason": "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	if user.Deleted() || !user.IsActive {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Subject:  email,
			Metadata: map[string]any{"reason": "account_deactivated"},
		})
		return nil, ErrAccountDeleted
	}

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Subject:  email,
			Metadata: map[string]any{"reason": "locked_out"},
		})
		return nil, ErrAccountLocked
	}

	credentials, err := s.repo.GetCredentials(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, credentials.PasswordHash)
	if err != nil || !valid {
		newAttempts := user.FailedLoginAttempts + 1
		var newLockedUntil *time.Time

		if newAttempts >= s.lockoutMaxAttempts {
			until := time.Now().Add(s.lockoutDuration)
			newLockedUntil = &until
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeUserLocked,
				ActorID:  user.ID,
				Subject:  email,
				Metadata: map[string]any{"attempts": newAttempts},
			})
		}

		_ = s.repo.UpdateLockout(ctx, user.ID, newAttempts, newLockedUntil)

		s.auditLogger.Log(ctx, audit.Event{
			Type:    audit.TypeLoginFailed,
			ActorID: user.ID,
			Subject: email,
			Metadata: map[string]any{
				"reason":   "invalid_password",
				"attempts": newAttempts,
			},
		})

		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.repo.UpdateLockout(ctx, user.ID, 0, nil)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeLoginSuccess,
		ActorID: user.ID,
		Subject: email,
	})

	return user, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// ListUsers returns all users, including soft-deleted ones.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// UpdateProfile updates the user's name fields.
func (s *Service) UpdateProfile(ctx context.Context, userID, firstName, lastName string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	user.FirstName = firstName
	user.LastName = lastName
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ChangePassword changes user password
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	credentials, err := s.repo.GetCredentials(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	valid, err := s.hasher.Verify(oldPassword, credentials.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypePasswordChanged,
		ActorID: userID,
	})
	return nil
}

// Deactivate soft-deletes a user. Role assignments are kept so a restore
// brings back the same access.
func (s *Service) Deactivate(ctx context.Context, userID, actorID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if user.Deleted() {
		return nil
	}

	now := time.Now()
	user.IsActive = false
	user.DeletedAt = &now
	user.UpdatedAt = now
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeUserDeactivated,
		ActorID: actorID,
		Subject: user.Email,
	})
	return nil
}

// Restore reverses a soft delete.
func (s *Service) Restore(ctx context.Context, userID, actorID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.Deleted() {
		return nil
	}

	user.IsActive = true
	user.DeletedAt = nil
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to restore user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeUserRestored,
		ActorID: actorID,
		Subject: user.Email,
	})
	return nil
}

// Helper functions
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && len(email) < 255
}

func isStrongPassword(password string) bool {
	// Password must be at least 8 characters
	return len(password) >= 8
}
