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

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/authsys/authsys/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	mu          sync.RWMutex
	users       map[string]*identity.User
	credentials map[string]*identity.Credentials
}

// NewUserRepository creates an empty in-memory user store
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:       make(map[string]*identity.User),
		credentials: make(map[string]*identity.Credentials),
	}
}

func (r *UserRepository) Create(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return identity.ErrUserAlreadyExists
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) AddCredentials(_ context.Context, credentials *identity.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *credentials
	r.credentials[credentials.UserID] = &cp
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *UserRepository) List(_ context.Context) ([]*identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*identity.User, 0, len(r.users))
	for _, user := range r.users {
		cp := *user
		out = append(out, &cp)
	}
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return identity.ErrUserNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) UpdateLockout(_ context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	user.FailedLoginAttempts = failedAttempts
	user.LockedUntil = lockedUntil
	return nil
}

func (r *UserRepository) GetCredentials(_ context.Context, userID string) (*identity.Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	credentials, ok := r.credentials[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *credentials
	return &cp, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	credentials, ok := r.credentials[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	credentials.PasswordHash = passwordHash
	credentials.UpdatedAt = time.Now()
	return nil
}
