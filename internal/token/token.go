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

// Package token issues and verifies the JWT access/refresh pairs used to
// authenticate API requests. Access tokens are stateless; refresh tokens
// are revocable through a blacklist consulted on every refresh.
package token

import (
	"context"
	"errors"
	"time"
)

// Token types carried in the custom "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Domain errors
var (
	ErrInvalidToken   = errors.New("token is invalid or expired")
	ErrWrongTokenType = errors.New("token is of the wrong type")
	ErrTokenRevoked   = errors.New("token has been revoked")
)

// Pair is one issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime in seconds
}

// BlacklistRepository persists revoked refresh-token IDs until they would
// have expired anyway, after which they can be purged.
type BlacklistRepository interface {
	// Add records a revoked token ID with its natural expiry.
	Add(ctx context.Context, tokenID string, expiresAt time.Time) error

	// Contains reports whether a token ID has been revoked.
	Contains(ctx context.Context, tokenID string) (bool, error)

	// PurgeExpired deletes entries whose expiry has passed and returns
	// how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
