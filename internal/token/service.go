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

package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/authsys/authsys/internal/audit"
)

// Claims is the payload of every issued token.
type Claims struct {
	Type string `json:"type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// Service signs, verifies, refreshes and revokes token pairs. HS256 with
// a shared secret, matching the rest of the deployment.
type Service struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	blacklist   BlacklistRepository
	auditLogger audit.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewService creates a new token service
func NewService(secret []byte, accessTTL, refreshTTL time.Duration, blacklist BlacklistRepository, auditLogger audit.Logger) *Service {
	return &Service{
		secret:      secret,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		blacklist:   blacklist,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Issue generates a fresh access/refresh pair for a user.
func (s *Service) Issue(ctx context.Context, userID string) (*Pair, error) {
	access, err := s.sign(userID, TypeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(userID, TypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(ctx context.Context, tokenString string) (*Claims, error) {
	return s.verify(ctx, tokenString, TypeAccess)
}

// Refresh exchanges a valid refresh token for a new pair. The spent
// refresh token is blacklisted so it cannot be replayed (rotation).
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.verify(ctx, refreshToken, TypeRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	pair, err := s.Issue(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeTokenRefreshed,
		ActorID: claims.Subject,
	})
	return pair, nil
}

// Revoke blacklists a refresh token at logout. Revoking an already
// invalid token is not an error: logout must always succeed locally.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.verify(ctx, refreshToken, TypeRefresh)
	if err != nil {
		return nil
	}

	if err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypeLogout,
		ActorID: claims.Subject,
	})
	return nil
}

func (s *Service) sign(userID, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) verify(ctx context.Context, tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != wantType {
		return nil, ErrWrongTokenType
	}

	// Only refresh tokens are revocable; access tokens stay stateless.
	if wantType == TypeRefresh {
		revoked, err := s.blacklist.Contains(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check blacklist: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}
