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
	"errors"
	"testing"
	"time"

	"github.com/authsys/authsys/internal/audit"
	"github.com/authsys/authsys/internal/store/memory"
)

func newTestService() *Service {
	return NewService(
		[]byte("test-secret-do-not-reuse"),
		time.Hour,
		24*time.Hour,
		memory.NewBlacklistRepository(),
		audit.Nop{},
	)
}

func TestService_IssueAndVerify(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	pair, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("expected expires_in 3600, got %d", pair.ExpiresIn)
	}

	claims, err := svc.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Error("expected a token ID")
	}
}

func TestService_VerifyAccess_RejectsRefreshToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	pair, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := svc.VerifyAccess(ctx, pair.RefreshToken); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestService_VerifyAccess_Invalid(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.VerifyAccess(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: expected ErrInvalidToken, got %v", err)
	}

	// Signed with a different secret
	other := NewService([]byte("another-secret"), time.Hour, 24*time.Hour, memory.NewBlacklistRepository(), audit.Nop{})
	pair, err := other.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign signature: expected ErrInvalidToken, got %v", err)
	}
}

func TestService_VerifyAccess_Expired(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	pair, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestService_Refresh_Rotates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	pair, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.AccessToken == pair.AccessToken || rotated.RefreshToken == pair.RefreshToken {
		t.Error("expected a fresh pair, got a repeated token")
	}

	claims, err := svc.VerifyAccess(ctx, rotated.AccessToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %q", claims.Subject)
	}

	// The spent refresh token cannot be replayed
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("expected ErrTokenRevoked on replay, got %v", err)
	}
}

func TestService_Revoke(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	pair, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if err := svc.Revoke(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("expected ErrTokenRevoked after revoke, got %v", err)
	}
}

func TestService_Revoke_InvalidTokenIsNoop(t *testing.T) {
	svc := newTestService()

	if err := svc.Revoke(context.Background(), "not-a-token"); err != nil {
		t.Errorf("revoking an invalid token must succeed, got %v", err)
	}
}
