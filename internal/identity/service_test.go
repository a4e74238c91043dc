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

package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/authsys/authsys/internal/audit"
	"github.com/authsys/authsys/internal/identity"
	"github.com/authsys/authsys/internal/store/memory"
)

// recordingAssigner implements identity.RoleAssigner and records the
// lifecycle calls the service makes.
type recordingAssigner struct {
	created  []string
	promoted []string
	fail     error
}

func (a *recordingAssigner) UserCreated(_ context.Context, userID string) error {
	if a.fail != nil {
		return a.fail
	}
	a.created = append(a.created, userID)
	return nil
}

func (a *recordingAssigner) UserPromoted(_ context.Context, userID string) error {
	if a.fail != nil {
		return a.fail
	}
	a.promoted = append(a.promoted, userID)
	return nil
}

// testHasher uses deliberately weak argon2 parameters to keep the suite
// fast. Production parameters come from config.
func testHasher() *identity.PasswordHasher {
	return identity.NewPasswordHasher(1024, 1, 1, 16, 32)
}

func newTestService(assigner *recordingAssigner) *identity.Service {
	return identity.NewService(
		memory.NewUserRepository(),
		assigner,
		testHasher(),
		audit.Nop{},
		3,              // lockout after 3 failures
		15*time.Minute, // lockout duration
	)
}

func TestService_Register(t *testing.T) {
	assigner := &recordingAssigner{}
	svc := newTestService(assigner)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "correct horse battery", "Alice", "Smith")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.IsSuperuser {
		t.Error("regular registration must not create a superuser")
	}
	if len(assigner.created) != 1 || assigner.created[0] != user.ID {
		t.Errorf("expected exactly one UserCreated call for %s, got %v", user.ID, assigner.created)
	}
	if len(assigner.promoted) != 0 {
		t.Error("regular registration must not trigger UserPromoted")
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc := newTestService(&recordingAssigner{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(ctx, "alice@example.com", "another password!", "", "")
	if !errors.Is(err, identity.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestService_Register_Validation(t *testing.T) {
	svc := newTestService(&recordingAssigner{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "correct horse battery", "", ""); !errors.Is(err, identity.ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob@example.com", "short", "", ""); !errors.Is(err, identity.ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}

func TestService_RegisterSuperuser(t *testing.T) {
	assigner := &recordingAssigner{}
	svc := newTestService(assigner)

	user, err := svc.RegisterSuperuser(context.Background(), "root@example.com", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.IsSuperuser {
		t.Error("expected a superuser")
	}
	if len(assigner.promoted) != 1 || assigner.promoted[0] != user.ID {
		t.Errorf("expected UserPromoted for the superuser, got %v", assigner.promoted)
	}
	if len(assigner.created) != 0 {
		t.Error("superuser registration must not also trigger UserCreated")
	}
}

func TestService_Register_AssignerFailure(t *testing.T) {
	assigner := &recordingAssigner{fail: errors.New("roles unavailable")}
	svc := newTestService(assigner)

	if _, err := svc.Register(context.Background(), "alice@example.com", "correct horse battery", "", ""); err == nil {
		t.Error("registration must fail when the initial role cannot be assigned")
	}
}

func TestService_Authenticate(t *testing.T) {
	svc := newTestService(&recordingAssigner{})
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := svc.Authenticate(ctx, "ALICE@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != registered.ID {
		t.Error("expected the registered user back")
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "wrong password!"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost@example.com", "correct horse battery"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_Authenticate_Lockout(t *testing.T) {
	svc := newTestService(&recordingAssigner{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate(ctx, "alice@example.com", "wrong password!"); !errors.Is(err, identity.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Even the correct password is refused while locked
	if _, err := svc.Authenticate(ctx, "alice@example.com", "correct horse battery"); !errors.Is(err, identity.ErrAccountLocked) {
		t.Errorf("expected ErrAccountLocked, got %v", err)
	}
}

func TestService_DeactivateAndRestore(t *testing.T) {
	svc := newTestService(&recordingAssigner{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Deactivate(ctx, user.ID, "admin"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	// Idempotent
	if err := svc.Deactivate(ctx, user.ID, "admin"); err != nil {
		t.Fatalf("repeated deactivate should succeed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "correct horse battery"); !errors.Is(err, identity.ErrAccountDeleted) {
		t.Errorf("expected ErrAccountDeleted, got %v", err)
	}

	if err := svc.Restore(ctx, user.ID, "admin"); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice@example.com", "correct horse battery"); err != nil {
		t.Errorf("expected login to work after restore, got %v", err)
	}
}

func TestService_Promote_Idempotent(t *testing.T) {
	assigner := &recordingAssigner{}
	svc := newTestService(assigner)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	promoted, err := svc.Promote(ctx, user.ID, "admin")
	if err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if !promoted.IsSuperuser {
		t.Error("expected promoted user to be a superuser")
	}

	if _, err := svc.Promote(ctx, user.ID, "admin"); err != nil {
		t.Fatalf("repeated promote should succeed: %v", err)
	}
	if len(assigner.promoted) != 2 {
		// UserPromoted fires each time; the assignment layer dedupes.
		t.Errorf("expected 2 UserPromoted calls, got %d", len(assigner.promoted))
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc := newTestService(&recordingAssigner{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong old", "a brand new password"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong old password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "correct horse battery", "short"); !errors.Is(err, identity.ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "correct horse battery", "a brand new password"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice@example.com", "a brand new password"); err != nil {
		t.Errorf("expected login with new password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice@example.com", "correct horse battery"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("old password must stop working, got %v", err)
	}
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := testHasher()

	hash, err := hasher.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	ok, err := hasher.Verify("correct horse battery", hash)
	if err != nil || !ok {
		t.Errorf("expected verification to succeed, ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("something else", hash)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("wrong password must not verify")
	}
}
