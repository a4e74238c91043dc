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
	"fmt"
	"time"
)

// BlacklistRepository implements token.BlacklistRepository
type BlacklistRepository struct {
	db *DB
}

// NewBlacklistRepository creates a new token blacklist repository
func NewBlacklistRepository(db *DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Add records a revoked token ID. Re-revoking the same token is a no-op.
func (r *BlacklistRepository) Add(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO token_blacklist (token_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING
	`, tokenID, expiresAt)

	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// Contains reports whether a token ID has been revoked
func (r *BlacklistRepository) Contains(ctx context.Context, tokenID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE token_id = $1)
	`, tokenID).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists, nil
}

// PurgeExpired deletes blacklist entries whose expiry has passed
func (r *BlacklistRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM token_blacklist WHERE expires_at < $1
	`, now)

	if err != nil {
		return 0, fmt.Errorf("failed to purge blacklist: %w", err)
	}
	return tag.RowsAffected(), nil
}
