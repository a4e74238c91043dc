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
)

// BlacklistRepository implements token.BlacklistRepository
type BlacklistRepository struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // tokenID → expiry
}

// NewBlacklistRepository creates an empty in-memory blacklist
func NewBlacklistRepository() *BlacklistRepository {
	return &BlacklistRepository{revoked: make(map[string]time.Time)}
}

func (r *BlacklistRepository) Add(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *BlacklistRepository) Contains(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}

func (r *BlacklistRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, expiresAt := range r.revoked {
		if expiresAt.Before(now) {
			delete(r.revoked, id)
			n++
		}
	}
	return n, nil
}
