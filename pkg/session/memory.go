// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
)

type memoryEntry struct {
	cp       *incident.Checkpoint
	expires  time.Time
}

// MemoryStore is an in-process Store, bounded per incident to
// cfg.RingSize entries.
type MemoryStore struct {
	mu   sync.RWMutex
	cfg  Config
	ring map[string][]memoryEntry
}

// NewMemoryStore builds a MemoryStore. A zero RingSize defaults to 50.
func NewMemoryStore(cfg Config) *MemoryStore {
	if cfg.RingSize <= 0 {
		cfg.RingSize = 50
	}
	return &MemoryStore{cfg: cfg, ring: make(map[string][]memoryEntry)}
}

func (s *MemoryStore) Put(ctx context.Context, incidentID string, cp *incident.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{cp: cp}
	if s.cfg.TTL > 0 {
		entry.expires = time.Now().Add(s.cfg.TTL)
	}

	entries := append(s.ring[incidentID], entry)
	if len(entries) > s.cfg.RingSize {
		entries = entries[len(entries)-s.cfg.RingSize:]
	}
	// Each Put renews the TTL of the whole ring, as RedisStore's EXPIRE
	// on the list key does.
	for i := range entries {
		entries[i].expires = entry.expires
	}
	s.ring[incidentID] = entries
	return nil
}

func (s *MemoryStore) Latest(ctx context.Context, incidentID string) (*incident.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.liveLocked(incidentID)
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries[len(entries)-1].cp, nil
}

func (s *MemoryStore) History(ctx context.Context, incidentID string) ([]*incident.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.liveLocked(incidentID)
	out := make([]*incident.Checkpoint, len(entries))
	for i, e := range entries {
		out[i] = e.cp
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, incidentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ring, incidentID)
	return nil
}

// liveLocked filters out TTL-expired entries. Callers hold s.mu.
func (s *MemoryStore) liveLocked(incidentID string) []memoryEntry {
	entries := s.ring[incidentID]
	if s.cfg.TTL <= 0 {
		return entries
	}
	now := time.Now()
	live := entries[:0:0]
	for _, e := range entries {
		if e.expires.After(now) {
			live = append(live, e)
		}
	}
	return live
}

var _ Store = (*MemoryStore)(nil)
