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
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sentinelstay/triage/pkg/incident"
)

// RedisStore is a Store backed by a Redis list per incident, so the
// engine can run with more than one worker process sharing state.
type RedisStore struct {
	client *redis.Client
	cfg    Config
}

// NewRedisStore builds a RedisStore against an already-constructed
// client. A zero RingSize defaults to 50.
func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	if cfg.RingSize <= 0 {
		cfg.RingSize = 50
	}
	return &RedisStore{client: client, cfg: cfg}
}

func (s *RedisStore) key(incidentID string) string {
	return "triage:checkpoints:" + incidentID
}

func (s *RedisStore) Put(ctx context.Context, incidentID string, cp *incident.Checkpoint) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("session: marshal checkpoint: %w", err)
	}

	key := s.key(incidentID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, int64(-s.cfg.RingSize), -1)
	if s.cfg.TTL > 0 {
		pipe.Expire(ctx, key, s.cfg.TTL)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("session: put checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Latest(ctx context.Context, incidentID string) (*incident.Checkpoint, error) {
	raw, err := s.client.LIndex(ctx, s.key(incidentID), -1).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get latest checkpoint: %w", err)
	}
	var cp incident.Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return nil, fmt.Errorf("session: unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *RedisStore) History(ctx context.Context, incidentID string) ([]*incident.Checkpoint, error) {
	raws, err := s.client.LRange(ctx, s.key(incidentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("session: get checkpoint history: %w", err)
	}
	out := make([]*incident.Checkpoint, 0, len(raws))
	for _, raw := range raws {
		var cp incident.Checkpoint
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			return nil, fmt.Errorf("session: unmarshal checkpoint: %w", err)
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, incidentID string) error {
	if err := s.client.Del(ctx, s.key(incidentID)).Err(); err != nil {
		return fmt.Errorf("session: delete checkpoint ring: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
