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

// Package session stores the checkpoint ring for in-flight incidents.
// Two backends satisfy the same Store interface - an in-memory map for
// single-process or test use, and a Redis-backed store for multi-
// process deployments - and a caller cannot tell which one it is
// talking to from behavior alone.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/sentinelstay/triage/pkg/incident"
)

// ErrNotFound is returned when no checkpoint exists for an incident.
var ErrNotFound = errors.New("session: incident not found")

// Store persists the bounded checkpoint ring for an incident so a
// suspended or crashed workflow run can be resumed.
type Store interface {
	// Put appends a checkpoint to the incident's ring, evicting the
	// oldest entry once the ring's configured size is exceeded.
	Put(ctx context.Context, incidentID string, cp *incident.Checkpoint) error

	// Latest returns the most recently stored checkpoint.
	Latest(ctx context.Context, incidentID string) (*incident.Checkpoint, error)

	// History returns all checkpoints currently retained, oldest first.
	History(ctx context.Context, incidentID string) ([]*incident.Checkpoint, error)

	// Delete clears an incident's checkpoint ring entirely.
	Delete(ctx context.Context, incidentID string) error
}

// Config tunes ring size and entry lifetime; both backends honor it
// identically.
type Config struct {
	RingSize int
	TTL      time.Duration
}
