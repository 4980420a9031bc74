// Copyright 2025 Kadir Pekel
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

// Package checkpoint saves and restores Incident snapshots so a
// suspended (human-approval-pending) or crashed workflow run can
// resume exactly where it left off, without re-invoking any tool whose
// result was already recorded.
package checkpoint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sentinelstay/triage/pkg/incident"
	"github.com/sentinelstay/triage/pkg/session"
)

// Manager orchestrates checkpoint persistence and recovery on top of a
// session.Store.
type Manager struct {
	store session.Store
	log   *slog.Logger
}

// NewManager builds a Manager over the given checkpoint ring store.
func NewManager(store session.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, log: log}
}

// Save snapshots inc at the given step and appends it to the
// incident's checkpoint ring.
func (m *Manager) Save(ctx context.Context, inc *incident.Incident, step string, sequence int) error {
	cp := &incident.Checkpoint{
		IncidentID: inc.ID(),
		Sequence:   sequence,
		Step:       step,
		State:      inc,
	}
	if err := m.store.Put(ctx, inc.ID(), cp); err != nil {
		return fmt.Errorf("checkpoint: save: %w", err)
	}
	m.log.Debug("checkpoint saved", "incident_id", inc.ID(), "step", step, "sequence", sequence)
	return nil
}

// Latest returns the most recent checkpoint for an incident, used to
// resume a suspended or crashed run.
func (m *Manager) Latest(ctx context.Context, incidentID string) (*incident.Checkpoint, error) {
	cp, err := m.store.Latest(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load latest: %w", err)
	}
	return cp, nil
}

// History returns every retained checkpoint for an incident, oldest
// first.
func (m *Manager) History(ctx context.Context, incidentID string) ([]*incident.Checkpoint, error) {
	history, err := m.store.History(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load history: %w", err)
	}
	return history, nil
}

// Clear drops an incident's checkpoint ring. Called once an incident
// reaches a terminal status (resolved or failed).
func (m *Manager) Clear(ctx context.Context, incidentID string) error {
	if err := m.store.Delete(ctx, incidentID); err != nil {
		return fmt.Errorf("checkpoint: clear: %w", err)
	}
	return nil
}

// RecoverableIncidentIDs is satisfied by a store that can enumerate
// incidents with a live checkpoint, used by RecoverOnStartup. The
// bounded-ring session.Store does not itself track a global index; a
// production deployment pairs Manager with pkg/store's incident table,
// which does (see pkg/store.Store.ListOpenIncidentIDs).
type RecoverableIncidentIDs interface {
	ListOpenIncidentIDs(ctx context.Context) ([]string, error)
}

// RecoverOnStartup loads the latest checkpoint for every open incident
// reported by lister and invokes resume for each one. A resume failure
// for one incident is logged and does not stop recovery of the rest.
func (m *Manager) RecoverOnStartup(ctx context.Context, lister RecoverableIncidentIDs, resume func(context.Context, *incident.Checkpoint) error) error {
	ids, err := lister.ListOpenIncidentIDs(ctx)
	if err != nil {
		return fmt.Errorf("checkpoint: list open incidents: %w", err)
	}

	for _, id := range ids {
		cp, err := m.Latest(ctx, id)
		if err != nil {
			m.log.Warn("no checkpoint to recover from", "incident_id", id, "error", err)
			continue
		}
		if err := resume(ctx, cp); err != nil {
			m.log.Warn("failed to resume incident from checkpoint", "incident_id", id, "error", err)
		}
	}
	return nil
}
