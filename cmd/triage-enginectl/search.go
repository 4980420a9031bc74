package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sentinelstay/triage/pkg/store"
)

// SearchCmd queries the persistent store for past incidents, matching
// spec.md §6's search surface.
type SearchCmd struct {
	Category string        `help:"Filter by category."`
	Priority string        `help:"Filter by priority."`
	Status   string        `help:"Filter by status."`
	Since    time.Duration `help:"Only incidents created within this long ago." default:"720h"`
	Limit    int           `help:"Maximum results." default:"20"`
}

func (c *SearchCmd) Run(rc *runContext) error {
	cfg, err := rc.loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(store.Driver(cfg.Store.Driver), cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	rows, err := st.SearchIncidents(context.Background(), store.SearchFilter{
		Category: c.Category,
		Priority: c.Priority,
		Status:   c.Status,
		Since:    time.Now().Add(-c.Since),
		Limit:    c.Limit,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
