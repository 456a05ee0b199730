package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/wallandteen/leetsession/internal/lc"
)

// Managed returns the caller's lists whose name carries the mark, in the
// order the service reports them.
func (m *Manager) Managed(ctx context.Context) ([]lc.List, error) {
	lists, err := m.lists.ListMine(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	var managed []lc.List
	for _, l := range lists {
		if strings.Contains(l.Name, m.opts.Mark) {
			managed = append(managed, l)
		}
	}
	return managed, nil
}

// IncompleteSessions returns the managed lists still carrying the state flag.
func (m *Manager) IncompleteSessions(ctx context.Context) ([]lc.List, error) {
	managed, err := m.Managed(ctx)
	if err != nil {
		return nil, err
	}

	var incomplete []lc.List
	for _, l := range managed {
		if DeriveState(l.Name, m.opts.StateFlag) == InProgress {
			incomplete = append(incomplete, l)
		}
	}
	return incomplete, nil
}

// HasIncompleteSessions reports whether any session creation was left unfinished.
func (m *Manager) HasIncompleteSessions(ctx context.Context) (bool, error) {
	incomplete, err := m.IncompleteSessions(ctx)
	if err != nil {
		return false, err
	}
	return len(incomplete) > 0, nil
}
