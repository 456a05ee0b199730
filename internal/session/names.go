package session

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// State is derived from a session name; nothing else records it.
type State int

const (
	Ready State = iota
	InProgress
)

func (s State) String() string {
	if s == InProgress {
		return "in-progress"
	}
	return "ready"
}

// DeriveState reports InProgress when name carries the state flag.
func DeriveState(name, stateFlag string) State {
	if stateFlag != "" && strings.Contains(name, stateFlag) {
		return InProgress
	}
	return Ready
}

// BaseLabel is the day-month-year label of t followed by the mark,
// e.g. "02 Jan 2025 [LS]".
func BaseLabel(t time.Time, mark string) string {
	return t.UTC().Format("02 Jan 2006") + " " + mark
}

// StripFlag removes the state flag and the whitespace around it.
func StripFlag(name, stateFlag string) string {
	if stateFlag == "" {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(strings.ReplaceAll(name, stateFlag, ""))
}

// NextSessionName picks the name for a new session given the names that
// exist right now. Only names carrying mark and starting with baseLabel take
// part; the first session of a day has no ordinal, later ones get max+1.
func NextSessionName(existing []string, baseLabel, mark, stateFlag string) string {
	ordinal := regexp.MustCompile("^" + regexp.QuoteMeta(baseLabel) + ` #(\d+)`)

	found := false
	highest := 0
	for _, name := range existing {
		if !strings.Contains(name, mark) || !strings.HasPrefix(name, baseLabel) {
			continue
		}
		found = true
		if m := ordinal.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}

	if !found {
		return baseLabel + " " + stateFlag
	}
	return fmt.Sprintf("%s #%d %s", baseLabel, highest+1, stateFlag)
}

// GenerateUniqueName reads the current managed lists and returns the next
// free session name for baseLabel.
func (m *Manager) GenerateUniqueName(ctx context.Context, baseLabel, stateFlag string) (string, error) {
	managed, err := m.Managed(ctx)
	if err != nil {
		return "", err
	}

	names := make([]string, len(managed))
	for i, l := range managed {
		names[i] = l.Name
	}
	return NextSessionName(names, baseLabel, m.opts.Mark, stateFlag), nil
}
