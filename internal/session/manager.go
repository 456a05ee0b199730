// Package session creates and syncs LeetCode "sessions": favorite lists whose
// name carries a mark, each holding every problem in the catalog.
//
// All session state lives in the list names. A session is created with the
// state flag in its name, populated, reset and then renamed without the flag.
// A flagged name found later means a creation was interrupted; the next sync
// finishes it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wallandteen/leetsession/internal/lc"
	"github.com/wallandteen/leetsession/internal/logger"
	"github.com/wallandteen/leetsession/internal/notify"
	"github.com/wallandteen/leetsession/internal/store"
)

var log = logger.Named("session")

const (
	DefaultMark        = "[LS]"
	DefaultStateFlag   = "[in-progress]"
	descriptionFormat  = "Customise freely but keep %s in the name for auto-sync."
)

// DescriptionFor is the list description used when none is configured.
func DescriptionFor(mark string) string {
	return fmt.Sprintf(descriptionFormat, mark)
}

// ErrCreationInProgress is returned by Create while another session is
// still being created.
var ErrCreationInProgress = errors.New("a session is already being created")

// ListService is the subset of the favorite-list API the manager needs.
type ListService interface {
	Adder
	CreateList(ctx context.Context, name, description string, public bool) (string, error)
	ResetProgress(ctx context.Context, slug string) error
	RenameList(ctx context.Context, slug, name, description string) error
	ListMine(ctx context.Context) ([]lc.List, error)
	ListItems(ctx context.Context, slug string) ([]string, error)
	ListURL(slug string) string
}

// Catalog returns every known problem slug.
type Catalog interface {
	FetchCatalog(ctx context.Context) ([]string, error)
}

// CursorStore persists the date of the last complete sync.
type CursorStore interface {
	LastSync(ctx context.Context) (string, error)
	CompleteSync(ctx context.Context, run store.Run) error
}

// Navigator takes the user to a newly created session.
type Navigator interface {
	Open(ctx context.Context, url string) error
}

// Options tune a Manager. Zero values fall back to the defaults.
type Options struct {
	Mark        string
	StateFlag   string
	Description string
	Public      bool

	ChunkSize   int
	MaxParallel int
	OnAttempt   func(Attempt)
	OnProgress  func(Progress)

	Notifier  notify.Notifier
	Navigator Navigator
	Now       func() time.Time
}

// SyncResult summarizes one Sync call.
type SyncResult struct {
	RunID     string
	Date      string
	Skipped   bool // cursor already at today and nothing to finish
	Forced    bool // incomplete sessions overrode the cursor
	Lists     int
	Added     int
	Completed []string // names of sessions finished by this pass
}

// Manager creates sessions and keeps them in line with the catalog.
type Manager struct {
	lists     ListService
	catalog   Catalog
	cursor    CursorStore
	populator *Populator
	opts      Options

	// serializes sync passes
	syncMu sync.Mutex
}

// NewManager creates a Manager. lc.Client serves as both lists and catalog.
func NewManager(lists ListService, catalog Catalog, cursor CursorStore, opts Options) *Manager {
	if opts.Mark == "" {
		opts.Mark = DefaultMark
	}
	if opts.StateFlag == "" {
		opts.StateFlag = DefaultStateFlag
	}
	if opts.Description == "" {
		opts.Description = DescriptionFor(opts.Mark)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		lists:   lists,
		catalog: catalog,
		cursor:  cursor,
		populator: &Populator{
			Adder:       lists,
			ChunkSize:   opts.ChunkSize,
			MaxParallel: opts.MaxParallel,
			OnAttempt:   opts.OnAttempt,
			OnProgress:  opts.OnProgress,
		},
		opts: opts,
	}
}

func (m *Manager) today() string {
	return m.opts.Now().UTC().Format("2006-01-02")
}

// Create makes a new session for today holding the whole catalog.
//
// It refuses while another creation is unfinished. On any failure after that
// check it reports the error and runs Sync to finish what was started; the
// returned error carries both failures.
func (m *Manager) Create(ctx context.Context) (*lc.List, error) {
	busy, err := m.HasIncompleteSessions(ctx)
	if err != nil {
		notify.Errorf(m.opts.Notifier, 0, MsgCreateFailed, err)
		return nil, fmt.Errorf("failed to check for incomplete sessions: %w", err)
	}
	if busy {
		notify.Warnf(m.opts.Notifier, 0, MsgAlreadyCreating)
		return nil, ErrCreationInProgress
	}

	notify.Infof(m.opts.Notifier, creatingDuration, MsgCreating)

	list, err := m.create(ctx)
	if err != nil {
		log.Error("session creation failed: %v", err)
		notify.Errorf(m.opts.Notifier, 0, MsgCreateFailed, err)

		if _, syncErr := m.Sync(ctx); syncErr != nil {
			log.Error("recovery sync failed: %v", syncErr)
			err = errors.Join(err, fmt.Errorf("recovery sync failed: %w", syncErr))
		}
		return nil, err
	}

	notify.Successf(m.opts.Notifier, createdDuration, MsgCreated)
	if m.opts.Navigator != nil {
		if err := m.opts.Navigator.Open(ctx, m.lists.ListURL(list.Slug)); err != nil {
			log.Warn("could not open %s: %v", list.Slug, err)
		}
	}
	return list, nil
}

// create runs the steps up to and including the rename that commits the session.
func (m *Manager) create(ctx context.Context) (*lc.List, error) {
	base := BaseLabel(m.opts.Now(), m.opts.Mark)
	name, err := m.GenerateUniqueName(ctx, base, m.opts.StateFlag)
	if err != nil {
		return nil, err
	}

	slug, err := m.lists.CreateList(ctx, name, m.opts.Description, m.opts.Public)
	if err != nil {
		return nil, fmt.Errorf("failed to create list %q: %w", name, err)
	}
	log.Info("created %s (%s)", name, slug)

	catalog, err := m.catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	if _, err := m.populator.Populate(ctx, slug, catalog, name); err != nil {
		return nil, err
	}

	final, err := m.finish(ctx, slug, name)
	if err != nil {
		return nil, err
	}
	return &lc.List{Name: final, Slug: slug}, nil
}

// finish resets progress on a populated session and drops the state flag.
func (m *Manager) finish(ctx context.Context, slug, name string) (string, error) {
	if err := m.lists.ResetProgress(ctx, slug); err != nil {
		return "", fmt.Errorf("failed to reset %q: %w", name, err)
	}
	final := StripFlag(name, m.opts.StateFlag)
	if err := m.lists.RenameList(ctx, slug, final, m.opts.Description); err != nil {
		return "", fmt.Errorf("failed to rename %q: %w", name, err)
	}
	log.Info("session %s is ready", final)
	return final, nil
}

// Sync adds missing catalog problems to every managed list and finishes
// interrupted sessions. It does nothing when it already ran today unless an
// incomplete session exists. The cursor moves only after a complete pass.
func (m *Manager) Sync(ctx context.Context) (*SyncResult, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	started := m.opts.Now()
	today := m.today()

	last, err := m.cursor.LastSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync cursor: %w", err)
	}

	incomplete, err := m.IncompleteSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range incomplete {
		log.Info("found incomplete session %s", l.Name)
	}
	force := len(incomplete) > 0

	if last == today && !force {
		log.Debug("already synced today (%s)", today)
		return &SyncResult{Date: today, Skipped: true}, nil
	}

	managed, err := m.Managed(ctx)
	if err != nil {
		return nil, err
	}

	var catalog []string
	if len(managed) > 0 {
		catalog, err = m.catalog.FetchCatalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}
	}

	res := &SyncResult{
		RunID:  uuid.NewString(),
		Date:   today,
		Forced: force,
		Lists:  len(managed),
	}

	for _, l := range managed {
		items, err := m.lists.ListItems(ctx, l.Slug)
		if err != nil {
			return nil, fmt.Errorf("failed to list problems in %q: %w", l.Name, err)
		}

		if missing := Missing(catalog, items); len(missing) > 0 {
			n, err := m.populator.Populate(ctx, l.Slug, missing, l.Name)
			res.Added += n
			if err != nil {
				return nil, err
			}
		}

		if DeriveState(l.Name, m.opts.StateFlag) == InProgress {
			final, err := m.finish(ctx, l.Slug, l.Name)
			if err != nil {
				return nil, err
			}
			res.Completed = append(res.Completed, final)
		}
	}

	if res.Added > 0 {
		notify.Successf(m.opts.Notifier, addedDuration, MsgAdded, res.Added)
	}

	run := store.Run{
		ID:         res.RunID,
		Date:       today,
		StartedAt:  started,
		FinishedAt: m.opts.Now(),
		Lists:      res.Lists,
		Added:      res.Added,
		Completed:  len(res.Completed),
	}
	if err := m.cursor.CompleteSync(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sync: %w", err)
	}

	log.Info("sync %s: %d lists, %d problems added, %d sessions completed",
		res.RunID, res.Lists, res.Added, len(res.Completed))
	return res, nil
}

// Missing returns the catalog entries not in have, in catalog order.
func Missing(catalog, have []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}

	var missing []string
	for _, id := range catalog {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
