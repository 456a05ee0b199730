package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/wallandteen/leetsession/internal/lc"
	"github.com/wallandteen/leetsession/internal/notify"
	"github.com/wallandteen/leetsession/internal/store"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fakeList struct {
	name   string
	slug   string
	items  []string
	resets int
}

// fakeService is an in-memory ListService and Catalog.
type fakeService struct {
	mu      sync.Mutex
	lists   []*fakeList
	catalog []string
	calls   map[string]int
	next    int

	// addErr, if set, decides the outcome of each AddItems call.
	addErr func(slug string, ids []string) error
	// failOnce makes the next call of the named operation fail.
	failOnce map[string]error
}

func newFakeService(catalog ...string) *fakeService {
	return &fakeService{
		catalog:  catalog,
		calls:    make(map[string]int),
		failOnce: make(map[string]error),
	}
}

func (f *fakeService) seed(name string, items ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	slug := fmt.Sprintf("seed%d", f.next)
	f.lists = append(f.lists, &fakeList{name: name, slug: slug, items: append([]string(nil), items...)})
	return slug
}

func (f *fakeService) get(slug string) *fakeList {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(slug)
}

func (f *fakeService) find(slug string) *fakeList {
	for _, l := range f.lists {
		if l.slug == slug {
			return l
		}
	}
	return nil
}

func (f *fakeService) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, l := range f.lists {
		out = append(out, l.name)
	}
	return out
}

func (f *fakeService) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter counts op and returns an injected failure, if any.
func (f *fakeService) enter(op string) error {
	f.calls[op]++
	if err, ok := f.failOnce[op]; ok {
		delete(f.failOnce, op)
		return err
	}
	return nil
}

func (f *fakeService) CreateList(ctx context.Context, name, description string, public bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("create"); err != nil {
		return "", err
	}
	f.next++
	slug := fmt.Sprintf("new%d", f.next)
	f.lists = append(f.lists, &fakeList{name: name, slug: slug})
	return slug, nil
}

func (f *fakeService) AddItems(ctx context.Context, slug string, ids []string) error {
	f.mu.Lock()
	if err := f.enter("add"); err != nil {
		f.mu.Unlock()
		return err
	}
	hook := f.addErr
	f.mu.Unlock()

	if hook != nil {
		if err := hook(slug, ids); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.find(slug)
	if l == nil {
		return &lc.RemoteError{Op: "batchAddQuestionsToFavorite", Messages: []string{"favorite not found"}}
	}
	have := make(map[string]bool, len(l.items))
	for _, id := range l.items {
		have[id] = true
	}
	for _, id := range ids {
		if !have[id] {
			have[id] = true
			l.items = append(l.items, id)
		}
	}
	return nil
}

func (f *fakeService) ResetProgress(ctx context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("reset"); err != nil {
		return err
	}
	if l := f.find(slug); l != nil {
		l.resets++
	}
	return nil
}

func (f *fakeService) RenameList(ctx context.Context, slug, name, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("rename"); err != nil {
		return err
	}
	if l := f.find(slug); l != nil {
		l.name = name
	}
	return nil
}

func (f *fakeService) ListMine(ctx context.Context) ([]lc.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("listMine"); err != nil {
		return nil, err
	}
	out := make([]lc.List, len(f.lists))
	for i, l := range f.lists {
		out[i] = lc.List{Name: l.name, Slug: l.slug}
	}
	return out, nil
}

func (f *fakeService) ListItems(ctx context.Context, slug string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("items"); err != nil {
		return nil, err
	}
	l := f.find(slug)
	if l == nil {
		return nil, nil
	}
	return append([]string(nil), l.items...), nil
}

func (f *fakeService) ListURL(slug string) string {
	return "https://leetcode.test/problem-list/" + slug
}

func (f *fakeService) FetchCatalog(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("catalog"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.catalog...), nil
}

// memCursor is an in-memory CursorStore.
type memCursor struct {
	mu   sync.Mutex
	date string
	runs []store.Run
	err  error
}

func (c *memCursor) LastSync(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date, nil
}

func (c *memCursor) CompleteSync(ctx context.Context, run store.Run) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.date = run.Date
	c.runs = append(c.runs, run)
	return nil
}

func (c *memCursor) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Open(ctx context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return nil
}

type harness struct {
	svc    *fakeService
	cursor *memCursor
	notes  *notify.Recorder
	nav    *recordingNavigator
	mgr    *Manager
}

func newHarness(svc *fakeService, opts Options) *harness {
	h := &harness{
		svc:    svc,
		cursor: &memCursor{},
		notes:  &notify.Recorder{},
		nav:    &recordingNavigator{},
	}
	opts.Notifier = h.notes
	opts.Navigator = h.nav
	if opts.Now == nil {
		opts.Now = fixedClock
	}
	h.mgr = NewManager(svc, svc, h.cursor, opts)
	return h
}

func rateLimited() error {
	return &lc.TransportError{Op: "batchAddQuestionsToFavorite", StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"}
}

func problems(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%04d", i)
	}
	return out
}
