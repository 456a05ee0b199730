package lc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockList is a favorite list held by MockServer.
type MockList struct {
	Name        string
	Slug        string
	Description string
	Public      bool
	Items       []string
	Resets      int
}

// MockServer provides a fake LeetCode origin for testing: the GraphQL
// favorite operations plus the problem catalog, over in-memory state.
type MockServer struct {
	*httptest.Server
	mu        sync.Mutex
	lists     []*MockList
	catalog   []string
	nextSlug  int
	calls     map[string]int
	batches   [][]string
	nextErr   *mockError
	mutErrs   map[string]string
	addHook   func(slug string, ids []string) int
	csrfToken string
}

type mockError struct {
	status int
	body   string
}

// NewMockServer creates a mock LeetCode server.
func NewMockServer() *MockServer {
	m := &MockServer{
		calls:   make(map[string]int),
		mutErrs: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(graphqlPath, m.handleGraphQL)
	mux.HandleFunc(catalogPath, m.handleCatalog)

	m.Server = httptest.NewServer(mux)
	return m
}

// RequireCSRF makes the server reject requests whose x-csrftoken differs from token.
func (m *MockServer) RequireCSRF(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.csrfToken = token
}

// SetCatalog replaces the problem catalog.
func (m *MockServer) SetCatalog(slugs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = append([]string(nil), slugs...)
}

// AddList seeds a favorite list.
func (m *MockServer) AddList(name, slug string, items ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = append(m.lists, &MockList{Name: name, Slug: slug, Items: append([]string(nil), items...)})
}

// List returns a copy of the list with slug, or nil.
func (m *MockServer) List(slug string) *MockList {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.find(slug)
	if l == nil {
		return nil
	}
	cp := *l
	cp.Items = append([]string(nil), l.Items...)
	return &cp
}

// Lists returns copies of every list in creation order.
func (m *MockServer) Lists() []MockList {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockList, len(m.lists))
	for i, l := range m.lists {
		out[i] = *l
		out[i].Items = append([]string(nil), l.Items...)
	}
	return out
}

// Calls returns how many times operation op was requested.
func (m *MockServer) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// AddedBatches returns every id batch that was accepted by batchAddQuestionsToFavorite.
func (m *MockServer) AddedBatches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.batches...)
}

// SetNextError makes the next request fail with the given HTTP status and body.
func (m *MockServer) SetNextError(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErr = &mockError{status: status, body: body}
}

// SetMutationError makes the next call of mutation op answer ok:false with message.
func (m *MockServer) SetMutationError(op, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutErrs[op] = message
}

// SetAddHook installs a function consulted on every add; a non-zero return
// is sent back as the HTTP status instead of processing the batch.
func (m *MockServer) SetAddHook(fn func(slug string, ids []string) int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addHook = fn
}

// Reset clears all lists, counters and injected errors.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = nil
	m.catalog = nil
	m.nextSlug = 0
	m.calls = make(map[string]int)
	m.batches = nil
	m.nextErr = nil
	m.mutErrs = make(map[string]string)
	m.addHook = nil
}

func (m *MockServer) find(slug string) *MockList {
	for _, l := range m.lists {
		if l.Slug == slug {
			return l
		}
	}
	return nil
}

// takeError pops an injected transport error, if any.
func (m *MockServer) takeError(w http.ResponseWriter) bool {
	if m.nextErr == nil {
		return false
	}
	e := m.nextErr
	m.nextErr = nil
	http.Error(w, e.body, e.status)
	return true
}

func (m *MockServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["catalog"]++
	if m.takeError(w) {
		return
	}

	type stat struct {
		TitleSlug string `json:"question__title_slug"`
	}
	type pair struct {
		Stat stat `json:"stat"`
	}
	pairs := make([]pair, len(m.catalog))
	for i, s := range m.catalog {
		pairs[i] = pair{Stat: stat{TitleSlug: s}}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"stat_status_pairs": pairs})
}

type mockRequest struct {
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
}

type mockVars struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Public        bool     `json:"isPublicFavorite"`
	FavoriteSlug  string   `json:"favoriteSlug"`
	QuestionSlugs []string `json:"questionSlugs"`
	Limit         int      `json:"limit"`
}

func (m *MockServer) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req mockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	var vars mockVars
	if len(req.Variables) > 0 {
		if err := json.Unmarshal(req.Variables, &vars); err != nil {
			http.Error(w, "invalid variables", http.StatusBadRequest)
			return
		}
	}

	m.mu.Lock()
	m.calls[req.OperationName]++
	if m.takeError(w) {
		m.mu.Unlock()
		return
	}
	if m.csrfToken != "" && r.Header.Get("x-csrftoken") != m.csrfToken {
		m.mu.Unlock()
		http.Error(w, "CSRF verification failed", http.StatusForbidden)
		return
	}
	hook := m.addHook
	m.mu.Unlock()

	// The hook runs unlocked so concurrent adds can overlap like real requests.
	if req.OperationName == "batchAddQuestionsToFavorite" && hook != nil {
		if status := hook(vars.FavoriteSlug, vars.QuestionSlugs); status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var data any
	switch req.OperationName {
	case "createEmptyFavorite":
		data = map[string]any{"createEmptyFavorite": m.createList(vars)}
	case "batchAddQuestionsToFavorite":
		data = map[string]any{"batchAddQuestionsToFavorite": m.addItems(vars)}
	case "resetFavoriteSessionV2":
		data = map[string]any{"resetFavoriteSessionV2": m.resetProgress(vars)}
	case "updateFavoriteNameDescriptionV2":
		data = map[string]any{"updateFavoriteNameDescriptionV2": m.rename(vars)}
	case "myFavoriteList":
		favorites := make([]List, len(m.lists))
		for i, l := range m.lists {
			favorites[i] = List{Name: l.Name, Slug: l.Slug}
		}
		data = map[string]any{"myCreatedFavoriteList": map[string]any{"favorites": favorites}}
	case "favoriteQuestionList":
		l := m.find(vars.FavoriteSlug)
		if l == nil {
			writeGraphQL(w, nil, "favorite not found")
			return
		}
		items := l.Items
		if vars.Limit > 0 && len(items) > vars.Limit {
			items = items[:vars.Limit]
		}
		questions := make([]map[string]string, len(items))
		for i, s := range items {
			questions[i] = map[string]string{"titleSlug": s}
		}
		data = map[string]any{"favoriteQuestionList": map[string]any{"questions": questions}}
	default:
		writeGraphQL(w, nil, fmt.Sprintf("unknown operation %q", req.OperationName))
		return
	}

	writeGraphQL(w, data)
}

func writeGraphQL(w http.ResponseWriter, data any, errs ...string) {
	resp := map[string]any{"data": data}
	if len(errs) > 0 {
		list := make([]map[string]string, len(errs))
		for i, e := range errs {
			list[i] = map[string]string{"message": e}
		}
		resp["errors"] = list
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// result builds an ok/error payload, consuming any injected mutation error for op.
func (m *MockServer) result(op string, failure string) map[string]any {
	if msg, ok := m.mutErrs[op]; ok {
		delete(m.mutErrs, op)
		if msg == "" {
			return map[string]any{"ok": false, "error": nil}
		}
		failure = msg
	}
	if failure != "" {
		return map[string]any{"ok": false, "error": failure}
	}
	return map[string]any{"ok": true, "error": nil}
}

func (m *MockServer) createList(v mockVars) map[string]any {
	res := m.result("createEmptyFavorite", "")
	if res["ok"] != true {
		return res
	}
	m.nextSlug++
	slug := fmt.Sprintf("ls%06d", m.nextSlug)
	m.lists = append(m.lists, &MockList{Name: v.Name, Slug: slug, Description: v.Description, Public: v.Public})
	res["favoriteSlug"] = slug
	return res
}

func (m *MockServer) addItems(v mockVars) map[string]any {
	l := m.find(v.FavoriteSlug)
	if l == nil {
		return m.result("batchAddQuestionsToFavorite", "favorite not found")
	}
	res := m.result("batchAddQuestionsToFavorite", "")
	if res["ok"] != true {
		return res
	}

	have := make(map[string]bool, len(l.Items))
	for _, s := range l.Items {
		have[s] = true
	}
	for _, s := range v.QuestionSlugs {
		if !have[s] {
			have[s] = true
			l.Items = append(l.Items, s)
		}
	}
	m.batches = append(m.batches, append([]string(nil), v.QuestionSlugs...))
	return res
}

func (m *MockServer) resetProgress(v mockVars) map[string]any {
	l := m.find(v.FavoriteSlug)
	if l == nil {
		return m.result("resetFavoriteSessionV2", "favorite not found")
	}
	res := m.result("resetFavoriteSessionV2", "")
	if res["ok"] == true {
		l.Resets++
	}
	return res
}

func (m *MockServer) rename(v mockVars) map[string]any {
	l := m.find(v.FavoriteSlug)
	if l == nil {
		return m.result("updateFavoriteNameDescriptionV2", "favorite not found")
	}
	res := m.result("updateFavoriteNameDescriptionV2", "")
	if res["ok"] == true {
		l.Name = v.Name
		l.Description = v.Description
	}
	return res
}
