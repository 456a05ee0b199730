// Package lc provides a client for the LeetCode favorite-list GraphQL API and
// the public problem catalog.
package lc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wallandteen/leetsession/internal/logger"
)

const (
	// DefaultBaseURL is the LeetCode origin all endpoints hang off.
	DefaultBaseURL = "https://leetcode.com"

	// DefaultListLimit caps favoriteQuestionList; large enough for the whole catalog.
	DefaultListLimit = 10000

	graphqlPath = "/graphql/"
	catalogPath = "/api/problems/all/"

	// maxErrorBody bounds how much of a failed response ends up in a TransportError.
	maxErrorBody = 512
)

var log = logger.Named("lc")

// List is a favorite list owned by the current user.
type List struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Client talks to the LeetCode GraphQL endpoint on behalf of one logged-in user.
type Client struct {
	creds      Credentials
	baseURL    string
	listLimit  int
	httpClient *http.Client
}

// New creates a client for leetcode.com.
func New(creds Credentials) *Client {
	return NewWithBaseURL(creds, DefaultBaseURL)
}

// NewWithBaseURL creates a client for a custom origin (mock servers, mirrors).
func NewWithBaseURL(creds Credentials, baseURL string) *Client {
	return &Client{
		creds:      creds,
		baseURL:    strings.TrimRight(baseURL, "/"),
		listLimit:  DefaultListLimit,
		httpClient: &http.Client{},
	}
}

// SetTimeout sets a per-request timeout. Zero leaves the transport default.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// SetListLimit overrides the favoriteQuestionList limit.
func (c *Client) SetListLimit(n int) {
	if n > 0 {
		c.listLimit = n
	}
}

// BaseURL returns the origin this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListURL returns the page where a favorite list is browsed.
func (c *Client) ListURL(slug string) string {
	return fmt.Sprintf("%s/problem-list/%s", c.baseURL, slug)
}

type graphqlRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// mutationResult is the ok/error pair every favorite mutation returns.
type mutationResult struct {
	OK    bool    `json:"ok"`
	Error *string `json:"error"`
}

func (r mutationResult) check(op string) error {
	if r.OK {
		return nil
	}
	msg := op + " failed"
	if r.Error != nil && *r.Error != "" {
		msg = *r.Error
	}
	return &RemoteError{Op: op, Messages: []string{msg}}
}

// newRequest builds an authenticated request against the LeetCode origin.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Referer", c.baseURL+"/")
	if cookie := c.creds.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if c.creds.CSRFToken != "" {
		req.Header.Set("x-csrftoken", c.creds.CSRFToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req and turns non-2xx responses into a TransportError.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// graphql runs one named operation and decodes its data into out.
func (c *Client) graphql(ctx context.Context, op, query string, variables map[string]any, out any) error {
	if variables == nil {
		variables = map[string]any{}
	}
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables, OperationName: op})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	log.Debug("graphql %s (%d bytes)", op, len(payload))

	req, err := c.newRequest(ctx, http.MethodPost, graphqlPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var gr graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	if len(gr.Errors) > 0 {
		msgs := make([]string, len(gr.Errors))
		for i, e := range gr.Errors {
			msgs[i] = e.Message
		}
		return &RemoteError{Op: op, Messages: msgs}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("%s: failed to decode data: %w", op, err)
	}
	return nil
}

const createListQuery = `mutation createEmptyFavorite($name: String!, $description: String, $favoriteType: FavoriteTypeEnum!, $isPublicFavorite: Boolean) {
  createEmptyFavorite(name: $name, description: $description, favoriteType: $favoriteType, isPublicFavorite: $isPublicFavorite) {
    ok
    error
    favoriteSlug
  }
}`

// CreateList creates an empty favorite list and returns its slug.
func (c *Client) CreateList(ctx context.Context, name, description string, public bool) (string, error) {
	var data struct {
		CreateEmptyFavorite struct {
			mutationResult
			FavoriteSlug string `json:"favoriteSlug"`
		} `json:"createEmptyFavorite"`
	}
	err := c.graphql(ctx, "createEmptyFavorite", createListQuery, map[string]any{
		"name":             name,
		"description":      description,
		"favoriteType":     "NORMAL",
		"isPublicFavorite": public,
	}, &data)
	if err != nil {
		return "", err
	}

	res := data.CreateEmptyFavorite
	if err := res.check("createEmptyFavorite"); err != nil {
		return "", err
	}
	if res.FavoriteSlug == "" {
		return "", &RemoteError{Op: "createEmptyFavorite", Messages: []string{"no favorite slug returned"}}
	}
	return res.FavoriteSlug, nil
}

const addItemsQuery = `mutation batchAddQuestionsToFavorite($favoriteSlug: String!, $questionSlugs: [String]!) {
  batchAddQuestionsToFavorite(favoriteSlug: $favoriteSlug, questionSlugs: $questionSlugs) {
    ok
    error
  }
}`

// AddItems adds a batch of problem slugs to a list. The service ignores
// slugs that are already present; callers chunk large sets.
func (c *Client) AddItems(ctx context.Context, slug string, ids []string) error {
	var data struct {
		Result mutationResult `json:"batchAddQuestionsToFavorite"`
	}
	err := c.graphql(ctx, "batchAddQuestionsToFavorite", addItemsQuery, map[string]any{
		"favoriteSlug":  slug,
		"questionSlugs": ids,
	}, &data)
	if err != nil {
		return err
	}
	return data.Result.check("batchAddQuestionsToFavorite")
}

const resetProgressQuery = `mutation resetFavoriteSessionV2($favoriteSlug: String!, $deleteSyncedCode: Boolean) {
  resetFavoriteSessionV2(favoriteSlug: $favoriteSlug, deleteSyncedCode: $deleteSyncedCode) {
    ok
    error
  }
}`

// ResetProgress clears solving progress tied to a list without removing items.
func (c *Client) ResetProgress(ctx context.Context, slug string) error {
	var data struct {
		Result mutationResult `json:"resetFavoriteSessionV2"`
	}
	err := c.graphql(ctx, "resetFavoriteSessionV2", resetProgressQuery, map[string]any{
		"favoriteSlug":     slug,
		"deleteSyncedCode": true,
	}, &data)
	if err != nil {
		return err
	}
	return data.Result.check("resetFavoriteSessionV2")
}

const renameListQuery = `mutation updateFavoriteNameDescriptionV2($favoriteSlug: String!, $name: String!, $description: String) {
  updateFavoriteNameDescriptionV2(favoriteSlug: $favoriteSlug, name: $name, description: $description) {
    ok
    error
  }
}`

// RenameList sets a list's name and description.
func (c *Client) RenameList(ctx context.Context, slug, name, description string) error {
	var data struct {
		Result mutationResult `json:"updateFavoriteNameDescriptionV2"`
	}
	err := c.graphql(ctx, "updateFavoriteNameDescriptionV2", renameListQuery, map[string]any{
		"favoriteSlug": slug,
		"name":         name,
		"description":  description,
	}, &data)
	if err != nil {
		return err
	}
	if err := data.Result.check("updateFavoriteNameDescriptionV2"); err != nil {
		return err
	}
	log.Debug("renamed %s to %q", slug, name)
	return nil
}

const listMineQuery = `query myFavoriteList {
  myCreatedFavoriteList {
    favorites {
      name
      slug
    }
  }
}`

// ListMine returns every favorite list created by the current user, in the
// order the service reports them.
func (c *Client) ListMine(ctx context.Context) ([]List, error) {
	var data struct {
		MyCreatedFavoriteList struct {
			Favorites []List `json:"favorites"`
		} `json:"myCreatedFavoriteList"`
	}
	if err := c.graphql(ctx, "myFavoriteList", listMineQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.MyCreatedFavoriteList.Favorites, nil
}

const listItemsQuery = `query favoriteQuestionList($favoriteSlug: String!, $limit: Int) {
  favoriteQuestionList(favoriteSlug: $favoriteSlug, limit: $limit) {
    questions {
      titleSlug
    }
  }
}`

// ListItems returns the problem slugs currently in a list.
func (c *Client) ListItems(ctx context.Context, slug string) ([]string, error) {
	var data struct {
		FavoriteQuestionList struct {
			Questions []struct {
				TitleSlug string `json:"titleSlug"`
			} `json:"questions"`
		} `json:"favoriteQuestionList"`
	}
	err := c.graphql(ctx, "favoriteQuestionList", listItemsQuery, map[string]any{
		"favoriteSlug": slug,
		"limit":        c.listLimit,
	}, &data)
	if err != nil {
		return nil, err
	}

	questions := data.FavoriteQuestionList.Questions
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.TitleSlug
	}
	return ids, nil
}

type catalogResponse struct {
	StatStatusPairs []struct {
		Stat struct {
			TitleSlug string `json:"question__title_slug"`
		} `json:"stat"`
	} `json:"stat_status_pairs"`
}

// FetchCatalog returns the slug of every problem on the platform.
func (c *Client) FetchCatalog(ctx context.Context) ([]string, error) {
	log.Debug("loading problem catalog")

	req, err := c.newRequest(ctx, http.MethodGet, catalogPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, "catalog")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cr catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("catalog: failed to decode response: %w", err)
	}

	slugs := make([]string, 0, len(cr.StatStatusPairs))
	for _, p := range cr.StatStatusPairs {
		if p.Stat.TitleSlug != "" {
			slugs = append(slugs, p.Stat.TitleSlug)
		}
	}

	log.Info("loaded %d problems", len(slugs))
	return slugs, nil
}
