// Package vivialtest runs an in-memory VivialConnect API for tests. The
// server verifies every request signature the way the production service
// does, stores resources per collection and answers with root-keyed JSON
// bodies.
package vivialtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s0up4200/vivialconnect/inflect"
	"github.com/s0up4200/vivialconnect/requestor"
)

const (
	// BasePath is the path prefix every API route is mounted under.
	BasePath = "/api/v1.0"

	DefaultAPIKey    = "test-api-key"
	DefaultAPISecret = "test-api-secret"
	DefaultAccountID = "10001"
)

// Request is a recorded, successfully authenticated API call.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type failure struct {
	status int
	body   string
}

// Server is a fake VivialConnect API backed by httptest.Server.
type Server struct {
	*httptest.Server

	APIKey    string
	APISecret string
	AccountID string

	mu          sync.Mutex
	nextID      int
	collections map[string]*collection
	bulks       []*bulk
	numberPool  []map[string]any
	logs        []map[string]any
	requests    []Request
	failures    []failure
	now         func() time.Time
}

// New starts a server and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := NewServer()
	t.Cleanup(s.Close)
	return s
}

// NewServer starts a server the caller must Close.
func NewServer() *Server {
	s := &Server{
		APIKey:      DefaultAPIKey,
		APISecret:   DefaultAPISecret,
		AccountID:   DefaultAccountID,
		nextID:      1000,
		collections: make(map[string]*collection),
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.seedAccount()
	s.Server = httptest.NewServer(s.routes())
	return s
}

// BaseURL is the value to pass to requestor.WithBaseURL.
func (s *Server) BaseURL() string {
	return s.URL + BasePath
}

// Credentials returns credentials accepted by the server.
func (s *Server) Credentials() requestor.Credentials {
	return requestor.Credentials{
		APIKey:    s.APIKey,
		APISecret: s.APISecret,
		AccountID: s.AccountID,
	}
}

// Requests returns every authenticated request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent authenticated request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// FailNext makes the next authenticated request fail with status and body.
// Calls queue up.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, body: body})
}

// Seed stores attrs in the named collection and returns the assigned id.
// An existing "id" attribute is kept.
func (s *Server) Seed(plural string, attrs map[string]any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(plural, attrs)
}

// Get returns a stored resource, for assertions.
func (s *Server) Get(plural string, id any) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.collection(plural).get(fmt.Sprint(id))
	if !ok {
		return nil, false
	}
	return copyAttrs(item), true
}

// AddAvailableNumber offers a number through the available numbers search.
func (s *Server) AddAvailableNumber(attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numberPool = append(s.numberPool, copyAttrs(attrs))
}

// AddLog appends a log item returned by the logs endpoints.
func (s *Server) AddLog(attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, copyAttrs(attrs))
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authenticate)

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/accounts.json", s.handleList("accounts"))
		r.Get("/accounts/count.json", s.handleCount("accounts"))
		r.Get("/accounts/{accountID}.json", s.handleGetAccount)
		r.Put("/accounts/{accountID}.json", s.handleUpdateAccount)
		r.Get("/accounts/{accountID}/status.json", s.handleBillingStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccount)

			r.Post("/accounts/{accountID}/messages/bulk.json", s.handleSendBulk)
			r.Get("/accounts/{accountID}/messages/bulk.json", s.handleListBulks)
			r.Get("/accounts/{accountID}/messages/bulk/{bulkID}.json", s.handleBulkMessages)
			r.Get("/accounts/{accountID}/messages/{messageID}/attachments.json", s.handleListAttachments)
			r.Post("/accounts/{accountID}/messages/{messageID}/attachments.json", s.handleCreateAttachment)
			r.Get("/accounts/{accountID}/messages/{messageID}/attachments/count.json", s.handleCountAttachments)
			r.Get("/accounts/{accountID}/messages/{messageID}/attachments/{id}.json", s.handleGetAttachment)
			r.Put("/accounts/{accountID}/messages/{messageID}/attachments/{id}.json", s.handleUpdateAttachment)
			r.Delete("/accounts/{accountID}/messages/{messageID}/attachments/{id}.json", s.handleDeleteAttachment)

			r.Get("/accounts/{accountID}/phone_numbers/available/{country}/{numberType}.json", s.handleAvailableNumbers)
			r.Get("/accounts/{accountID}/phone_numbers/lookup.json", s.handleLookup)
			r.Get("/accounts/{accountID}/phone_numbers/tags.json", s.handleTaggedNumbers)
			r.Delete("/accounts/{accountID}/phone_numbers/{id}/tags.json", s.handleRemoveTag)

			r.Get("/accounts/{accountID}/users/{userID}/profile/credentials.json", s.handleListCredentials)
			r.Post("/accounts/{accountID}/users/{userID}/profile/credentials.json", s.handleCreateCredential)
			r.Get("/accounts/{accountID}/users/{userID}/profile/credentials/count.json", s.handleCountCredentials)
			r.Get("/accounts/{accountID}/users/{userID}/profile/credentials/{id}.json", s.handleGetCredential)
			r.Put("/accounts/{accountID}/users/{userID}/profile/credentials/{id}.json", s.handleUpdateCredential)
			r.Delete("/accounts/{accountID}/users/{userID}/profile/credentials/{id}.json", s.handleDeleteCredential)

			r.Get("/accounts/{accountID}/logs.json", s.handleLogs)
			r.Get("/accounts/{accountID}/logs/aggregate.json", s.handleAggregateLogs)

			r.Get("/accounts/{accountID}/{plural}.json", s.handleGenericList)
			r.Post("/accounts/{accountID}/{plural}.json", s.handleGenericCreate)
			r.Get("/accounts/{accountID}/{plural}/count.json", s.handleGenericCount)
			r.Get("/accounts/{accountID}/{plural}/{id}.json", s.handleGenericGet)
			r.Put("/accounts/{accountID}/{plural}/{id}.json", s.handleGenericUpdate)
			r.Delete("/accounts/{accountID}/{plural}/{id}.json", s.handleGenericDelete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// authenticate verifies the HMAC signature, records the request and
// applies queued failures.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		_, err = requestor.VerifyRequest(r, body, func(apiKey string) (string, bool) {
			return s.APISecret, apiKey == s.APIKey
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		var fail *failure
		if len(s.failures) > 0 {
			fail = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			w.Write([]byte(fail.body))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "accountID") != s.AccountID {
			writeError(w, http.StatusForbidden, "account mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) seedAccount() {
	id, _ := strconv.Atoi(s.AccountID)
	s.insert("accounts", map[string]any{
		"id":           id,
		"account_id":   nil,
		"company_name": "Vivial Connect",
		"active":       true,
	})
}

// collection keeps resources in insertion order
type collection struct {
	items map[string]map[string]any
	order []string
}

func (c *collection) get(id string) (map[string]any, bool) {
	item, ok := c.items[id]
	return item, ok
}

func (c *collection) put(id string, attrs map[string]any) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = attrs
}

func (c *collection) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *collection) list(match func(map[string]any) bool) []any {
	out := make([]any, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if match == nil || match(item) {
			out = append(out, copyAttrs(item))
		}
	}
	return out
}

func (s *Server) collection(plural string) *collection {
	c, ok := s.collections[plural]
	if !ok {
		c = &collection{items: make(map[string]map[string]any)}
		s.collections[plural] = c
	}
	return c
}

// insert stores attrs with timestamps and a fresh id. Callers hold s.mu.
func (s *Server) insert(plural string, attrs map[string]any) int {
	item := copyAttrs(attrs)
	id, ok := asInt(item["id"])
	if !ok || id == 0 {
		s.nextID++
		id = s.nextID
	}
	item["id"] = id
	now := s.now().Format("2006-01-02T15:04:05")
	if _, ok := item["date_created"]; !ok {
		item["date_created"] = now
	}
	item["date_modified"] = now
	s.collection(plural).put(strconv.Itoa(id), item)
	return id
}

func (s *Server) accountIDValue() any {
	if id, err := strconv.Atoi(s.AccountID); err == nil {
		return id
	}
	return s.AccountID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// decodeRoot reads a JSON body and strips the root key when it matches root.
func decodeRoot(r *http.Request, root string) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	decoded, err := inflect.JSONToMap(body)
	if err != nil {
		return nil, err
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object body, got %T", decoded)
	}
	if root != "" {
		if inner, ok := m[root].(map[string]any); ok {
			return inner, nil
		}
	}
	return m, nil
}

func copyAttrs(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = copyAttrs(t)
		case []any:
			items := make([]any, len(t))
			for i, item := range t {
				if mm, ok := item.(map[string]any); ok {
					items[i] = copyAttrs(mm)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
