package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/holos-run/gamescout/internal/igdb"
)

// Fake client credentials accepted by Upstream.
const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
)

var (
	limitRe  = regexp.MustCompile(`limit (\d+);`)
	offsetRe = regexp.MustCompile(`offset (\d+);`)
)

// Request records a resource request received by Upstream.
type Request struct {
	Endpoint      string
	Body          string
	ClientID      string
	Authorization string
}

// Upstream is a fake identity endpoint and resource API backed by
// httptest.Server. It issues random bearer tokens and serves catalog
// collections and games with limit/offset paging.
type Upstream struct {
	Server *httptest.Server

	mu            sync.Mutex
	tokenLifetime int
	tokenStatus   int
	tokens        map[string]bool
	tokenCalls    int
	tokenGate     chan struct{}
	catalogs      map[string][]igdb.CatalogItem
	games         []igdb.Game
	failures      map[string]int
	requests      []Request
}

// NewUpstream starts a fake upstream that is closed when the test ends.
func NewUpstream(t testing.TB) *Upstream {
	t.Helper()

	u := &Upstream{
		tokenLifetime: 3600,
		tokens:        make(map[string]bool),
		catalogs:      make(map[string][]igdb.CatalogItem),
		failures:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", u.handleToken)
	mux.HandleFunc("POST /v4/{endpoint...}", u.handleResource)
	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Server.Close)

	return u
}

// TokenURL returns the identity endpoint URL.
func (u *Upstream) TokenURL() string {
	return u.Server.URL + "/oauth2/token"
}

// BaseURL returns the resource API root.
func (u *Upstream) BaseURL() string {
	return u.Server.URL + "/v4"
}

// SetTokenLifetime sets expires_in for issued tokens.
func (u *Upstream) SetTokenLifetime(seconds int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokenLifetime = seconds
}

// FailTokens makes the identity endpoint answer with status. Zero restores
// normal behavior.
func (u *Upstream) FailTokens(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokenStatus = status
}

// SetCatalog sets the records served for a catalog collection.
func (u *Upstream) SetCatalog(resource string, items []igdb.CatalogItem) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.catalogs[resource] = items
}

// SetGames sets the records served by the games collection.
func (u *Upstream) SetGames(games []igdb.Game) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.games = games
}

// FailEndpoint makes endpoint answer with status. Zero restores normal
// behavior.
func (u *Upstream) FailEndpoint(endpoint string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if status == 0 {
		delete(u.failures, endpoint)
		return
	}
	u.failures[endpoint] = status
}

// HoldTokens makes the identity endpoint block after accepting a request
// until the returned release function is called. Release is idempotent and
// also runs when the test ends.
func (u *Upstream) HoldTokens(t testing.TB) (release func()) {
	gate := make(chan struct{})
	u.mu.Lock()
	u.tokenGate = gate
	u.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			u.mu.Lock()
			u.tokenGate = nil
			u.mu.Unlock()
			close(gate)
		})
	}
	t.Cleanup(release)
	return release
}

// TokenCalls returns the number of identity exchanges served.
func (u *Upstream) TokenCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokenCalls
}

// Requests returns the resource requests received so far.
func (u *Upstream) Requests() []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Request(nil), u.requests...)
}

func (u *Upstream) handleToken(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.tokenCalls++
	gate := u.tokenGate
	u.mu.Unlock()

	if gate != nil {
		<-gate
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tokenStatus != 0 {
		http.Error(w, `{"status":`+strconv.Itoa(u.tokenStatus)+`,"message":"invalid client"}`, u.tokenStatus)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" ||
		r.PostForm.Get("client_id") != ClientID ||
		r.PostForm.Get("client_secret") != ClientSecret {
		http.Error(w, `{"status":403,"message":"invalid client secret"}`, http.StatusForbidden)
		return
	}

	token := uuid.New().String()
	u.tokens[token] = true

	writeJSON(w, map[string]interface{}{
		"access_token": token,
		"expires_in":   u.tokenLifetime,
		"token_type":   "bearer",
	})
}

func (u *Upstream) handleResource(w http.ResponseWriter, r *http.Request) {
	endpoint := r.PathValue("endpoint")
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	defer u.mu.Unlock()

	u.requests = append(u.requests, Request{
		Endpoint:      endpoint,
		Body:          string(body),
		ClientID:      r.Header.Get("Client-ID"),
		Authorization: r.Header.Get("Authorization"),
	})

	const bearer = "Bearer "
	auth := r.Header.Get("Authorization")
	if r.Header.Get("Client-ID") != ClientID || len(auth) <= len(bearer) || !u.tokens[auth[len(bearer):]] {
		http.Error(w, `{"message":"Authorization Failure"}`, http.StatusUnauthorized)
		return
	}
	if status, ok := u.failures[endpoint]; ok {
		http.Error(w, fmt.Sprintf(`{"message":"forced failure %d"}`, status), status)
		return
	}

	limit, offset := paging(string(body))

	switch endpoint {
	case igdb.ResourceGames:
		writeJSON(w, page(u.games, limit, offset))
	case igdb.ResourceGames + "/count":
		writeJSON(w, map[string]int{"count": len(u.games)})
	default:
		items, ok := u.catalogs[endpoint]
		if !ok {
			http.Error(w, `{"message":"unknown endpoint"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, page(items, limit, offset))
	}
}

func paging(body string) (limit, offset int) {
	limit = 10
	if m := limitRe.FindStringSubmatch(body); m != nil {
		limit, _ = strconv.Atoi(m[1])
	}
	if m := offsetRe.FindStringSubmatch(body); m != nil {
		offset, _ = strconv.Atoi(m[1])
	}
	return limit, offset
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Keywords generates n catalog items with distinct names.
func Keywords(n int) []igdb.CatalogItem {
	items := make([]igdb.CatalogItem, n)
	for i := range items {
		items[i] = igdb.CatalogItem{
			ID:   int64(i + 1),
			Name: fmt.Sprintf("keyword %05d", n-i),
			Slug: fmt.Sprintf("keyword-%05d", n-i),
		}
	}
	return items
}
