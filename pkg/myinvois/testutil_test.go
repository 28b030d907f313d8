package myinvois_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merbau/myinvois/pkg/cachex"
	"github.com/merbau/myinvois/pkg/httpx"
	"github.com/merbau/myinvois/pkg/myinvois"
)

// authority is a scripted stand-in for the e-invoicing API. It serves the
// token endpoint itself, counts every request, and delegates business
// endpoints to a per-test handler.
type authority struct {
	t   *testing.T
	srv *httptest.Server

	mu sync.Mutex

	// Token endpoint scripting.
	tokenRequests   int
	tokenExpiresIn  int64
	tokenScope      string
	tokenStatus     int    // non-zero forces a failure response
	tokenBody       string // body to serve with tokenStatus
	lastTokenForm   url.Values
	lastTokenHeader http.Header

	// Business endpoint scripting.
	apiRequests   []string // "METHOD /path"
	lastAPIHeader http.Header
	api           http.HandlerFunc
}

func newAuthority(t *testing.T) *authority {
	a := &authority{
		t:              t,
		tokenExpiresIn: 3600,
		tokenScope:     myinvois.RequiredScope,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", a.handleToken)
	mux.HandleFunc("/", a.handleAPI)

	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func (a *authority) handleToken(w http.ResponseWriter, r *http.Request) {
	require.Equal(a.t, http.MethodPost, r.Method)
	require.NoError(a.t, r.ParseForm())

	a.mu.Lock()
	a.tokenRequests++
	n := a.tokenRequests
	a.lastTokenForm = r.PostForm
	a.lastTokenHeader = r.Header.Clone()
	status, body := a.tokenStatus, a.tokenBody
	expiresIn, scope := a.tokenExpiresIn, a.tokenScope
	a.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	writeJSON(w, http.StatusOK, myinvois.TokenResponse{
		AccessToken: fmt.Sprintf("token-%d", n),
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Scope:       scope,
	})
}

func (a *authority) handleAPI(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.apiRequests = append(a.apiRequests, r.Method+" "+r.URL.Path)
	a.lastAPIHeader = r.Header.Clone()
	handler := a.api
	a.mu.Unlock()

	if handler == nil {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// scriptAPI installs the handler business endpoints are served by.
func (a *authority) scriptAPI(handler http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.api = handler
}

// scriptTokenFailure makes the token endpoint answer status/body instead of
// minting tokens.
func (a *authority) scriptTokenFailure(status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokenStatus = status
	a.tokenBody = body
}

func (a *authority) tokenCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenRequests
}

func (a *authority) apiCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.apiRequests)
}

func (a *authority) lastForm() url.Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastTokenForm
}

func (a *authority) lastTokenHeaders() http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastTokenHeader
}

func (a *authority) lastAPIHeaders() http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAPIHeader
}

// newTestClient builds a client against the scripted authority with a
// fast retry schedule so tests never sleep for real.
func newTestClient(t *testing.T, a *authority, opts ...myinvois.Option) *myinvois.Client {
	base := []myinvois.Option{
		myinvois.WithRetryPolicy(httpx.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		}),
	}
	client, err := myinvois.NewClient(a.srv.URL, "test-client-id", "test-client-secret", append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// recordingCache wraps an inner cache and records Put TTLs so tests can
// assert lifetime arithmetic.
type recordingCache struct {
	cachex.Cache
	mu      sync.Mutex
	putTTLs []time.Duration
}

func (rc *recordingCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	rc.mu.Lock()
	rc.putTTLs = append(rc.putTTLs, ttl)
	rc.mu.Unlock()
	return rc.Cache.Put(ctx, key, value, ttl)
}

func (rc *recordingCache) ttls() []time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]time.Duration(nil), rc.putTTLs...)
}
