package myinvois

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/merbau/myinvois/pkg/cryptox"
	"github.com/merbau/myinvois/pkg/idx"
	"github.com/merbau/myinvois/pkg/jwtx"
)

// tokenRefreshBuffer is subtracted from a token's lifetime everywhere it is
// checked: a token within five minutes of expiry is treated as already
// stale, so no request is ever sent with a token about to die mid-flight.
const tokenRefreshBuffer = 300 * time.Second

// live reports whether the token is still usable at now, refresh buffer
// applied. A nil token is never live.
func (t *Token) live(now time.Time) bool {
	return t != nil && now.Before(t.ExpiresAt.Add(-tokenRefreshBuffer))
}

// tokenCacheKey derives the cache key for the given taxpayer context. The
// key is a fingerprint so client IDs and TINs never appear verbatim in a
// shared cache; distinct contexts can never collide.
func (c *Client) tokenCacheKey(tin string) string {
	return "myinvois:token:" + cryptox.Fingerprint(c.clientID, tin)
}

// Authenticate returns a live access token, in order of preference: the one
// already in memory, one from the token cache, or a fresh grant from the
// token endpoint. Concurrent callers share a single refresh.
func (c *Client) Authenticate(ctx context.Context) (*Token, error) {
	// Fast path: a live token needs only a read lock.
	c.mu.RLock()
	if tok := c.token; tok.live(time.Now()) {
		c.mu.RUnlock()
		return tok, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the write lock; another goroutine may
	// have refreshed while we waited.
	if tok := c.token; tok.live(time.Now()) {
		return tok, nil
	}

	tin := c.onBehalfOf

	if tok := c.lookupCached(ctx, tin); tok != nil {
		c.token = tok
		return tok, nil
	}

	tok, err := c.requestToken(ctx, tin)
	if err != nil {
		return nil, err
	}

	c.storeCached(ctx, tin, tok)
	c.token = tok
	return tok, nil
}

// GetAccessToken returns a bearer token string, authenticating first when no
// live token is held.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	tok, err := c.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// HasValidToken reports whether a usable token exists in memory or in the
// cache, without any network traffic. A cache hit is promoted to memory so
// the next call takes the fast path.
func (c *Client) HasValidToken(ctx context.Context) bool {
	c.mu.RLock()
	if c.token.live(time.Now()) {
		c.mu.RUnlock()
		return true
	}
	tin := c.onBehalfOf
	c.mu.RUnlock()

	tok := c.lookupCached(ctx, tin)
	if tok == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Promote only if the context has not switched underneath us.
	if c.onBehalfOf == tin && !c.token.live(time.Now()) {
		c.token = tok
	}
	return true
}

// OnBehalfOf switches the client into intermediary mode for the given
// taxpayer. The context switch and the invalidation of the previous token
// happen under one lock, so no caller can pair the new TIN with a token
// minted for the old one.
func (c *Client) OnBehalfOf(ctx context.Context, tin string) error {
	if err := ValidateTIN(tin); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onBehalfOf == tin {
		return nil
	}

	previous := c.onBehalfOf
	c.onBehalfOf = tin
	c.token = nil

	if err := c.cache.Forget(ctx, c.tokenCacheKey(previous)); err != nil {
		c.log.Warn("failed to forget cached token for previous taxpayer context", "error", err)
	}

	c.log.Info("taxpayer context switched", "onbehalfof", tin)
	return nil
}

// invalidateToken drops the in-memory token and its cache entry. Called on
// any 401 so the next operation authenticates from scratch.
func (c *Client) invalidateToken(ctx context.Context) {
	c.mu.Lock()
	tin := c.onBehalfOf
	c.token = nil
	c.mu.Unlock()

	if err := c.cache.Forget(ctx, c.tokenCacheKey(tin)); err != nil {
		c.log.Warn("failed to forget cached token after 401", "error", err)
	}
}

// ============================================================================
// Token Cache
// ============================================================================

// cachedToken is the JSON form a token takes inside the cache.
type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scopes      []string  `json:"scopes,omitempty"`
}

// lookupCached returns a live token from the cache, or nil. Cache failures
// degrade to a miss; they must never fail an API call.
func (c *Client) lookupCached(ctx context.Context, tin string) *Token {
	key := c.tokenCacheKey(tin)

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("token cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var stored cachedToken
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		// Unreadable entries are evicted rather than left to fail again.
		_ = c.cache.Forget(ctx, key)
		return nil
	}

	tok := &Token{
		AccessToken: stored.AccessToken,
		TokenType:   stored.TokenType,
		ExpiresAt:   stored.ExpiresAt,
		Scopes:      stored.Scopes,
	}
	if !tok.live(time.Now()) {
		return nil
	}
	return tok
}

// storeCached writes a token to the cache with a TTL that ends when the
// refresh buffer starts, so the cache can never serve a token the client
// would refuse to use.
func (c *Client) storeCached(ctx context.Context, tin string, tok *Token) {
	ttl := time.Until(tok.ExpiresAt) - tokenRefreshBuffer
	if ttl <= 0 {
		return
	}

	payload, err := json.Marshal(cachedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tok.ExpiresAt,
		Scopes:      tok.Scopes,
	})
	if err != nil {
		return
	}

	if err := c.cache.Put(ctx, c.tokenCacheKey(tin), string(payload), ttl); err != nil {
		c.log.Warn("token cache write failed", "error", err)
	}
}

// ============================================================================
// Token Endpoint
// ============================================================================

// requestToken performs the OAuth2 client-credentials grant. In
// intermediary mode the taxpayer TIN rides along in the onbehalfof header,
// binding the issued token to that taxpayer.
func (c *Client) requestToken(ctx context.Context, tin string) (*Token, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {RequiredScope},
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+tokenEndpointPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, idx.New().String())
	if tin != "" {
		req.Header.Set(onBehalfOfHeader, tin)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "token request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "token request", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyTokenFailure(resp, body)
	}

	var grant TokenResponse
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, &AuthenticationError{
			StatusCode: resp.StatusCode,
			Message:    "token endpoint returned malformed JSON",
		}
	}

	tok, err := tokenFromGrant(&grant, time.Now())
	if err != nil {
		return nil, err
	}

	// The access token is an opaque string as far as the contract goes,
	// but in practice it is a JWT; surface its claims at debug level.
	if info, err := jwtx.Introspect(tok.AccessToken); err == nil {
		c.log.Debug("authenticated",
			"expires_at", tok.ExpiresAt,
			"token_expires_at", info.ExpiresAt,
			"subject", info.Subject,
			"onbehalfof", tin,
		)
	} else {
		c.log.Debug("authenticated", "expires_at", tok.ExpiresAt, "onbehalfof", tin)
	}

	return tok, nil
}

// tokenFromGrant validates the grant against the authority's contract and
// converts the relative lifetime to an absolute expiry.
func tokenFromGrant(grant *TokenResponse, now time.Time) (*Token, error) {
	switch {
	case grant.AccessToken == "":
		return nil, &AuthenticationError{Message: "token response is missing access_token"}
	case !strings.EqualFold(grant.TokenType, "Bearer"):
		return nil, &AuthenticationError{
			Message: fmt.Sprintf("token response has unexpected token_type %q", grant.TokenType),
		}
	case grant.ExpiresIn <= 0:
		return nil, &AuthenticationError{Message: "token response is missing expires_in"}
	}

	scopes := strings.Fields(grant.Scope)
	if grant.Scope != "" && !containsScope(scopes, RequiredScope) {
		return nil, &AuthenticationError{
			Code:    ErrorCodeInvalidScope,
			Message: fmt.Sprintf("granted scope %q does not include %s", grant.Scope, RequiredScope),
		}
	}

	return &Token{
		AccessToken: grant.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		Scopes:      scopes,
	}, nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
