package myinvois

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/merbau/myinvois/pkg/cachex"
	"github.com/merbau/myinvois/pkg/httpx"
	"github.com/merbau/myinvois/pkg/slogx"
)

// Environment base URLs published by the authority.
const (
	// SandboxBaseURL is the pre-production environment. Credentials and
	// documents there are throwaway.
	SandboxBaseURL = "https://preprod-api.myinvois.hasil.gov.my"

	// ProductionBaseURL is the live environment.
	ProductionBaseURL = "https://api.myinvois.hasil.gov.my"
)

// RequiredScope is the OAuth2 scope every e-invoicing token must carry. A
// grant that names scopes but omits this one is refused locally.
const RequiredScope = "InvoicingAPI"

const (
	tokenEndpointPath = "/connect/token"
	apiBasePath       = "/api/v1.0"
	onBehalfOfHeader  = "onbehalfof"

	// requestIDHeader carries a fresh ULID per call so a support ticket can
	// name the exact request; the logging transport picks the same id up.
	requestIDHeader = "X-Request-ID"

	// defaultTimeout bounds each HTTP round trip, token requests included.
	defaultTimeout = 30 * time.Second
)

// Client talks to the e-invoicing API: token lifecycle, document
// submissions, status polling, search, and taxpayer validation. A Client is
// safe for concurrent use; all token state is internal.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string

	httpClient *http.Client
	cache      cachex.Cache
	log        *slog.Logger
	limiter    *httpx.Limiter
	retry      httpx.RetryPolicy
	timeout    time.Duration

	// mu guards the token and the taxpayer context. Held across token
	// refresh so concurrent callers cannot trigger redundant grants.
	mu         sync.RWMutex
	token      *Token
	onBehalfOf string
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The caller's client is
// used as-is; no logging transport is wrapped around it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCache replaces the default in-process token cache. Use a Redis-backed
// cache to share tokens across processes, wrapped in cachex.NewEncrypted
// when the store is not private to this client.
func WithCache(cache cachex.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger attaches a structured logger. Without it the client is silent.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTimeout sets the per-request timeout applied to every API call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetryPolicy replaces the backoff schedule used by the submission path.
func WithRetryPolicy(p httpx.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithRateLimit throttles outbound calls client-side so bursts are smoothed
// before the authority answers 429.
func WithRateLimit(cfg httpx.RateLimitConfig) Option {
	return func(c *Client) {
		c.limiter = httpx.NewLimiter(cfg)
	}
}

// NewClient builds a Client for the given environment. baseURL is usually
// SandboxBaseURL or ProductionBaseURL; clientID and clientSecret come from
// the taxpayer's (or intermediary's) API registration.
func NewClient(baseURL, clientID, clientSecret string, opts ...Option) (*Client, error) {
	switch {
	case baseURL == "":
		return nil, errors.New("myinvois: baseURL is required")
	case clientID == "":
		return nil, errors.New("myinvois: clientID is required")
	case clientSecret == "":
		return nil, errors.New("myinvois: clientSecret is required")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		timeout:      defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = slogx.Nop()
	}
	if c.cache == nil {
		c.cache = cachex.NewMemory()
	}
	if c.retry == (httpx.RetryPolicy{}) {
		c.retry = httpx.DefaultRetryPolicy()
	}
	if c.httpClient == nil {
		// Per-request deadlines come from context, so the client itself
		// carries no timeout. The logging transport redacts credentials.
		c.httpClient = &http.Client{
			Transport: slogx.NewLogTransport(nil, c.log),
		}
	}

	return c, nil
}

// BaseURL returns the environment the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnBehalfOfTIN returns the taxpayer TIN the client currently acts for, or
// empty when acting as the credential owner directly.
func (c *Client) OnBehalfOfTIN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onBehalfOf
}

// IsIntermediary reports whether the client is in intermediary mode.
func (c *Client) IsIntermediary() bool {
	return c.OnBehalfOfTIN() != ""
}
