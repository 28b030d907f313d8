package myinvois

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", &NetworkError{Op: "submit", Err: errors.New("refused")}, true},
		{"rate limit", &RateLimitError{APIError: APIError{StatusCode: 429}}, true},
		{"server error", &APIError{StatusCode: 500}, true},
		{"bad gateway", &APIError{StatusCode: 502}, true},
		{"bad request", &APIError{StatusCode: 400}, false},
		{"not found", &APIError{StatusCode: 404}, false},
		{"validation", &ValidationError{Message: "bad input"}, false},
		{"authentication", &AuthenticationError{StatusCode: 401}, false},
		{"plain error", errors.New("whatever"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestRateLimitErrorUnwrapsToAPIError(t *testing.T) {
	var err error = &RateLimitError{
		APIError:   APIError{StatusCode: 429, Code: "TooManyRequests", Message: "slow down"},
		RetryAfter: 3 * time.Second,
	}

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.StatusCode)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Message: "submission batch failed validation",
		Fields: map[string][]string{
			"documents[1].codeNumber": {"codeNumber is required"},
			"documents[0].document":   {"document content is empty", "document is too large"},
		},
	}

	// Paths are sorted so the message is stable across runs.
	assert.Equal(t,
		"submission batch failed validation ("+
			"documents[0].document: document content is empty; document is too large, "+
			"documents[1].codeNumber: codeNumber is required)",
		err.Error(),
	)
}

func TestDetailsToFieldsFlattensNesting(t *testing.T) {
	details := []ErrorDetail{
		{
			Code:    "CF321",
			Message: "line failed checks",
			Target:  "InvoiceLine",
			Details: []ErrorDetail{
				{Message: "missing classification", PropertyPath: "Invoice.InvoiceLine[0].Item"},
				{Message: "negative quantity"}, // no path, inherits the parent's
			},
		},
		{Message: "unattributed"},
	}

	fields := detailsToFields(details)

	assert.Equal(t, []string{"line failed checks"}, fields["InvoiceLine"][:1])
	assert.Contains(t, fields["Invoice.InvoiceLine[0].Item"], "missing classification")
	assert.Contains(t, fields["InvoiceLine"], "negative quantity")
	assert.Contains(t, fields["request"], "unattributed")
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{" 30 ", 30 * time.Second},
		{"-5", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0}, // HTTP-date form is ignored
		{"soon", 0},
	}

	for _, tc := range cases {
		header := http.Header{}
		if tc.value != "" {
			header.Set("Retry-After", tc.value)
		}
		assert.Equal(t, tc.want, parseRetryAfter(header), "value %q", tc.value)
	}
}

func TestTokenFromGrant(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tok, err := tokenFromGrant(&TokenResponse{
		AccessToken: "abc",
		TokenType:   "bearer", // case-insensitive per RFC 6749
		ExpiresIn:   3600,
		Scope:       "InvoicingAPI",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, []string{"InvoicingAPI"}, tok.Scopes)

	bad := []TokenResponse{
		{TokenType: "Bearer", ExpiresIn: 3600},                                   // no access_token
		{AccessToken: "abc", TokenType: "MAC", ExpiresIn: 3600},                  // wrong type
		{AccessToken: "abc", TokenType: "Bearer"},                                // no expires_in
		{AccessToken: "abc", TokenType: "Bearer", ExpiresIn: -1},                 // negative lifetime
		{AccessToken: "abc", TokenType: "Bearer", ExpiresIn: 60, Scope: "Other"}, // missing required scope
	}
	for i, grant := range bad {
		_, err := tokenFromGrant(&grant, now)

		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr, "case %d", i)
	}
}

func TestTokenLiveAppliesRefreshBuffer(t *testing.T) {
	now := time.Now()

	fresh := &Token{AccessToken: "a", ExpiresAt: now.Add(10 * time.Minute)}
	assert.True(t, fresh.live(now))

	// Inside the five-minute buffer counts as stale even though the token
	// has wall-clock life left.
	nearExpiry := &Token{AccessToken: "a", ExpiresAt: now.Add(4 * time.Minute)}
	assert.False(t, nearExpiry.live(now))

	var missing *Token
	assert.False(t, missing.live(now))
}
