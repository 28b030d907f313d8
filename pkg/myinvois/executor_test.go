package myinvois_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merbau/myinvois/pkg/idx"
	"github.com/merbau/myinvois/pkg/myinvois"
)

func TestRequestHeaderMerge(t *testing.T) {
	auth := newAuthority(t)
	auth.scriptAPI(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
	})
	client := newTestClient(t, auth)
	ctx := context.Background()
	require.NoError(t, client.OnBehalfOf(ctx, "C2584563200"))

	opts := myinvois.RequestOptions{
		Headers: http.Header{
			"Accept":        {"application/pdf"},
			"X-Correlation": {"abc-123"},
			// An attempt to smuggle a token must lose to the client's own.
			"Authorization": {"Bearer forged"},
		},
	}
	require.NoError(t, client.Request(ctx, http.MethodGet, "/api/v1.0/documents/recent", opts, nil))

	headers := auth.lastAPIHeaders()
	assert.Equal(t, "application/pdf", headers.Get("Accept"), "caller headers override defaults")
	assert.Equal(t, "abc-123", headers.Get("X-Correlation"))
	assert.Equal(t, "Bearer token-1", headers.Get("Authorization"), "Authorization is never caller-controlled")
	assert.Equal(t, "C2584563200", headers.Get("onbehalfof"))

	// Every call carries a fresh correlation ID.
	_, err := idx.Parse(headers.Get("X-Request-Id"))
	assert.NoError(t, err, "X-Request-ID should be a ULID, got %q", headers.Get("X-Request-Id"))
}

func TestRequestEmptySuccessBody(t *testing.T) {
	auth := newAuthority(t)
	auth.scriptAPI(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, auth)

	var out struct {
		Untouched string `json:"untouched"`
	}
	out.Untouched = "sentinel"

	err := client.Request(context.Background(), http.MethodGet, "/api/v1.0/documents/recent", myinvois.RequestOptions{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "sentinel", out.Untouched, "empty bodies leave out untouched")
}

func TestRequestUnauthorizedInvalidatesToken(t *testing.T) {
	auth := newAuthority(t)
	calls := 0
	auth.scriptAPI(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": "invalid_token", "message": "token revoked"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": []any{}})
	})
	client := newTestClient(t, auth)
	ctx := context.Background()

	_, err := client.GetDocumentTypes(ctx)
	var authErr *myinvois.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_token", authErr.Code)

	// The 401 dropped the token, so the next call re-authenticates.
	_, err = client.GetDocumentTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, auth.tokenCount())
	assert.Equal(t, "Bearer token-2", auth.lastAPIHeaders().Get("Authorization"))
}

func TestRequestErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "validation envelope maps field details",
			status: http.StatusBadRequest,
			body: `{"error":{"code":"validation_error","message":"document failed schema checks","details":[
				{"code":"CF321","message":"issue date too old","propertyPath":"Invoice.IssueDate"},
				{"code":"CF364","message":"unknown classification","propertyPath":"Invoice.InvoiceLine[2].Item"}
			]}}`,
			check: func(t *testing.T, err error) {
				var valErr *myinvois.ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.Contains(t, valErr.Fields["Invoice.IssueDate"], "issue date too old")
				assert.Contains(t, valErr.Fields["Invoice.InvoiceLine[2].Item"], "unknown classification")
			},
		},
		{
			name:   "plain bad request is an api error",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"BadArgument","message":"pageSize out of range"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *myinvois.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
				assert.Equal(t, "BadArgument", apiErr.Code)
				assert.Contains(t, apiErr.Message, "pageSize")
			},
		},
		{
			name:   "forbidden is an api error",
			status: http.StatusForbidden,
			body:   `{"error":{"code":"Forbidden","message":"not your document"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *myinvois.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
			},
		},
		{
			name:   "not found is an api error",
			status: http.StatusNotFound,
			body:   ``,
			check: func(t *testing.T, err error) {
				var apiErr *myinvois.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
				assert.Contains(t, apiErr.Message, "404")
			},
		},
		{
			name:    "rate limited carries retry-after",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "7"},
			body:    `{"error":{"code":"TooManyRequests","message":"slow down"}}`,
			check: func(t *testing.T, err error) {
				var rateErr *myinvois.RateLimitError
				require.ErrorAs(t, err, &rateErr)
				assert.Equal(t, 7*time.Second, rateErr.RetryAfter)

				// The same error is visible as an APIError too.
				var apiErr *myinvois.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
			},
		},
		{
			name:   "error envelope inside a 200 still fails",
			status: http.StatusOK,
			body:   `{"error":{"code":"ProcessingError","message":"try again later"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *myinvois.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "ProcessingError", apiErr.Code)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := newAuthority(t)
			auth.scriptAPI(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.headers {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			client := newTestClient(t, auth)

			err := client.Request(context.Background(), http.MethodGet, "/api/v1.0/documents/recent", myinvois.RequestOptions{}, nil)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestRequestNetworkFailure(t *testing.T) {
	auth := newAuthority(t)
	client := newTestClient(t, auth)

	// Authenticate first so the failure hits the business call, then pull
	// the server out from under the client.
	_, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	auth.srv.Close()

	err = client.Request(context.Background(), http.MethodGet, "/api/v1.0/documents/recent", myinvois.RequestOptions{}, nil)

	var netErr *myinvois.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, myinvois.IsRetryable(err))
}

func TestRequestTimeout(t *testing.T) {
	auth := newAuthority(t)
	release := make(chan struct{})
	auth.scriptAPI(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	client := newTestClient(t, auth, myinvois.WithTimeout(50*time.Millisecond))

	err := client.Request(context.Background(), http.MethodGet, "/api/v1.0/documents/recent", myinvois.RequestOptions{}, nil)

	var netErr *myinvois.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
