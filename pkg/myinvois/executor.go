package myinvois

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/merbau/myinvois/pkg/httpx"
	"github.com/merbau/myinvois/pkg/idx"
)

// RequestOptions carries the optional parts of a Request call.
type RequestOptions struct {
	// Query is appended to the request URL.
	Query url.Values

	// Headers are merged over the client's defaults, so a caller can
	// override Accept or add vendor headers. Authorization is set after the
	// merge and cannot be overridden.
	Headers http.Header

	// Body is JSON-encoded when non-nil.
	Body any
}

// apiCall describes one HTTP operation against the authority.
type apiCall struct {
	op      string // human name for logs and error messages
	method  string
	path    string
	query   url.Values
	headers http.Header
	body    any
	out     any // decoded from a 2xx JSON body when non-nil
}

// Request performs a single authenticated call against an arbitrary API path
// and decodes the JSON response into out (which may be nil). It is the
// escape hatch for endpoints the typed surface does not cover.
func (c *Client) Request(ctx context.Context, method, path string, opts RequestOptions, out any) error {
	return c.do(ctx, apiCall{
		op:      method + " " + path,
		method:  method,
		path:    path,
		query:   opts.Query,
		headers: opts.Headers,
		body:    opts.Body,
		out:     out,
	})
}

// do executes one authenticated call: throttle, token, request, classify.
// A 401 invalidates the held token before the error is returned, so the
// next operation authenticates from scratch.
func (c *Client) do(ctx context.Context, call apiCall) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if call.body != nil {
		payload, err := json.Marshal(call.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", call.op, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + call.path
	if len(call.query) > 0 {
		target += "?" + call.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, call.method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", call.op, err)
	}

	// Defaults first, caller headers second so callers win, Authorization
	// last so nothing wins over it.
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, idx.New().String())
	if call.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.onBehalfOf != "" {
		req.Header.Set(onBehalfOfHeader, c.onBehalfOf)
	}
	c.mu.RUnlock()
	for key, values := range call.headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: call.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: call.op, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken(ctx)
	}

	if err := classifyAPIFailure(resp, body); err != nil {
		return err
	}

	// Empty 2xx bodies are success with nothing to decode.
	if call.out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, call.out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", call.op, err)
	}
	return nil
}

// doWithRetry re-attempts transient failures of fn per the client's retry
// policy. Only the submission path retries; reads stay single-shot so
// callers keep control of their own polling cadence.
func (c *Client) doWithRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := c.retry.Attempts()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		delay := c.retry.Delay(attempt)
		var rateErr *RateLimitError
		if errors.As(lastErr, &rateErr) && rateErr.RetryAfter > delay {
			// The authority's own hint wins when it asks for longer.
			delay = rateErr.RetryAfter
		}

		c.log.Warn("transient failure, will retry",
			"op", op,
			"attempt", attempt+1,
			"max_attempts", attempts,
			"delay", delay,
			"error", lastErr,
		)

		if err := httpx.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	// Out of attempts: wrap the final failure so callers see both the
	// exhaustion and its cause.
	final := &APIError{
		Message: fmt.Sprintf("%s failed after %d attempts", op, attempts),
		Err:     lastErr,
	}
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		final.StatusCode = apiErr.StatusCode
		final.Code = apiErr.Code
	}
	return final
}
