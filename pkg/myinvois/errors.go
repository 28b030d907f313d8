package myinvois

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	// ErrorCodeValidation is the code the authority places in its error
	// envelope when a request body failed schema or business validation.
	ErrorCodeValidation = "validation_error"

	// OAuth2 error codes per RFC 6749, as emitted by the token endpoint.
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeInvalidScope   = "invalid_scope"
)

// ============================================================================
// ValidationError - Rejected caller input
// ============================================================================

// ValidationError reports input that was rejected either locally, before any
// network traffic, or by the authority's own request validation. Fields maps
// an input path (e.g. "documents[2].codeNumber") to its messages, suitable
// for direct display against the offending field.
type ValidationError struct {
	// Message summarizes the failure.
	Message string

	// Fields carries per-field messages keyed by input path. May be empty
	// when the failure is not attributable to a single field.
	Fields map[string][]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	paths := make([]string, 0, len(e.Fields))
	for path := range e.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		parts = append(parts, fmt.Sprintf("%s: %s", path, strings.Join(e.Fields[path], "; ")))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// fieldErrors accumulates per-field messages during validation so a single
// ValidationError can report every problem at once.
type fieldErrors map[string][]string

func (fe fieldErrors) add(path, message string) {
	fe[path] = append(fe[path], message)
}

func (fe fieldErrors) merge(other *ValidationError) {
	if other == nil {
		return
	}
	for path, messages := range other.Fields {
		fe[path] = append(fe[path], messages...)
	}
}

// err returns a ValidationError carrying the accumulated fields, or nil when
// nothing was recorded.
func (fe fieldErrors) err(message string) error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Message: message, Fields: fe}
}

// fieldError builds a single-field ValidationError. The message doubles as
// the summary since there is only one problem to report.
func fieldError(path, message string) *ValidationError {
	return &ValidationError{
		Message: message,
		Fields:  map[string][]string{path: {message}},
	}
}

// ============================================================================
// AuthenticationError - Credential and token problems
// ============================================================================

// AuthenticationError reports that the authority refused the client's
// credentials or token. It covers token-endpoint failures and 401 responses
// to business calls; the latter also invalidate any held token so the next
// operation re-authenticates.
type AuthenticationError struct {
	// StatusCode is the HTTP status that produced the error, or zero when
	// the failure was local (e.g. a malformed token response).
	StatusCode int

	// Code is the OAuth2 error code when the server supplied one.
	Code string

	// Message is a human-readable description of the failure.
	Message string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// ============================================================================
// NetworkError - No response obtained
// ============================================================================

// NetworkError reports that a request never produced a usable response:
// connection refused, DNS failure, timeout, or a body that could not be
// read. The underlying transport error is preserved for errors.Is/As.
type NetworkError struct {
	// Op names the operation that failed, e.g. "submit documents".
	Op string

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the transport error to errors.Is and errors.As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ============================================================================
// APIError - Server-reported failures
// ============================================================================

// APIError reports a failure the authority answered with: any non-2xx
// status not covered by a more specific type, or an error envelope inside a
// 2xx body. It also wraps the final failure when a retried operation
// exhausts its attempts.
type APIError struct {
	// StatusCode is the HTTP status of the failing response, or zero when
	// the terminal failure after retries was not an HTTP response.
	StatusCode int

	// Code is the authority's machine-readable error code, when supplied.
	Code string

	// Message is the authority's description of the failure.
	Message string

	// Err is the wrapped cause, set when this error terminates a retry
	// sequence.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("api error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		b.WriteString(": " + e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the cause of a terminal retry failure.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ============================================================================
// RateLimitError - HTTP 429 throttling
// ============================================================================

// RateLimitError is the throttling specialization of APIError, raised when
// the authority answers 429. It unwraps to its embedded APIError so
// errors.As finds either type.
type RateLimitError struct {
	APIError

	// RetryAfter is the server's Retry-After hint, or zero when the header
	// was absent or unparseable.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (HTTP %d): retry after %s", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (HTTP %d): %s", e.StatusCode, e.Message)
}

// Unwrap exposes the embedded APIError to errors.As.
func (e *RateLimitError) Unwrap() error {
	return &e.APIError
}

// ============================================================================
// Retry Classification
// ============================================================================

// IsRetryable reports whether err is transient: a network failure, a 429
// throttle, or a 5xx server error. Everything else, validation and
// authentication failures in particular, will not improve on retry.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	// Check the rate-limit type before the generic one; a RateLimitError
	// unwraps to an APIError with status 429, which the 5xx test below
	// would wrongly reject.
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorBody extracts the authority's error envelope from a response
// body. It understands both the standard API shape {"error": {...}} and the
// RFC 6749 form the token endpoint uses. ok is false when the body carries
// no recognizable error.
func parseErrorBody(body []byte) (detail ErrorDetail, ok bool) {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if envelope.Error.Code != "" || envelope.Error.Message != "" {
			return *envelope.Error, true
		}
	}

	var oauthErr oauthErrorResponse
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		return ErrorDetail{Code: oauthErr.Error, Message: oauthErr.ErrorDescription}, true
	}

	return ErrorDetail{}, false
}

// detailsToFields flattens nested error details into the Fields map of a
// ValidationError, keyed by the authority's property path.
func detailsToFields(details []ErrorDetail) map[string][]string {
	if len(details) == 0 {
		return nil
	}
	fields := make(map[string][]string, len(details))
	var walk func(prefix string, items []ErrorDetail)
	walk = func(prefix string, items []ErrorDetail) {
		for _, d := range items {
			path := d.PropertyPath
			if path == "" {
				path = d.Target
			}
			if path == "" {
				path = prefix
			}
			if path == "" {
				path = "request"
			}
			if d.Message != "" {
				fields[path] = append(fields[path], d.Message)
			}
			walk(path, d.Details)
		}
	}
	walk("", details)
	return fields
}

// classifyTokenFailure maps a non-200 token endpoint response to a typed
// error: 400 is malformed input, 401/403/404 are credential problems, 429 is
// throttling, everything else is a generic API failure.
func classifyTokenFailure(resp *http.Response, body []byte) error {
	detail, _ := parseErrorBody(body)
	message := detail.Message
	if message == "" {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &ValidationError{Message: message, Fields: detailsToFields(detail.Details)}
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return &AuthenticationError{StatusCode: resp.StatusCode, Code: detail.Code, Message: message}
	case http.StatusTooManyRequests:
		return newRateLimitError(resp, detail.Code, message)
	default:
		return &APIError{StatusCode: resp.StatusCode, Code: detail.Code, Message: message}
	}
}

// classifyAPIFailure maps a business endpoint response to a typed error.
// Returns nil for 2xx responses that carry no error envelope; an envelope
// inside a 2xx still means failure.
func classifyAPIFailure(resp *http.Response, body []byte) error {
	detail, hasEnvelope := parseErrorBody(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !hasEnvelope {
			return nil
		}
		if strings.EqualFold(detail.Code, ErrorCodeValidation) {
			return &ValidationError{Message: detail.Message, Fields: detailsToFields(detail.Details)}
		}
		return &APIError{StatusCode: resp.StatusCode, Code: detail.Code, Message: detail.Message}
	}

	message := detail.Message
	if message == "" {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if strings.EqualFold(detail.Code, ErrorCodeValidation) {
		return &ValidationError{Message: message, Fields: detailsToFields(detail.Details)}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &AuthenticationError{StatusCode: resp.StatusCode, Code: detail.Code, Message: message}
	case http.StatusTooManyRequests:
		return newRateLimitError(resp, detail.Code, message)
	default:
		return &APIError{StatusCode: resp.StatusCode, Code: detail.Code, Message: message}
	}
}

// newRateLimitError builds a RateLimitError carrying the server's
// Retry-After hint when one was supplied.
func newRateLimitError(resp *http.Response, code, message string) *RateLimitError {
	return &RateLimitError{
		APIError: APIError{
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    message,
		},
		RetryAfter: parseRetryAfter(resp.Header),
	}
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP-date
// values and absent headers yield zero, leaving the backoff schedule in
// charge.
func parseRetryAfter(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
