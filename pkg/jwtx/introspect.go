// Package jwtx decodes the claims of issued access tokens without verifying
// them. The authority publishes no key set to verify against, so
// introspection here serves diagnostics only: expiry cross-checks, log
// enrichment, and the CLI's token inspector. Never use it for a trust
// decision.
package jwtx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT reports a token that does not have JWT structure. Plenty of
// OAuth2 servers issue opaque tokens; callers should treat this as "nothing
// to show", not a failure.
var ErrNotJWT = errors.New("jwtx: token is not a decodable JWT")

// TokenInfo is the claim subset useful on the client side of an issued
// access token.
type TokenInfo struct {
	// Subject is the authenticated principal, typically the client ID.
	Subject string

	// Issuer identifies the token endpoint that minted the token.
	Issuer string

	// Name is the registered display name of the ERP system or taxpayer.
	Name string

	// IssuedAt and ExpiresAt are zero when the corresponding claim is absent.
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Scopes holds the space-delimited "scope" claim, split.
	Scopes []string
}

// Introspect decodes raw's claims without signature verification.
func Introspect(raw string) (*TokenInfo, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}

	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	info := &TokenInfo{}

	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if iss, err := claims.GetIssuer(); err == nil {
		info.Issuer = iss
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if name, ok := claims["name"].(string); ok {
		info.Name = name
	}
	if scope, ok := claims["scope"].(string); ok {
		info.Scopes = strings.Fields(scope)
	}

	return info, nil
}

// TimeToLive returns the remaining lifetime at now, or zero when the token
// carries no expiry or has already expired.
func (ti *TokenInfo) TimeToLive(now time.Time) time.Duration {
	if ti.ExpiresAt.IsZero() || !now.Before(ti.ExpiresAt) {
		return 0
	}
	return ti.ExpiresAt.Sub(now)
}

// HasScope reports whether the token's scope claim includes scope.
func (ti *TokenInfo) HasScope(scope string) bool {
	for _, s := range ti.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
