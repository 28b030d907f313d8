/*
Package myinvois is a client for the MyInvois e-invoicing API operated by
the Malaysian Inland Revenue Board (LHDN).

# Overview

The package wraps the full submission lifecycle: OAuth2 authentication with
token caching, batch document submission with local pre-validation, status
polling, document retrieval and search, cancellation and rejection, taxpayer
TIN validation, and notification listing. Every operation takes a
context.Context and returns typed errors so callers can branch on what went
wrong rather than string-matching.

# Getting Started

Create a Client against one of the two environments and authenticate with
the client credentials issued during API registration:

	client, err := myinvois.NewClient(
		myinvois.SandboxBaseURL,
		os.Getenv("MYINVOIS_CLIENT_ID"),
		os.Getenv("MYINVOIS_CLIENT_SECRET"),
	)
	if err != nil {
		log.Fatal(err)
	}

	// Optional: authenticate eagerly. Every operation authenticates
	// lazily on first use either way.
	if _, err := client.Authenticate(ctx); err != nil {
		log.Fatal(err)
	}

Tokens are reused until five minutes before expiry and refreshed
transparently; concurrent operations share a single refresh.

# Submitting Documents

Build documents with the constructors so the content is canonicalized and
the hash is computed over the exact bytes that will be transmitted:

	doc, err := myinvois.NewJSONDocument("INV-2025-001", invoiceJSON)
	if err != nil {
		log.Fatal(err)
	}

	result, err := client.SubmitDocuments(ctx, []myinvois.Document{doc})
	if err != nil {
		log.Fatal(err)
	}

	// Acceptance is not validity. Rejections at intake are part of the
	// result, and validation itself is asynchronous.
	for _, rejected := range result.Rejected {
		log.Printf("rejected %s: %s", rejected.CodeNumber, rejected.Error.Message)
	}

	status, err := client.GetSubmissionStatus(ctx, result.SubmissionUID, 0, 0)

Batches are validated locally first: at most 100 documents, 300 KiB per
document, 5 MiB aggregate, unique code numbers. A bad batch never reaches
the network.

# Intermediary Mode

Service providers submitting for their clients switch taxpayer context with
OnBehalfOf. The switch invalidates any held token, and tokens are cached
per (client ID, taxpayer) pair so contexts never bleed into each other:

	if err := client.OnBehalfOf(ctx, "C2584563200"); err != nil {
		log.Fatal(err)
	}

# Error Handling

All failures surface as one of five types. Use errors.As to branch:

	var valErr *myinvois.ValidationError
	var authErr *myinvois.AuthenticationError
	var rateErr *myinvois.RateLimitError
	var apiErr *myinvois.APIError

	switch _, err := client.SubmitDocuments(ctx, docs); {
	case err == nil:
	case errors.As(err, &valErr):
		// Per-field messages in valErr.Fields
	case errors.As(err, &rateErr):
		// Throttled; rateErr.RetryAfter carries the server's hint
	case errors.As(err, &authErr):
		// Credentials or token refused
	case errors.As(err, &apiErr):
		// Any other server-side failure
	}

NetworkError covers requests that never produced a response. Submissions
retry transient failures (network, 429, 5xx) with exponential backoff
before giving up; reads do not retry.

# Token Caching

By default tokens live in process memory. Supply a shared cache to reuse
tokens across processes, encrypted when the store is not private:

	sealer, _ := cryptox.NewSealerFromPassphrase(passphrase)
	cache := cachex.NewEncrypted(cachex.NewRedis(rdb), sealer)

	client, err := myinvois.NewClient(baseURL, id, secret,
		myinvois.WithCache(cache),
		myinvois.WithLogger(logger),
	)

# Throttling

The authority enforces per-client ceilings server-side. WithRateLimit smooths
bursts locally before they turn into 429 responses; pkg/httpx publishes
profiles matching the documented ceilings:

	client, err := myinvois.NewClient(baseURL, id, secret,
		myinvois.WithRateLimit(httpx.SubmissionLimit),
	)
*/
package myinvois
