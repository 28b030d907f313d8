package myinvois

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// GetDocument fetches the originally submitted payload of a document plus
// its metadata. Only documents visible to the authenticated taxpayer (as
// issuer or receiver) can be fetched.
func (c *Client) GetDocument(ctx context.Context, uuid string) (*RawDocument, error) {
	if err := ValidateDocumentUUID(uuid); err != nil {
		return nil, err
	}

	var doc RawDocument
	err := c.do(ctx, apiCall{
		op:     "get document",
		method: http.MethodGet,
		path:   apiBasePath + "/documents/" + uuid + "/raw",
		out:    &doc,
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentDetails fetches a document's metadata along with the
// authority's step-by-step validation results.
func (c *Client) GetDocumentDetails(ctx context.Context, uuid string) (*DocumentDetails, error) {
	if err := ValidateDocumentUUID(uuid); err != nil {
		return nil, err
	}

	var details DocumentDetails
	err := c.do(ctx, apiCall{
		op:     "get document details",
		method: http.MethodGet,
		path:   apiBasePath + "/documents/" + uuid + "/details",
		out:    &details,
	})
	if err != nil {
		return nil, err
	}
	return &details, nil
}

// GetRecentDocuments pages through documents recently exchanged by the
// taxpayer, newest first. All filter fields are optional.
func (c *Client) GetRecentDocuments(ctx context.Context, filter DocumentFilter) (*DocumentsPage, error) {
	if err := filter.validate(false); err != nil {
		return nil, err
	}

	var page DocumentsPage
	err := c.do(ctx, apiCall{
		op:     "get recent documents",
		method: http.MethodGet,
		path:   apiBasePath + "/documents/recent",
		query:  filter.query(),
		out:    &page,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchDocuments searches the taxpayer's documents. Unlike
// GetRecentDocuments this endpoint demands at least one complete date
// window (submission or issue), no wider than MaxSearchWindow.
func (c *Client) SearchDocuments(ctx context.Context, filter DocumentFilter) (*DocumentsPage, error) {
	if err := filter.validate(true); err != nil {
		return nil, err
	}

	var page DocumentsPage
	err := c.do(ctx, apiCall{
		op:     "search documents",
		method: http.MethodGet,
		path:   apiBasePath + "/documents/search",
		query:  filter.query(),
		out:    &page,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// CancelDocument cancels an issued document. Only the issuer may cancel,
// only within the authority's cancellation window, and a reason of at most
// 300 characters is mandatory.
func (c *Client) CancelDocument(ctx context.Context, uuid, reason string) (*StateChange, error) {
	return c.updateDocumentState(ctx, "cancel document", uuid, DocumentStatusCancelled, reason)
}

// RejectDocument asks the issuer to cancel a document received by the
// authenticated taxpayer. Rejection does not change the document's state by
// itself; it notifies the issuer, who must act within the window.
func (c *Client) RejectDocument(ctx context.Context, uuid, reason string) (*StateChange, error) {
	return c.updateDocumentState(ctx, "reject document", uuid, DocumentStatusRejected, reason)
}

// updateDocumentState drives the state transition endpoint shared by cancel
// and reject.
func (c *Client) updateDocumentState(ctx context.Context, op, uuid, status, reason string) (*StateChange, error) {
	if err := ValidateDocumentUUID(uuid); err != nil {
		return nil, err
	}
	if err := validateStateReason(reason); err != nil {
		return nil, err
	}

	body := struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}{Status: status, Reason: reason}

	var change StateChange
	err := c.do(ctx, apiCall{
		op:     op,
		method: http.MethodPut,
		path:   apiBasePath + "/documents/state/" + uuid + "/state",
		body:   body,
		out:    &change,
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("document state updated", "uuid", change.UUID, "status", change.Status)
	return &change, nil
}

// ============================================================================
// Filter Plumbing
// ============================================================================

// validate checks the filter's identifiers, windows and paging. When
// requireWindow is set at least one complete date window must be present.
func (f DocumentFilter) validate(requireWindow bool) error {
	fe := fieldErrors{}

	if f.UUID != "" {
		fe.merge(asValidationError(ValidateDocumentUUID(f.UUID)))
	}

	validateDateRange(fe, "submissionDate", f.SubmissionDateFrom, f.SubmissionDateTo, MaxSearchWindow)
	validateDateRange(fe, "issueDate", f.IssueDateFrom, f.IssueDateTo, MaxSearchWindow)

	if requireWindow {
		noSubmissionWindow := f.SubmissionDateFrom.IsZero() && f.SubmissionDateTo.IsZero()
		noIssueWindow := f.IssueDateFrom.IsZero() && f.IssueDateTo.IsZero()
		if noSubmissionWindow && noIssueWindow {
			fe.add("submissionDate", "a submission or issue date window is required")
		}
	}

	switch f.Direction {
	case "", DirectionSent, DirectionReceived:
	default:
		fe.add("invoiceDirection", "direction must be Sent or Received")
	}

	if f.ReceiverTIN != "" && !tinPattern.MatchString(f.ReceiverTIN) {
		fe.add("receiverTin", "receiver TIN must start with C followed by 10 digits")
	}
	if f.IssuerTIN != "" && !tinPattern.MatchString(f.IssuerTIN) {
		fe.add("issuerTin", "issuer TIN must start with C followed by 10 digits")
	}

	validatePagination(fe, f.PageNo, f.PageSize)

	return fe.err("invalid document filter")
}

// query converts the filter into the endpoint's query parameters, omitting
// zero values.
func (f DocumentFilter) query() url.Values {
	query := url.Values{}

	setIfPresent := func(key, value string) {
		if value != "" {
			query.Set(key, value)
		}
	}
	setTimeIfPresent := func(key string, value time.Time) {
		if !value.IsZero() {
			query.Set(key, value.UTC().Format(time.RFC3339))
		}
	}

	setIfPresent("uuid", f.UUID)
	setTimeIfPresent("submissionDateFrom", f.SubmissionDateFrom)
	setTimeIfPresent("submissionDateTo", f.SubmissionDateTo)
	setTimeIfPresent("issueDateFrom", f.IssueDateFrom)
	setTimeIfPresent("issueDateTo", f.IssueDateTo)
	setIfPresent("invoiceDirection", f.Direction)
	setIfPresent("status", f.Status)
	setIfPresent("documentType", f.DocumentType)
	setIfPresent("receiverTin", f.ReceiverTIN)
	setIfPresent("issuerTin", f.IssuerTIN)
	applyPagination(query, f.PageNo, f.PageSize)

	return query
}

// asValidationError narrows err to *ValidationError for merging; validators
// in this package return nothing else.
func asValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*ValidationError); ok {
		return ve
	}
	return &ValidationError{Message: err.Error()}
}
