package myinvois

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the bearer token to present on API calls.
	AccessToken string `json:"access_token"`

	// TokenType is the token type, always "Bearer" for this API.
	TokenType string `json:"token_type"`

	// ExpiresIn is the token lifetime in seconds from issuance.
	ExpiresIn int64 `json:"expires_in"`

	// Scope is the space-delimited list of granted scopes.
	Scope string `json:"scope"`
}

// Token is a live access token held by the client. ExpiresAt is absolute so
// the token can be cached across processes without re-deriving lifetimes.
type Token struct {
	// AccessToken is the bearer token value.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresAt is the instant the token stops being presented. The refresh
	// buffer is applied on top of this when deciding whether to reuse it.
	ExpiresAt time.Time `json:"expires_at"`

	// Scopes are the granted scopes, split from the grant's scope field.
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope reports whether the token was granted the named scope.
func (t *Token) HasScope(scope string) bool {
	if t == nil {
		return false
	}
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// oauthErrorResponse is the RFC 6749 error body the token endpoint answers
// with on failure.
type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Error Envelope Types
// ============================================================================

// errorEnvelope is the authority's standard error body on business
// endpoints: a single error object, possibly with nested details.
type errorEnvelope struct {
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail is one node of the authority's error envelope. The same shape
// appears at the top level, inside per-document rejections, and nested under
// Details for field-level validation messages.
type ErrorDetail struct {
	// Code is the machine-readable error code, e.g. "validation_error".
	Code string `json:"code,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Target names the element the error refers to, when known.
	Target string `json:"target,omitempty"`

	// PropertyPath locates the offending field inside the document.
	PropertyPath string `json:"propertyPath,omitempty"`

	// Details carries field-level errors nested under this one.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ============================================================================
// Submission Types
// ============================================================================

// submissionRequest is the wire body of POST /documentsubmissions.
type submissionRequest struct {
	Documents []submissionDocument `json:"documents"`
}

// submissionDocument is one prepared document on the wire: canonical content
// base64-encoded, with its hash and the issuer's own code number.
type submissionDocument struct {
	Format       string `json:"format"`
	Document     string `json:"document"`
	DocumentHash string `json:"documentHash"`
	CodeNumber   string `json:"codeNumber"`
}

// submissionResponse mirrors the authority's acceptance envelope.
type submissionResponse struct {
	SubmissionUID     string             `json:"submissionUID"`
	AcceptedDocuments []AcceptedDocument `json:"acceptedDocuments"`
	RejectedDocuments []RejectedDocument `json:"rejectedDocuments"`
}

// AcceptedDocument identifies one document the authority took in for
// asynchronous processing. Acceptance is not validity; poll the submission
// status for the verdict.
type AcceptedDocument struct {
	// UUID is the authority-assigned document identifier.
	UUID string `json:"uuid"`

	// CodeNumber echoes the issuer's own invoice number.
	CodeNumber string `json:"invoiceCodeNumber"`
}

// RejectedDocument carries the authority's reason for refusing one document
// at intake. A submission with rejections is still a successful call.
type RejectedDocument struct {
	// CodeNumber echoes the issuer's own invoice number.
	CodeNumber string `json:"invoiceCodeNumber"`

	// Error is the rejection reason, with field-level details when present.
	Error ErrorDetail `json:"error"`
}

// SubmissionResult is the outcome of SubmitDocuments.
type SubmissionResult struct {
	// SubmissionUID identifies the batch for later status polling.
	SubmissionUID string

	// Accepted lists documents taken in for processing.
	Accepted []AcceptedDocument

	// Rejected lists documents refused at intake, with reasons.
	Rejected []RejectedDocument
}

// HasRejections reports whether any document in the batch was refused.
func (r *SubmissionResult) HasRejections() bool {
	return r != nil && len(r.Rejected) > 0
}

// ============================================================================
// Submission Status Types
// ============================================================================

// Overall submission statuses reported by the authority.
const (
	SubmissionInProgress     = "in progress"
	SubmissionValid          = "valid"
	SubmissionPartiallyValid = "partially valid"
	SubmissionInvalid        = "invalid"
)

// SubmissionStatus is the processing state of a prior submission, including
// a page of its per-document summaries.
type SubmissionStatus struct {
	// SubmissionUID identifies the batch.
	SubmissionUID string `json:"submissionUid"`

	// DocumentCount is the number of documents in the batch.
	DocumentCount int `json:"documentCount"`

	// DateTimeReceived is when the authority took the batch in.
	DateTimeReceived time.Time `json:"dateTimeReceived"`

	// OverallStatus is one of the Submission* constants.
	OverallStatus string `json:"overallStatus"`

	// DocumentSummary is the requested page of per-document outcomes.
	DocumentSummary []DocumentSummary `json:"documentSummary"`
}

// InProgress reports whether the authority is still validating the batch.
func (s *SubmissionStatus) InProgress() bool {
	return s != nil && s.OverallStatus == SubmissionInProgress
}

// ============================================================================
// Document Types
// ============================================================================

// Per-document statuses reported by the authority.
const (
	DocumentStatusSubmitted = "Submitted"
	DocumentStatusValid     = "Valid"
	DocumentStatusInvalid   = "Invalid"
	DocumentStatusCancelled = "Cancelled"
	DocumentStatusRejected  = "Rejected"
)

// DocumentSummary is the authority's metadata view of one document, as
// returned by status, listing and search endpoints.
type DocumentSummary struct {
	UUID            string `json:"uuid"`
	SubmissionUID   string `json:"submissionUid"`
	LongID          string `json:"longId,omitempty"` // set once validated; keys the public share link
	InternalID      string `json:"internalId"`
	TypeName        string `json:"typeName"`
	TypeVersionName string `json:"typeVersionName"`

	IssuerTIN    string `json:"issuerTin"`
	IssuerName   string `json:"issuerName,omitempty"`
	ReceiverID   string `json:"receiverId,omitempty"`
	ReceiverName string `json:"receiverName,omitempty"`

	DateTimeIssued    time.Time  `json:"dateTimeIssued"`
	DateTimeReceived  time.Time  `json:"dateTimeReceived"`
	DateTimeValidated *time.Time `json:"dateTimeValidated,omitempty"`

	// Monetary fields use arbitrary-precision decimals; float64 would
	// corrupt tax amounts.
	TotalSales    decimal.Decimal `json:"totalSales"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	Total         decimal.Decimal `json:"total"`

	Status                string     `json:"status"`
	CancelDateTime        *time.Time `json:"cancelDateTime,omitempty"`
	RejectRequestDateTime *time.Time `json:"rejectRequestDateTime,omitempty"`
	DocumentStatusReason  string     `json:"documentStatusReason,omitempty"`
	CreatedByUserID       string     `json:"createdByUserId,omitempty"`
}

// RawDocument is the originally submitted payload plus its metadata, as
// returned by the raw document endpoint.
type RawDocument struct {
	DocumentSummary

	// Document is the submitted content exactly as the authority stored it.
	Document string `json:"document"`
}

// DocumentDetails extends the summary with the authority's per-step
// validation results.
type DocumentDetails struct {
	DocumentSummary

	// ValidationResults is present once validation has run.
	ValidationResults *ValidationResults `json:"validationResults,omitempty"`
}

// ValidationResults is the authority's validation verdict for one document.
type ValidationResults struct {
	// Status is Submitted, Valid or Invalid.
	Status string `json:"status"`

	// ValidationSteps lists each rule evaluated and its outcome.
	ValidationSteps []ValidationStepResult `json:"validationSteps"`
}

// ValidationStepResult is the outcome of a single validation rule.
type ValidationStepResult struct {
	Name   string       `json:"name"`
	Status string       `json:"status"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// StateChange is the authority's acknowledgement of a cancel or reject
// request.
type StateChange struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

// ============================================================================
// Paging Types
// ============================================================================

// PageMeta carries the paging counters attached to list responses.
type PageMeta struct {
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
	PageSize   int `json:"pageSize"`
	PageNo     int `json:"pageNo"`
}

// DocumentsPage is one page of document summaries.
type DocumentsPage struct {
	Result   []DocumentSummary `json:"result"`
	Metadata PageMeta          `json:"metadata"`
}

// ============================================================================
// Filter Types
// ============================================================================

// Invoice directions accepted by listing and search filters.
const (
	DirectionSent     = "Sent"
	DirectionReceived = "Received"
)

// DocumentFilter narrows GetRecentDocuments and SearchDocuments. Zero-value
// fields are omitted from the query. Each provided date window must be
// complete, ordered, and no wider than MaxSearchWindow; SearchDocuments
// additionally requires at least one window.
type DocumentFilter struct {
	// UUID restricts the search to a single document.
	UUID string

	// SubmissionDateFrom/To bound when documents reached the authority.
	SubmissionDateFrom time.Time
	SubmissionDateTo   time.Time

	// IssueDateFrom/To bound the documents' own issue dates.
	IssueDateFrom time.Time
	IssueDateTo   time.Time

	// Direction is DirectionSent or DirectionReceived.
	Direction string

	// Status filters by document status, e.g. DocumentStatusValid.
	Status string

	// DocumentType filters by invoice type code, e.g. "01".
	DocumentType string

	// ReceiverTIN and IssuerTIN filter by counterparty.
	ReceiverTIN string
	IssuerTIN   string

	// PageNo is 1-based; zero lets the server default.
	PageNo int

	// PageSize is capped at MaxPageSize; zero lets the server default.
	PageSize int
}

// ============================================================================
// Document Type Catalogue
// ============================================================================

// DocumentType is one entry of the authority's document type catalogue.
type DocumentType struct {
	// ID is the catalogue identifier used by GetDocumentType.
	ID int `json:"id"`

	// InvoiceTypeCode is the numeric code carried inside documents
	// (1 invoice, 2 credit note, 3 debit note, ...).
	InvoiceTypeCode int `json:"invoiceTypeCode"`

	// Description is the human-readable type name.
	Description string `json:"description"`

	// ActiveFrom/To bound when the type may be used.
	ActiveFrom time.Time  `json:"activeFrom"`
	ActiveTo   *time.Time `json:"activeTo,omitempty"`

	// Versions lists the schema versions published for this type.
	Versions []DocumentTypeVersion `json:"documentTypeVersions"`
}

// DocumentTypeVersion is one published schema version of a document type.
type DocumentTypeVersion struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	ActiveFrom    time.Time  `json:"activeFrom"`
	ActiveTo      *time.Time `json:"activeTo,omitempty"`
	VersionNumber float64    `json:"versionNumber"`
	Status        string     `json:"status"`
}

// documentTypesResponse is the wire envelope of the catalogue listing.
type documentTypesResponse struct {
	Result []DocumentType `json:"result"`
}

// ============================================================================
// Notification Types
// ============================================================================

// Notification is one message the authority delivered (or tried to deliver)
// to the taxpayer, e.g. a validation outcome or a cancellation notice.
type Notification struct {
	NotificationID      string    `json:"notificationId"`
	ReceiverName        string    `json:"receiverName"`
	DeliveryID          string    `json:"notificationDeliveryId"`
	CreatedDateTime     time.Time `json:"creationDateTime"`
	ReceivedDateTime    time.Time `json:"receivedDateTime"`
	NotificationSubject string    `json:"notificationSubject"`
	DeliveredDateTime   time.Time `json:"deliveredDateTime"`
	TypeID              int       `json:"typeId"`
	TypeName            string    `json:"typeName"`
	FinalMessage        string    `json:"finalMessage,omitempty"`
	Address             string    `json:"address"`
	Language            string    `json:"language"`
	Status              string    `json:"status"`

	// DeliveryAttempts records each delivery try, newest first.
	DeliveryAttempts []DeliveryAttempt `json:"deliveryAttempts,omitempty"`
}

// DeliveryAttempt is one try at delivering a notification.
type DeliveryAttempt struct {
	AttemptDateTime time.Time `json:"attemptDateTime"`
	Status          string    `json:"status"`
	StatusDetails   string    `json:"statusDetails,omitempty"`
}

// NotificationsPage is one page of notifications.
type NotificationsPage struct {
	Result   []Notification `json:"result"`
	Metadata PageMeta       `json:"metadata"`
}

// NotificationFilter narrows GetNotifications. Zero-value fields are
// omitted; a provided date window must be complete and ordered.
type NotificationFilter struct {
	// DateFrom/To bound the notification creation times.
	DateFrom time.Time
	DateTo   time.Time

	// Type filters by notification type ID.
	Type string

	// Language is "ms" or "en".
	Language string

	// Status filters by delivery status.
	Status string

	// Channel filters by delivery channel, e.g. "email".
	Channel string

	// PageNo is 1-based; zero lets the server default.
	PageNo int

	// PageSize is capped at MaxPageSize; zero lets the server default.
	PageSize int
}
