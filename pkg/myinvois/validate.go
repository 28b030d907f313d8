package myinvois

import (
	"fmt"
	"regexp"
	"time"
)

// Identifier formats issued or required by the authority.
var (
	// tinPattern: the letter C followed by exactly ten digits, e.g.
	// "C2584563200". Company TINs are the only kind accepted here.
	tinPattern = regexp.MustCompile(`^C\d{10}$`)

	// uidPattern: authority document and submission identifiers are
	// 26-character Crockford base32 strings (no I, L, O, U).
	uidPattern = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)

	// codeNumberPattern: issuer invoice numbers travel inside URLs and the
	// authority restricts them to letters, digits and hyphens.
	codeNumberPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

	// documentHashPattern: SHA-256 digests in lowercase or uppercase hex.
	documentHashPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// Limits the authority enforces on listings and state changes.
const (
	// MaxPageSize is the largest page any listing endpoint will return.
	MaxPageSize = 100

	// MaxSearchWindow is the widest date range a search may cover.
	MaxSearchWindow = 31 * 24 * time.Hour

	// maxStateReasonLength bounds cancel/reject reasons.
	maxStateReasonLength = 300
)

// TaxpayerIDType enumerates the identity document kinds accepted alongside a
// TIN by ValidateTaxpayerTIN.
type TaxpayerIDType string

// Identity document kinds.
const (
	IDTypeNRIC     TaxpayerIDType = "NRIC"
	IDTypePassport TaxpayerIDType = "PASSPORT"
	IDTypeBRN      TaxpayerIDType = "BRN"
	IDTypeArmy     TaxpayerIDType = "ARMY"
)

// ValidateTIN checks a taxpayer identification number: the letter C followed
// by exactly ten digits.
func ValidateTIN(tin string) error {
	switch {
	case tin == "":
		return fieldError("tin", "TIN is required")
	case tinPattern.MatchString(tin):
		return nil
	default:
		return fieldError("tin", fmt.Sprintf("TIN must start with C followed by 10 digits, got %q", tin))
	}
}

// ValidateDocumentUUID checks an authority-assigned document identifier.
func ValidateDocumentUUID(uuid string) error {
	switch {
	case uuid == "":
		return fieldError("uuid", "document UUID is required")
	case uidPattern.MatchString(uuid):
		return nil
	default:
		return fieldError("uuid", fmt.Sprintf("document UUID must be a 26-character identifier, got %q", uuid))
	}
}

// ValidateSubmissionUID checks an authority-assigned submission identifier.
func ValidateSubmissionUID(uid string) error {
	switch {
	case uid == "":
		return fieldError("submissionUid", "submission UID is required")
	case uidPattern.MatchString(uid):
		return nil
	default:
		return fieldError("submissionUid", fmt.Sprintf("submission UID must be a 26-character identifier, got %q", uid))
	}
}

// ValidateTaxpayerIDType checks that idType is one of the accepted kinds.
func ValidateTaxpayerIDType(idType TaxpayerIDType) error {
	switch idType {
	case IDTypeNRIC, IDTypePassport, IDTypeBRN, IDTypeArmy:
		return nil
	default:
		return fieldError("idType", fmt.Sprintf(
			"idType must be one of %s, %s, %s or %s",
			IDTypeNRIC, IDTypePassport, IDTypeBRN, IDTypeArmy,
		))
	}
}

// validateDateRange checks one from/to window named by field. Both ends must
// be provided together, ordered, and span no more than window.
func validateDateRange(fe fieldErrors, field string, from, to time.Time, window time.Duration) {
	switch {
	case from.IsZero() && to.IsZero():
		// Window not provided at all; the caller decides whether that is
		// acceptable.
	case from.IsZero() || to.IsZero():
		fe.add(field, "both ends of the date range must be provided")
	case from.After(to):
		fe.add(field, "the start of the date range is after its end")
	case to.Sub(from) > window:
		fe.add(field, fmt.Sprintf("the date range must not exceed %d days", int(window.Hours()/24)))
	}
}

// validatePagination checks pageNo and pageSize. Zero means "let the server
// default" and passes; negatives and oversized pages fail.
func validatePagination(fe fieldErrors, pageNo, pageSize int) {
	if pageNo < 0 {
		fe.add("pageNo", "pageNo must be 1 or greater")
	}
	if pageSize < 0 {
		fe.add("pageSize", "pageSize must be 1 or greater")
	}
	if pageSize > MaxPageSize {
		fe.add("pageSize", fmt.Sprintf("pageSize must not exceed %d", MaxPageSize))
	}
}

// validateStateReason checks a cancel/reject reason.
func validateStateReason(reason string) error {
	switch {
	case reason == "":
		return fieldError("reason", "a reason is required")
	case len(reason) > maxStateReasonLength:
		return fieldError("reason", fmt.Sprintf("reason must not exceed %d characters", maxStateReasonLength))
	default:
		return nil
	}
}
