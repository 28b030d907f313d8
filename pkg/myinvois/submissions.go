package myinvois

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/beevik/etree"
)

// Batch ceilings the authority enforces on document submissions. Exceeding
// any of them fails locally, before a byte leaves the process.
const (
	// MaxBatchDocuments is the most documents one submission may carry.
	MaxBatchDocuments = 100

	// MaxBatchSizeBytes caps the aggregate content size of a batch (5 MiB).
	MaxBatchSizeBytes = 5 * 1024 * 1024

	// MaxDocumentSizeBytes caps a single document's content (300 KiB).
	MaxDocumentSizeBytes = 300 * 1024
)

// DocumentFormat selects the wire representation of a submitted document.
type DocumentFormat string

// Supported document formats.
const (
	FormatJSON DocumentFormat = "JSON"
	FormatXML  DocumentFormat = "XML"
)

// Document is one e-invoice (or credit/debit/refund note) prepared for
// submission. Build one with NewJSONDocument or NewXMLDocument so Content is
// canonical and Hash matches the bytes that will actually be transmitted.
type Document struct {
	// Format declares how Content is encoded.
	Format DocumentFormat

	// Content is the canonical document body.
	Content []byte

	// CodeNumber is the issuer's own invoice number, unique within a batch.
	CodeNumber string

	// Hash is the SHA-256 hex digest of Content.
	Hash string
}

// NewJSONDocument canonicalizes a JSON document and computes its hash over
// the canonical bytes, so caller formatting cannot cause a hash mismatch at
// the authority.
func NewJSONDocument(codeNumber string, content []byte) (Document, error) {
	canonical, err := canonicalizeJSON(content)
	if err != nil {
		return Document{}, fieldError("document", err.Error())
	}
	return newDocument(FormatJSON, codeNumber, canonical), nil
}

// NewXMLDocument canonicalizes an XML document and computes its hash over
// the canonical bytes.
func NewXMLDocument(codeNumber string, content []byte) (Document, error) {
	canonical, err := canonicalizeXML(content)
	if err != nil {
		return Document{}, fieldError("document", err.Error())
	}
	return newDocument(FormatXML, codeNumber, canonical), nil
}

func newDocument(format DocumentFormat, codeNumber string, canonical []byte) Document {
	sum := sha256.Sum256(canonical)
	return Document{
		Format:     format,
		Content:    canonical,
		CodeNumber: codeNumber,
		Hash:       hex.EncodeToString(sum[:]),
	}
}

// ============================================================================
// Canonicalization
// ============================================================================

// canonicalizeJSON parses and re-serializes a JSON document in compact form
// with HTML escaping off, so the transmitted bytes (and therefore the hash)
// are stable regardless of the caller's formatting. Numbers pass through
// verbatim; monetary values must not be rewritten in scientific notation.
func canonicalizeJSON(content []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("malformed JSON: trailing data after document")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, fmt.Errorf("failed to re-encode JSON: %w", err)
	}
	// Encoder appends a newline that is not part of the document.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// canonicalizeXML parses and re-serializes an XML document with indentation
// stripped, so malformed XML fails here rather than opaquely at the
// authority.
func canonicalizeXML(content []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, errors.New("malformed XML: no root element")
	}

	doc.Unindent()
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode XML: %w", err)
	}
	return bytes.TrimSpace(out), nil
}

// ============================================================================
// Batch Validation
// ============================================================================

// validateSubmission rejects a bad batch before any network traffic: empty
// or oversized batches, oversized documents, missing or malformed code
// numbers and hashes, and duplicate code numbers within the batch.
func validateSubmission(docs []Document) error {
	if len(docs) == 0 {
		return fieldError("documents", "submission batch is empty")
	}
	if len(docs) > MaxBatchDocuments {
		return fieldError("documents", fmt.Sprintf(
			"batch has %d documents, the ceiling is %d", len(docs), MaxBatchDocuments))
	}

	fe := fieldErrors{}
	seen := make(map[string]int, len(docs))
	total := 0

	for i, doc := range docs {
		prefix := fmt.Sprintf("documents[%d]", i)

		switch doc.Format {
		case FormatJSON, FormatXML:
		default:
			fe.add(prefix+".format", fmt.Sprintf("unsupported document format %q", doc.Format))
		}

		if len(doc.Content) == 0 {
			fe.add(prefix+".document", "document content is empty")
		} else if len(doc.Content) > MaxDocumentSizeBytes {
			fe.add(prefix+".document", fmt.Sprintf(
				"document is %d bytes, the ceiling is %d", len(doc.Content), MaxDocumentSizeBytes))
		}
		total += len(doc.Content)

		switch {
		case doc.CodeNumber == "":
			fe.add(prefix+".codeNumber", "codeNumber is required")
		case !codeNumberPattern.MatchString(doc.CodeNumber):
			fe.add(prefix+".codeNumber", fmt.Sprintf(
				"codeNumber %q may only contain letters, digits and hyphens", doc.CodeNumber))
		default:
			if first, dup := seen[doc.CodeNumber]; dup {
				fe.add(prefix+".codeNumber", fmt.Sprintf(
					"codeNumber %q duplicates documents[%d]", doc.CodeNumber, first))
			} else {
				seen[doc.CodeNumber] = i
			}
		}

		switch {
		case doc.Hash == "":
			fe.add(prefix+".documentHash", "documentHash is required")
		case !documentHashPattern.MatchString(doc.Hash):
			fe.add(prefix+".documentHash", "documentHash must be a 64-character SHA-256 hex digest")
		}
	}

	if total > MaxBatchSizeBytes {
		fe.add("documents", fmt.Sprintf(
			"batch is %d bytes in aggregate, the ceiling is %d", total, MaxBatchSizeBytes))
	}

	return fe.err("submission batch failed validation")
}

// prepareDocument converts one validated document to its wire form. The
// content is canonicalized again so a hand-built Document behaves the same
// as one from the constructors.
func prepareDocument(doc Document) (submissionDocument, error) {
	var canonical []byte
	var err error
	switch doc.Format {
	case FormatJSON:
		canonical, err = canonicalizeJSON(doc.Content)
	case FormatXML:
		canonical, err = canonicalizeXML(doc.Content)
	default:
		err = fmt.Errorf("unsupported document format %q", doc.Format)
	}
	if err != nil {
		return submissionDocument{}, err
	}

	return submissionDocument{
		Format:       string(doc.Format),
		Document:     base64.StdEncoding.EncodeToString(canonical),
		DocumentHash: doc.Hash,
		CodeNumber:   doc.CodeNumber,
	}, nil
}

// ============================================================================
// Submission Operations
// ============================================================================

// SubmitDocuments validates, prepares and submits a batch of documents. The
// call retries transient failures per the client's retry policy. Rejected
// documents inside an accepted submission are part of the result, not an
// error; check SubmissionResult.Rejected.
func (c *Client) SubmitDocuments(ctx context.Context, docs []Document) (*SubmissionResult, error) {
	if err := validateSubmission(docs); err != nil {
		return nil, err
	}

	request := submissionRequest{
		Documents: make([]submissionDocument, 0, len(docs)),
	}
	for i, doc := range docs {
		prepared, err := prepareDocument(doc)
		if err != nil {
			return nil, &ValidationError{
				Message: fmt.Sprintf("document %q could not be prepared", doc.CodeNumber),
				Fields: map[string][]string{
					fmt.Sprintf("documents[%d].document", i): {err.Error()},
				},
			}
		}
		request.Documents = append(request.Documents, prepared)
	}

	var response submissionResponse
	err := c.doWithRetry(ctx, "submit documents", func(ctx context.Context) error {
		response = submissionResponse{}
		return c.do(ctx, apiCall{
			op:     "submit documents",
			method: http.MethodPost,
			path:   apiBasePath + "/documentsubmissions",
			body:   request,
			out:    &response,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &SubmissionResult{
		SubmissionUID: response.SubmissionUID,
		Accepted:      response.AcceptedDocuments,
		Rejected:      response.RejectedDocuments,
	}

	c.log.Info("submission accepted",
		"submission_uid", result.SubmissionUID,
		"accepted", len(result.Accepted),
		"rejected", len(result.Rejected),
	)
	for _, rejected := range result.Rejected {
		c.log.Warn("document rejected at intake",
			"code_number", rejected.CodeNumber,
			"error_code", rejected.Error.Code,
			"error", rejected.Error.Message,
		)
	}

	return result, nil
}

// GetSubmissionStatus polls the processing state of a prior submission.
// pageNo and pageSize page through the per-document summaries; zero lets the
// server default. Validation is asynchronous, so poll until InProgress
// turns false.
func (c *Client) GetSubmissionStatus(ctx context.Context, submissionUID string, pageNo, pageSize int) (*SubmissionStatus, error) {
	if err := ValidateSubmissionUID(submissionUID); err != nil {
		return nil, err
	}
	fe := fieldErrors{}
	validatePagination(fe, pageNo, pageSize)
	if err := fe.err("invalid pagination"); err != nil {
		return nil, err
	}

	query := url.Values{}
	applyPagination(query, pageNo, pageSize)

	var status SubmissionStatus
	err := c.do(ctx, apiCall{
		op:     "get submission status",
		method: http.MethodGet,
		path:   apiBasePath + "/documentsubmissions/" + submissionUID,
		query:  query,
		out:    &status,
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// applyPagination writes pageNo/pageSize into a query, omitting zeroes.
func applyPagination(query url.Values, pageNo, pageSize int) {
	if pageNo > 0 {
		query.Set("pageNo", strconv.Itoa(pageNo))
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
}
