package sdk_test

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/merbau/myinvois/pkg/idx"
	"github.com/merbau/myinvois/pkg/myinvois"
)

// mockAuthority is an in-process stand-in for the e-invoicing API with real
// submission state. It mints distinct bearer tokens, verifies the hash of
// every document it takes in, parks batches "in progress", and flips them to
// valid after pollsUntilValid status reads. Hash verification matters here:
// it proves the SDK's canonicalization produces content/hash pairs the
// authority would actually accept.
type mockAuthority struct {
	t   *testing.T
	srv *httptest.Server

	mu              sync.Mutex
	tokenGrants     int
	issuedTokens    map[string]bool
	grantTINs       []string // onbehalfof header value per grant, "" for taxpayer grants
	pollsUntilValid int
	submissions     map[string]*recordedSubmission
}

// recordedSubmission is one accepted batch and its polling state.
type recordedSubmission struct {
	uid        string
	received   time.Time
	onBehalfOf string
	accepted   []recordedDocument
	polls      int
}

// recordedDocument is one document as the authority stored it.
type recordedDocument struct {
	uuid       string
	codeNumber string
	content    []byte
}

func newMockAuthority(t *testing.T) *mockAuthority {
	a := &mockAuthority{
		t:               t,
		issuedTokens:    make(map[string]bool),
		pollsUntilValid: 2,
		submissions:     make(map[string]*recordedSubmission),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", a.handleToken)
	mux.HandleFunc("/api/v1.0/documentsubmissions", a.handleSubmit)
	mux.HandleFunc("/api/v1.0/documentsubmissions/", a.handleStatus)

	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func (a *mockAuthority) URL() string {
	return a.srv.URL
}

func (a *mockAuthority) grants() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tokenGrants
}

func (a *mockAuthority) grantTINsSeen() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.grantTINs...)
}

func (a *mockAuthority) polls(uid string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sub, ok := a.submissions[uid]; ok {
		return sub.polls
	}
	return 0
}

// submissionTIN returns the onbehalfof header value the submission arrived
// with, "" when the submitter acted as the taxpayer itself.
func (a *mockAuthority) submissionTIN(uid string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sub, ok := a.submissions[uid]; ok {
		return sub.onBehalfOf
	}
	return ""
}

// storedContent returns the decoded document bytes the authority holds for a
// code number, across all submissions.
func (a *mockAuthority) storedContent(codeNumber string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, sub := range a.submissions {
		for _, doc := range sub.accepted {
			if doc.codeNumber == codeNumber {
				return doc.content, true
			}
		}
	}
	return nil, false
}

func (a *mockAuthority) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		a.writeOAuthError(w, "invalid_request", "malformed form body")
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" {
		a.writeOAuthError(w, "unsupported_grant_type", "only client_credentials is supported")
		return
	}
	if r.PostForm.Get("client_id") == "" || r.PostForm.Get("client_secret") != testSecretKey {
		a.writeOAuthError(w, "invalid_client", "client authentication failed")
		return
	}
	if r.PostForm.Get("scope") != myinvois.RequiredScope {
		a.writeOAuthError(w, "invalid_scope", "scope must be "+myinvois.RequiredScope)
		return
	}

	a.mu.Lock()
	a.tokenGrants++
	token := fmt.Sprintf("e2e-token-%d", a.tokenGrants)
	a.issuedTokens[token] = true
	a.grantTINs = append(a.grantTINs, r.Header.Get("onbehalfof"))
	a.mu.Unlock()

	a.writeJSON(w, http.StatusOK, myinvois.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		Scope:       myinvois.RequiredScope,
	})
}

// authorize rejects requests that do not carry a token this authority minted.
func (a *mockAuthority) authorize(w http.ResponseWriter, r *http.Request) bool {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	a.mu.Lock()
	ok := a.issuedTokens[raw]
	a.mu.Unlock()

	if !ok {
		a.writeError(w, http.StatusUnauthorized, "unauthorized", "missing or unknown bearer token")
	}
	return ok
}

func (a *mockAuthority) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		a.writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
		return
	}

	var request struct {
		Documents []struct {
			Format       string `json:"format"`
			Document     string `json:"document"`
			DocumentHash string `json:"documentHash"`
			CodeNumber   string `json:"codeNumber"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		a.writeError(w, http.StatusBadRequest, "BadArgument", "malformed submission body")
		return
	}
	if len(request.Documents) == 0 {
		a.writeError(w, http.StatusBadRequest, "BadArgument", "submission carries no documents")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Identifiers are ULID-shaped, like the real authority's.
	sub := &recordedSubmission{
		uid:        idx.New().String(),
		received:   time.Now().UTC(),
		onBehalfOf: r.Header.Get("onbehalfof"),
	}

	response := struct {
		SubmissionUID     string                      `json:"submissionUID"`
		AcceptedDocuments []myinvois.AcceptedDocument `json:"acceptedDocuments"`
		RejectedDocuments []myinvois.RejectedDocument `json:"rejectedDocuments"`
	}{SubmissionUID: sub.uid}

	for _, doc := range request.Documents {
		content, err := base64.StdEncoding.DecodeString(doc.Document)
		if err != nil {
			response.RejectedDocuments = append(response.RejectedDocuments, myinvois.RejectedDocument{
				CodeNumber: doc.CodeNumber,
				Error:      myinvois.ErrorDetail{Code: "BadArgument", Message: "document is not valid base64"},
			})
			continue
		}
		sum := sha256.Sum256(content)
		if hex.EncodeToString(sum[:]) != doc.DocumentHash {
			response.RejectedDocuments = append(response.RejectedDocuments, myinvois.RejectedDocument{
				CodeNumber: doc.CodeNumber,
				Error:      myinvois.ErrorDetail{Code: "HashMismatch", Message: "documentHash does not match document content"},
			})
			continue
		}

		accepted := recordedDocument{
			uuid:       idx.New().String(),
			codeNumber: doc.CodeNumber,
			content:    content,
		}
		sub.accepted = append(sub.accepted, accepted)
		response.AcceptedDocuments = append(response.AcceptedDocuments, myinvois.AcceptedDocument{
			UUID:       accepted.uuid,
			CodeNumber: accepted.codeNumber,
		})
	}

	a.submissions[sub.uid] = sub
	a.writeJSON(w, http.StatusAccepted, response)
}

func (a *mockAuthority) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r) {
		return
	}
	uid := strings.TrimPrefix(r.URL.Path, "/api/v1.0/documentsubmissions/")

	a.mu.Lock()
	defer a.mu.Unlock()

	sub, ok := a.submissions[uid]
	if !ok {
		a.writeError(w, http.StatusNotFound, "NotFound", "no such submission")
		return
	}
	sub.polls++

	status := myinvois.SubmissionStatus{
		SubmissionUID:    sub.uid,
		DocumentCount:    len(sub.accepted),
		DateTimeReceived: sub.received,
		OverallStatus:    myinvois.SubmissionInProgress,
	}
	if sub.polls > a.pollsUntilValid {
		status.OverallStatus = myinvois.SubmissionValid
		validated := time.Now().UTC()
		for _, doc := range sub.accepted {
			status.DocumentSummary = append(status.DocumentSummary, myinvois.DocumentSummary{
				UUID:              doc.uuid,
				SubmissionUID:     sub.uid,
				LongID:            "LID" + doc.uuid,
				InternalID:        doc.codeNumber,
				TypeName:          "Invoice",
				TypeVersionName:   "1.1",
				IssuerTIN:         testTIN,
				DateTimeIssued:    sub.received,
				DateTimeReceived:  sub.received,
				DateTimeValidated: &validated,
				TotalSales:        decimal.NewFromFloat(112.50),
				NetAmount:         decimal.NewFromFloat(112.50),
				Total:             decimal.NewFromFloat(112.50),
				Status:            myinvois.DocumentStatusValid,
			})
		}
	}

	a.writeJSON(w, http.StatusOK, status)
}

func (a *mockAuthority) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.t.Errorf("mock authority failed to encode response: %v", err)
	}
}

func (a *mockAuthority) writeError(w http.ResponseWriter, status int, code, message string) {
	a.writeJSON(w, status, map[string]myinvois.ErrorDetail{
		"error": {Code: code, Message: message},
	})
}

func (a *mockAuthority) writeOAuthError(w http.ResponseWriter, code, description string) {
	a.writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
