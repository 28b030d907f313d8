// Package journal keeps a local record of document submissions made through
// the CLI. One entry per submission: the correlation id minted at submit time,
// the submission UID the authority assigned, accepted/rejected counts and the
// last known processing status. It exists so an operator can answer "what did
// we send and what happened to it" without another round-trip to the API.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/merbau/myinvois/pkg/idx"
)

var (
	ErrNotFound  = errors.New("journal: not found")
	ErrDuplicate = errors.New("journal: already recorded")
)

// Entry is one recorded submission. Timestamps are assigned by the store on
// write, callers only fill in the identity and count fields.
type Entry struct {
	// ID is the ULID correlation id stamped on the submit call.
	ID idx.ID

	// SubmissionUID is the authority-assigned identifier. Unique per entry;
	// status lookups and updates key on it.
	SubmissionUID string

	// OnBehalfOf is the represented taxpayer TIN when the submission was made
	// in intermediary mode, empty for direct submissions.
	OnBehalfOf string

	// DocumentCount is how many documents the batch carried.
	DocumentCount int

	// AcceptedCount and RejectedCount reflect the synchronous screening
	// outcome returned by the submission call.
	AcceptedCount int
	RejectedCount int

	// Status is the last processing status we saw for the submission
	// ("in progress", "valid", "partially valid", "invalid").
	Status string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the journal's data access interface. Concrete drivers (sqlite)
// implement this. The journal is append-mostly: entries are recorded once and
// only their status moves afterwards.
type Store interface {
	// Record inserts a new entry. Returns ErrDuplicate if the submission UID
	// has already been recorded.
	Record(ctx context.Context, e Entry) error

	// UpdateStatus sets the processing status for the entry with the given
	// submission UID and bumps updated_at. Returns ErrNotFound if no entry
	// matches.
	UpdateStatus(ctx context.Context, submissionUID, status string) error

	// Get returns the entry for a submission UID.
	Get(ctx context.Context, submissionUID string) (Entry, error)

	// ListRecent returns up to limit entries, newest first. A limit <= 0
	// falls back to a small default.
	ListRecent(ctx context.Context, limit int) ([]Entry, error)

	// ApplyMigrations brings the schema up to date. Safe to call on every
	// startup; a fully migrated database is a no-op.
	ApplyMigrations() error

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error
}
