package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/merbau/myinvois/internal/journal"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed journal. The pure-Go driver keeps the CLI a single
// static binary with no cgo toolchain behind it.
type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Two CLI invocations can race on the same file; wait for the lock
	// instead of surfacing SQLITE_BUSY.
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return journal.ErrNotFound
	}
	return err
}

// mapConflict translates the driver's UNIQUE violation into the journal
// sentinel. modernc/sqlite surfaces constraint failures as opaque errors, so
// the message text is the only stable signal to match on.
func mapConflict(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return journal.ErrDuplicate
	}
	return err
}
