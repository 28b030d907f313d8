package sqlite

import (
	"context"
	"time"

	"github.com/merbau/myinvois/internal/journal"
	"github.com/merbau/myinvois/pkg/idx"
)

// defaultListLimit bounds ListRecent when the caller passes no limit.
const defaultListLimit = 20

const selectEntry = `
	SELECT id, submission_uid, on_behalf_of, document_count, accepted_count, rejected_count, status, created_at, updated_at
	FROM submissions`

func (s *Store) Record(ctx context.Context, e journal.Entry) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, submission_uid, on_behalf_of, document_count, accepted_count, rejected_count, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.SubmissionUID, e.OnBehalfOf,
		e.DocumentCount, e.AcceptedCount, e.RejectedCount,
		e.Status, now, now,
	)
	return mapConflict(err)
}

func (s *Store) UpdateStatus(ctx context.Context, submissionUID, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET status = ?, updated_at = ? WHERE submission_uid = ?`,
		status, time.Now().UTC(), submissionUID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return journal.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, submissionUID string) (journal.Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE submission_uid = ?`, submissionUID)

	e, err := scanEntry(row)
	if err != nil {
		return journal.Entry{}, mapNotFound(err)
	}
	return e, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	// ULIDs sort by creation time, so id breaks ties for entries recorded
	// within the same timestamp precision.
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (journal.Entry, error) {
	var (
		e  journal.Entry
		id string
	)

	err := row.Scan(
		&id, &e.SubmissionUID, &e.OnBehalfOf,
		&e.DocumentCount, &e.AcceptedCount, &e.RejectedCount,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return journal.Entry{}, err
	}

	e.ID = idx.ID(id)
	return e, nil
}
