package sqlite

import (
	"context"
	"database/sql"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

// EnqueueWaitlist inserts a waitlist entry. A duplicate (holder, title,
// location) enqueue is an idempotent no-op; the return value reports whether
// the entry was newly added.
func (s *Store) EnqueueWaitlist(ctx context.Context, entry persistence.WaitlistEntry) (bool, error) {
	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO waitlist (holder_id, title, location, enqueued_at, notified)
		 VALUES (?, ?, ?, ?, 0)`,
		entry.HolderID, entry.Title, entry.Location, formatTime(entry.EnqueuedAt))
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DequeueWaitlist removes an entry unconditionally. Removing an absent entry
// is not an error; both the success path and explicit cancel use this.
func (s *Store) DequeueWaitlist(ctx context.Context, holderID, title, location string) (bool, error) {
	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`DELETE FROM waitlist WHERE holder_id = ? AND LOWER(title) = LOWER(?) AND location = ?`,
		holderID, title, location)
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// OldestUnnotified returns the earliest-enqueued entry that has not been
// notified, or ErrNotFound. FIFO order is keyed by enqueue time.
func (s *Store) OldestUnnotified(ctx context.Context, title, location string) (persistence.WaitlistEntry, error) {
	query := `
		SELECT holder_id, title, location, enqueued_at, notified
		FROM waitlist
		WHERE LOWER(title) = LOWER(?) AND location = ? AND notified = 0
		ORDER BY enqueued_at ASC, holder_id ASC
		LIMIT 1
	`

	var entry persistence.WaitlistEntry
	var enqueuedAt string
	var notified int

	err := s.pool.conn(ctx).QueryRowContext(ctx, query, title, location).Scan(
		&entry.HolderID,
		&entry.Title,
		&entry.Location,
		&enqueuedAt,
		&notified,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.WaitlistEntry{}, persistence.ErrNotFound
		}
		return persistence.WaitlistEntry{}, mapError(err)
	}

	entry.Notified = notified != 0
	if entry.EnqueuedAt, err = parseTime(enqueuedAt, "enqueued_at"); err != nil {
		return persistence.WaitlistEntry{}, err
	}

	return entry, nil
}

// MarkNotified flips the notified flag, guarded by notified = 0 so two sweeps
// racing for the same head entry cannot both claim it.
func (s *Store) MarkNotified(ctx context.Context, holderID, title, location string) (bool, error) {
	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`UPDATE waitlist SET notified = 1
		 WHERE holder_id = ? AND LOWER(title) = LOWER(?) AND location = ? AND notified = 0`,
		holderID, title, location)
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// QueuesWithWaiters lists the distinct (title, location) pairs that still
// have unnotified entries, for the reconciliation pass.
func (s *Store) QueuesWithWaiters(ctx context.Context) ([]persistence.TitleLocation, error) {
	rows, err := s.pool.conn(ctx).QueryContext(ctx,
		`SELECT DISTINCT title, location FROM waitlist WHERE notified = 0 ORDER BY title, location`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var queues []persistence.TitleLocation
	for rows.Next() {
		var queue persistence.TitleLocation
		if err := rows.Scan(&queue.Title, &queue.Location); err != nil {
			return nil, mapError(err)
		}
		queues = append(queues, queue)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return queues, nil
}
