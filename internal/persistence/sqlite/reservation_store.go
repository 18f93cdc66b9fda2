package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

const reservationColumns = `
	id, holder_id, copy_id, title, location, start_time, duration, end_time,
	status, extension_used, overdue_escalated, last_overdue_notified_at, created_at
`

// InsertReservation stores a new ledger entry. The partial unique indexes on
// (copy_id) and (holder_id) for active rows reject double holds at the
// storage level; violations surface as ErrDuplicate.
func (s *Store) InsertReservation(ctx context.Context, reservation persistence.Reservation) error {
	query := `
		INSERT INTO reservations
			(id, holder_id, copy_id, title, location, start_time, duration, end_time,
			 status, extension_used, overdue_escalated, last_overdue_notified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.pool.conn(ctx).ExecContext(ctx, query,
		reservation.ID,
		reservation.HolderID,
		reservation.CopyID,
		reservation.Title,
		reservation.Location,
		formatTime(reservation.Start),
		reservation.Duration,
		formatTime(reservation.End),
		string(reservation.Status),
		boolToInt(reservation.ExtensionUsed),
		boolToInt(reservation.OverdueEscalated),
		nullableTime(reservation.LastOverdueNotifiedAt),
		formatTime(reservation.CreatedAt),
	)
	return mapError(err)
}

// GetReservation retrieves a ledger entry by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservationRow(s.pool.conn(ctx).QueryRowContext(ctx, query, id))
}

// ActiveReservationForHolder returns the holder's single active reservation.
func (s *Store) ActiveReservationForHolder(ctx context.Context, holderID string) (persistence.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE holder_id = ? AND status = 'active'
		LIMIT 1
	`
	return scanReservationRow(s.pool.conn(ctx).QueryRowContext(ctx, query, holderID))
}

// ActiveReservationsForTitle returns active entries for a title at a
// location, oldest first. Title matching is case-insensitive.
func (s *Store) ActiveReservationsForTitle(ctx context.Context, title, location string) ([]persistence.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE LOWER(title) = LOWER(?) AND location = ? AND status = 'active'
		ORDER BY start_time ASC, id ASC
	`
	return s.queryReservations(ctx, query, title, location)
}

// ListActiveReservations returns every active ledger entry ordered by end time.
func (s *Store) ListActiveReservations(ctx context.Context) ([]persistence.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'active'
		ORDER BY end_time ASC, id ASC
	`
	return s.queryReservations(ctx, query)
}

// CompleteReservation marks an active reservation completed. Completed is a
// terminal state, so the update is guarded by the current status.
func (s *Store) CompleteReservation(ctx context.Context, id string) error {
	return s.guardedUpdate(ctx,
		`UPDATE reservations SET status = 'completed' WHERE id = ? AND status = 'active'`, id)
}

// ExtendReservation pushes the end time forward and sets the monotonic
// extension flag, guarded so a second extension can never apply.
func (s *Store) ExtendReservation(ctx context.Context, id string, newEnd time.Time) error {
	return s.guardedUpdate(ctx,
		`UPDATE reservations SET end_time = ?, extension_used = 1
		 WHERE id = ? AND status = 'active' AND extension_used = 0`,
		formatTime(newEnd), id)
}

// ClaimMilestone records a milestone reminder in the durable ledger. The
// primary key on (reservation_id, milestone) makes the claim succeed at most
// once; a repeat sweep observes false and skips delivery.
func (s *Store) ClaimMilestone(ctx context.Context, reservationID, milestone string, sentAt time.Time) (bool, error) {
	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO reservation_reminders (reservation_id, milestone, sent_at)
		 VALUES (?, ?, ?)`,
		reservationID, milestone, formatTime(sentAt))
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClaimOverdueNotice advances last_overdue_notified_at when no notice was
// sent within the cooldown window. RFC3339 UTC strings compare
// lexicographically, so the guard runs entirely in the storage engine.
func (s *Store) ClaimOverdueNotice(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error) {
	threshold := formatTime(now.Add(-cooldown))

	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`UPDATE reservations SET last_overdue_notified_at = ?
		 WHERE id = ? AND status = 'active'
		   AND (last_overdue_notified_at IS NULL OR last_overdue_notified_at <= ?)`,
		formatTime(now), id, threshold)
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClaimEscalation sets the monotonic overdue-escalated flag, reporting
// whether this call won the transition.
func (s *Store) ClaimEscalation(ctx context.Context, id string) (bool, error) {
	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`UPDATE reservations SET overdue_escalated = 1
		 WHERE id = ? AND status = 'active' AND overdue_escalated = 0`, id)
	if err != nil {
		return false, mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) guardedUpdate(ctx context.Context, query string, args ...any) error {
	result, err := s.pool.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (s *Store) queryReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := s.pool.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return reservations, nil
}

func scanReservationRow(row *sql.Row) (persistence.Reservation, error) {
	reservation, err := scanReservation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, err
	}
	return reservation, nil
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var start, end, createdAt, status string
	var extensionUsed, overdueEscalated int
	var lastOverdue sql.NullString

	err := row.Scan(
		&reservation.ID,
		&reservation.HolderID,
		&reservation.CopyID,
		&reservation.Title,
		&reservation.Location,
		&start,
		&reservation.Duration,
		&end,
		&status,
		&extensionUsed,
		&overdueEscalated,
		&lastOverdue,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Reservation{}, err
		}
		return persistence.Reservation{}, mapError(err)
	}

	reservation.Status = persistence.ReservationStatus(status)
	reservation.ExtensionUsed = extensionUsed != 0
	reservation.OverdueEscalated = overdueEscalated != 0

	if reservation.Start, err = parseTime(start, "start_time"); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.End, err = parseTime(end, "end_time"); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Reservation{}, err
	}
	if lastOverdue.Valid {
		t, err := parseTime(lastOverdue.String, "last_overdue_notified_at")
		if err != nil {
			return persistence.Reservation{}, err
		}
		reservation.LastOverdueNotifiedAt = &t
	}

	return reservation, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}
