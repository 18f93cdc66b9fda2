package sqlite

import (
	"context"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

// VerifyIntegrity cross-checks the copy table against the reservation ledger.
// A copy must be reserved iff exactly one active reservation references it.
// Disagreement indicates corrupted state and is reported, never repaired.
func (s *Store) VerifyIntegrity(ctx context.Context) ([]persistence.IntegrityIssue, error) {
	var issues []persistence.IntegrityIssue

	// Reserved copies with no active reservation.
	orphaned, err := s.integrityQuery(ctx, `
		SELECT c.id, ''
		FROM copies c
		WHERE c.state = 'reserved'
		  AND NOT EXISTS (
			SELECT 1 FROM reservations r WHERE r.copy_id = c.id AND r.status = 'active'
		  )
	`, "copy reserved without an active reservation")
	if err != nil {
		return nil, err
	}
	issues = append(issues, orphaned...)

	// Active reservations whose copy is not marked reserved.
	unmarked, err := s.integrityQuery(ctx, `
		SELECT r.copy_id, r.holder_id
		FROM reservations r
		JOIN copies c ON c.id = r.copy_id
		WHERE r.status = 'active' AND c.state != 'reserved'
	`, "active reservation references a copy not marked reserved")
	if err != nil {
		return nil, err
	}
	issues = append(issues, unmarked...)

	return issues, nil
}

func (s *Store) integrityQuery(ctx context.Context, query, description string) ([]persistence.IntegrityIssue, error) {
	rows, err := s.pool.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var issues []persistence.IntegrityIssue
	for rows.Next() {
		issue := persistence.IntegrityIssue{Description: description}
		if err := rows.Scan(&issue.CopyID, &issue.HolderID); err != nil {
			return nil, mapError(err)
		}
		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return issues, nil
}
