package sqlite

import (
	"context"
	"database/sql"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

// UpsertHolder inserts a holder or refreshes the display name and location of
// an existing one. The rules-acceptance flag is never reset by an upsert.
func (s *Store) UpsertHolder(ctx context.Context, holder persistence.Holder) error {
	query := `
		INSERT INTO holders (id, display_name, location, rules_accepted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			location     = excluded.location,
			updated_at   = excluded.updated_at
	`

	rulesAccepted := 0
	if holder.RulesAccepted {
		rulesAccepted = 1
	}

	_, err := s.pool.conn(ctx).ExecContext(ctx, query,
		holder.ID,
		holder.DisplayName,
		holder.Location,
		rulesAccepted,
		formatTime(holder.CreatedAt),
		formatTime(holder.UpdatedAt),
	)
	return mapError(err)
}

// GetHolder retrieves a holder by ID.
func (s *Store) GetHolder(ctx context.Context, id string) (persistence.Holder, error) {
	query := `
		SELECT id, display_name, location, rules_accepted, created_at, updated_at
		FROM holders
		WHERE id = ?
	`

	var holder persistence.Holder
	var rulesAccepted int
	var createdAt, updatedAt string

	err := s.pool.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&holder.ID,
		&holder.DisplayName,
		&holder.Location,
		&rulesAccepted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Holder{}, persistence.ErrNotFound
		}
		return persistence.Holder{}, mapError(err)
	}

	holder.RulesAccepted = rulesAccepted != 0
	if holder.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Holder{}, err
	}
	if holder.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.Holder{}, err
	}

	return holder, nil
}

// SetRulesAccepted flags the holder as having accepted the library rules.
func (s *Store) SetRulesAccepted(ctx context.Context, id string) error {
	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`UPDATE holders SET rules_accepted = 1 WHERE id = ?`, id)
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
