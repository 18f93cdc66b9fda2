package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

// InsertCopy stores a new catalog copy and returns its assigned identity.
func (s *Store) InsertCopy(ctx context.Context, copy persistence.Copy) (int64, error) {
	if copy.State == "" {
		copy.State = persistence.CopyAvailable
	}

	query := `
		INSERT INTO copies (title, author, location, shelf, floor, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.pool.conn(ctx).ExecContext(ctx, query,
		copy.Title,
		copy.Author,
		copy.Location,
		nullableInt(copy.Shelf),
		nullableInt(copy.Floor),
		string(copy.State),
		formatTime(copy.CreatedAt),
	)
	if err != nil {
		return 0, mapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted copy id: %w", err)
	}
	return id, nil
}

// GetCopy retrieves a copy by ID.
func (s *Store) GetCopy(ctx context.Context, id int64) (persistence.Copy, error) {
	query := `
		SELECT id, title, author, location, shelf, floor, state, created_at
		FROM copies
		WHERE id = ?
	`
	return s.scanCopyRow(s.pool.conn(ctx).QueryRowContext(ctx, query, id))
}

// TitleExists reports whether any copy of the title exists at the location,
// in any state. Matching is case-insensitive to mirror caller input.
func (s *Store) TitleExists(ctx context.Context, title, location string) (bool, error) {
	var one int
	err := s.pool.conn(ctx).QueryRowContext(ctx,
		`SELECT 1 FROM copies WHERE LOWER(title) = LOWER(?) AND location = ? LIMIT 1`,
		title, location).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

// FindAvailableCopy returns the available copy with the lowest identity for
// the title and location, or ErrNotFound.
func (s *Store) FindAvailableCopy(ctx context.Context, title, location string) (persistence.Copy, error) {
	query := `
		SELECT id, title, author, location, shelf, floor, state, created_at
		FROM copies
		WHERE LOWER(title) = LOWER(?) AND location = ? AND state = 'available'
		ORDER BY id ASC
		LIMIT 1
	`
	return s.scanCopyRow(s.pool.conn(ctx).QueryRowContext(ctx, query, title, location))
}

// SetCopyState flips a copy's availability state. The update is guarded by
// the expected current state so concurrent transitions cannot both succeed.
func (s *Store) SetCopyState(ctx context.Context, id int64, from, to persistence.CopyState) error {
	result, err := s.pool.conn(ctx).ExecContext(ctx,
		`UPDATE copies SET state = ? WHERE id = ? AND state = ?`,
		string(to), id, string(from))
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

// ListAvailableCopies returns every available copy at the location ordered by
// title, then identity.
func (s *Store) ListAvailableCopies(ctx context.Context, location string) ([]persistence.Copy, error) {
	query := `
		SELECT id, title, author, location, shelf, floor, state, created_at
		FROM copies
		WHERE location = ? AND state = 'available'
		ORDER BY title ASC, id ASC
	`

	rows, err := s.pool.conn(ctx).QueryContext(ctx, query, location)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var copies []persistence.Copy
	for rows.Next() {
		copy, err := scanCopy(rows)
		if err != nil {
			return nil, err
		}
		copies = append(copies, copy)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return copies, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanCopyRow(row *sql.Row) (persistence.Copy, error) {
	copy, err := scanCopy(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Copy{}, persistence.ErrNotFound
		}
		return persistence.Copy{}, err
	}
	return copy, nil
}

func scanCopy(row rowScanner) (persistence.Copy, error) {
	var copy persistence.Copy
	var shelf, floor sql.NullInt64
	var state, createdAt string

	err := row.Scan(
		&copy.ID,
		&copy.Title,
		&copy.Author,
		&copy.Location,
		&shelf,
		&floor,
		&state,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Copy{}, err
		}
		return persistence.Copy{}, mapError(err)
	}

	if shelf.Valid {
		value := int(shelf.Int64)
		copy.Shelf = &value
	}
	if floor.Valid {
		value := int(floor.Int64)
		copy.Floor = &value
	}
	copy.State = persistence.CopyState(state)
	if copy.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Copy{}, err
	}

	return copy, nil
}

func nullableInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
