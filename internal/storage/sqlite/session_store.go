package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardclub/tabled/internal/storage"
	"github.com/shopspring/decimal"
)

type sessionStore struct {
	db *sql.DB
}

// Insert opens a new session for the player. The conflict check and the
// insert run in one transaction; the partial unique index on open
// sessions is the backstop should two operators race past the check.
func (s *sessionStore) Insert(ctx context.Context, playerID, startEpoch int64) (*storage.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin open session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM session WHERE player_id = ? AND stop_epoch IS NULL", playerID).Scan(&existing)
	if err == nil {
		return nil, storage.ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check open session for player %d: %w", playerID, err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO session (player_id, start_epoch) VALUES (?, ?)", playerID, startEpoch)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("insert session for player %d: %w", playerID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit open session: %w", err)
	}

	return &storage.Session{ID: id, PlayerID: playerID, StartEpoch: startEpoch}, nil
}

// SetStop closes an open session. Closing an already-closed or unknown
// session reports ErrNotFound and changes nothing.
func (s *sessionStore) SetStop(ctx context.Context, sessionID, stopEpoch int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE session SET stop_epoch = ? WHERE id = ? AND stop_epoch IS NULL",
		stopEpoch, sessionID)
	if err != nil {
		return fmt.Errorf("stop session %d: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *sessionStore) FindOpen(ctx context.Context, playerID int64) (*storage.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, player_id, start_epoch FROM session WHERE player_id = ? AND stop_epoch IS NULL",
		playerID)

	var session storage.Session
	err := row.Scan(&session.ID, &session.PlayerID, &session.StartEpoch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find open session for player %d: %w", playerID, err)
	}
	return &session, nil
}

// Entry returns one session joined with its player and category.
func (s *sessionStore) Entry(ctx context.Context, sessionID int64) (*storage.SessionEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.player_id, s.start_epoch, s.stop_epoch,
		       CASE WHEN p.nickname <> '' THEN p.nickname ELSE p.name END AS player_name,
		       c.name, c.hourly_rate
		FROM session s
		JOIN player p ON p.id = s.player_id
		JOIN player_category c ON c.id = p.category_id
		WHERE s.id = ?`, sessionID)

	var entry storage.SessionEntry
	var stop sql.NullInt64
	var rate string
	err := row.Scan(&entry.ID, &entry.PlayerID, &entry.StartEpoch, &stop,
		&entry.PlayerName, &entry.CategoryName, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session entry %d: %w", sessionID, err)
	}
	if stop.Valid {
		epoch := stop.Int64
		entry.StopEpoch = &epoch
	}
	if entry.HourlyRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("session entry rate %q: %w", rate, err)
	}
	return &entry, nil
}

// ListEntries returns every session joined with the player's display name
// and category rate, oldest start first.
func (s *sessionStore) ListEntries(ctx context.Context) ([]storage.SessionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.player_id, s.start_epoch, s.stop_epoch,
		       CASE WHEN p.nickname <> '' THEN p.nickname ELSE p.name END AS player_name,
		       c.name, c.hourly_rate
		FROM session s
		JOIN player p ON p.id = s.player_id
		JOIN player_category c ON c.id = p.category_id
		ORDER BY s.start_epoch, s.id`)
	if err != nil {
		return nil, fmt.Errorf("query session entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []storage.SessionEntry
	for rows.Next() {
		var entry storage.SessionEntry
		var stop sql.NullInt64
		var rate string
		if err := rows.Scan(&entry.ID, &entry.PlayerID, &entry.StartEpoch, &stop,
			&entry.PlayerName, &entry.CategoryName, &rate); err != nil {
			return nil, fmt.Errorf("scan session entry: %w", err)
		}
		if stop.Valid {
			epoch := stop.Int64
			entry.StopEpoch = &epoch
		}
		if entry.HourlyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("session entry rate %q: %w", rate, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
