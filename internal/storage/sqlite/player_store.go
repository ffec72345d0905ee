package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardclub/tabled/internal/storage"
	"github.com/shopspring/decimal"
)

type playerStore struct {
	db *sql.DB
}

func (s *playerStore) Get(ctx context.Context, id int64) (*storage.Player, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, nickname, category_id, balance, email, phone, inactive
		FROM player WHERE id = ?`, id)

	var p storage.Player
	var balance string
	err := row.Scan(&p.ID, &p.Name, &p.Nickname, &p.CategoryID, &balance, &p.Email, &p.Phone, &p.Inactive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	if p.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("player %d balance %q: %w", id, balance, err)
	}
	return &p, nil
}

// Roster returns active players ordered by display name, nickname
// preferred. This is the player selection view the operator picks from.
func (s *playerStore) Roster(ctx context.Context) ([]storage.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id,
		       CASE WHEN nickname <> '' THEN nickname ELSE name END AS display_name,
		       balance
		FROM player
		WHERE inactive = 0
		ORDER BY display_name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var roster []storage.RosterEntry
	for rows.Next() {
		var entry storage.RosterEntry
		var balance string
		if err := rows.Scan(&entry.PlayerID, &entry.DisplayName, &balance); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		if entry.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("roster balance %q: %w", balance, err)
		}
		roster = append(roster, entry)
	}
	return roster, rows.Err()
}

func (s *playerStore) Upsert(ctx context.Context, p storage.Player) (int64, error) {
	if p.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO player (name, nickname, category_id, balance, email, phone, inactive)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Nickname, p.CategoryID, p.Balance.String(), p.Email, p.Phone, p.Inactive)
		if err != nil {
			return 0, fmt.Errorf("insert player: %w", err)
		}
		return res.LastInsertId()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE player
		SET name = ?, nickname = ?, category_id = ?, balance = ?, email = ?, phone = ?, inactive = ?
		WHERE id = ?`,
		p.Name, p.Nickname, p.CategoryID, p.Balance.String(), p.Email, p.Phone, p.Inactive, p.ID)
	if err != nil {
		return 0, fmt.Errorf("update player %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, storage.ErrNotFound
	}
	return p.ID, nil
}
