package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardclub/tabled/internal/storage"
	"github.com/shopspring/decimal"
)

type categoryStore struct {
	db *sql.DB
}

func (s *categoryStore) Get(ctx context.Context, id int64) (*storage.PlayerCategory, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, hourly_rate FROM player_category WHERE id = ?", id)

	var c storage.PlayerCategory
	var rate string
	err := row.Scan(&c.ID, &c.Name, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	if c.HourlyRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("category %d rate %q: %w", id, rate, err)
	}
	return &c, nil
}

func (s *categoryStore) List(ctx context.Context) ([]storage.PlayerCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, hourly_rate FROM player_category ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []storage.PlayerCategory
	for rows.Next() {
		var c storage.PlayerCategory
		var rate string
		if err := rows.Scan(&c.ID, &c.Name, &rate); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.HourlyRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("category rate %q: %w", rate, err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *categoryStore) Upsert(ctx context.Context, c storage.PlayerCategory) (int64, error) {
	if c.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO player_category (name, hourly_rate) VALUES (?, ?)",
			c.Name, c.HourlyRate.String())
		if err != nil {
			return 0, fmt.Errorf("insert category: %w", err)
		}
		return res.LastInsertId()
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE player_category SET name = ?, hourly_rate = ? WHERE id = ?",
		c.Name, c.HourlyRate.String(), c.ID)
	if err != nil {
		return 0, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, storage.ErrNotFound
	}
	return c.ID, nil
}
