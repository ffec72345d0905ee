package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// ErrConflict is returned when an insert would violate the
// one-open-session-per-player rule.
var ErrConflict = errors.New("storage: open session already exists")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Players() PlayerStore
	Categories() CategoryStore
	Sessions() SessionStore
}

// PlayerStore manages player records. Players are created and edited by
// roster management; the session core only reads them.
type PlayerStore interface {
	Get(ctx context.Context, id int64) (*Player, error)
	Roster(ctx context.Context) ([]RosterEntry, error)
	Upsert(ctx context.Context, player Player) (int64, error)
}

// CategoryStore manages player categories and their hourly rates.
type CategoryStore interface {
	Get(ctx context.Context, id int64) (*PlayerCategory, error)
	List(ctx context.Context) ([]PlayerCategory, error)
	Upsert(ctx context.Context, category PlayerCategory) (int64, error)
}

// SessionStore manages session records. A session with a null stop epoch
// is open; closing sets the stop epoch and never deletes the row.
type SessionStore interface {
	Insert(ctx context.Context, playerID, startEpoch int64) (*Session, error)
	SetStop(ctx context.Context, sessionID, stopEpoch int64) error
	FindOpen(ctx context.Context, playerID int64) (*Session, error)
	Entry(ctx context.Context, sessionID int64) (*SessionEntry, error)
	ListEntries(ctx context.Context) ([]SessionEntry, error)
}
