// Package ledger manages the set of table-time sessions over the
// storage collaborator, recomputing duration and fee for open sessions
// on every read.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cardclub/tabled/internal/audit"
	"github.com/cardclub/tabled/internal/billing"
	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/metrics"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Line is one row of the session view: the stored entry annotated with
// its live-computed duration and fee. For an open line the effective
// stop is the clock reading at list time.
type Line struct {
	storage.SessionEntry
	EffectiveStop int64           `json:"effective_stop"`
	Seconds       int64           `json:"seconds"`
	Fee           decimal.Decimal `json:"fee"`
	Running       bool            `json:"running"`
}

// Ledger owns the authoritative session view for a presentation cycle.
// Mutations persist through the store before returning.
//
// Precondition: one operator drives the club at a time. The store's
// open-session index catches a racing duplicate open, but nothing here
// coordinates concurrent operators beyond that.
type Ledger struct {
	store  storage.Store
	clock  clock.Clock
	trail  *audit.Log
	logger zerolog.Logger
}

// New creates a ledger over the given store and clock. The audit trail
// may be nil, in which case operator actions are only logged.
func New(store storage.Store, clk clock.Clock, trail *audit.Log, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		clock:  clk,
		trail:  trail,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

// ListSessions returns every session, oldest start first, with duration
// and fee recomputed now. Each call issues a fresh read; the web layer
// re-polls every tick.
func (l *Ledger) ListSessions(ctx context.Context) ([]Line, error) {
	entries, err := l.store.Sessions().ListEntries(ctx)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_sessions").Inc()
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := l.clock.Now()
	lines := make([]Line, 0, len(entries))
	for _, entry := range entries {
		line := Line{SessionEntry: entry}
		start := time.Unix(entry.StartEpoch, 0)

		var stop *time.Time
		if entry.StopEpoch != nil {
			t := time.Unix(*entry.StopEpoch, 0)
			stop = &t
			line.EffectiveStop = *entry.StopEpoch
		} else {
			line.Running = true
			line.EffectiveStop = now.Unix()
		}

		line.Seconds, line.Fee = billing.Compute(start, stop, entry.HourlyRate, now)
		lines = append(lines, line)
	}
	return lines, nil
}

// OpenSession starts a new session for the player. Callers are expected
// to check FindOpenSession first; a conflicting open session surfaces as
// storage.ErrConflict and no duplicate row is created.
func (l *Ledger) OpenSession(ctx context.Context, playerID int64, start time.Time) (*storage.Session, error) {
	session, err := l.store.Sessions().Insert(ctx, playerID, start.Unix())
	if err != nil {
		if !errors.Is(err, storage.ErrConflict) {
			metrics.StorageErrors.WithLabelValues("open_session").Inc()
		}
		return nil, fmt.Errorf("open session for player %d: %w", playerID, err)
	}

	metrics.SessionsOpened.Inc()
	metrics.OpenSessions.Inc()
	l.logger.Info().
		Int64("session_id", session.ID).
		Int64("player_id", playerID).
		Time("start", start).
		Msg("Session opened")
	l.record(ctx, audit.Event{
		Kind:      audit.KindSessionOpened,
		PlayerID:  playerID,
		SessionID: session.ID,
	})

	return session, nil
}

// CloseSession sets the stop time on an open session. Closing a session
// that is not open reports storage.ErrNotFound and changes nothing.
func (l *Ledger) CloseSession(ctx context.Context, sessionID int64, stop time.Time) error {
	if err := l.store.Sessions().SetStop(ctx, sessionID, stop.Unix()); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			metrics.StorageErrors.WithLabelValues("close_session").Inc()
		}
		return fmt.Errorf("close session %d: %w", sessionID, err)
	}

	metrics.SessionsClosed.Inc()
	metrics.OpenSessions.Dec()

	event := audit.Event{Kind: audit.KindSessionClosed, SessionID: sessionID}
	if entry, err := l.store.Sessions().Entry(ctx, sessionID); err == nil {
		_, fee := billing.Compute(time.Unix(entry.StartEpoch, 0), &stop, entry.HourlyRate, stop)
		f, _ := fee.Float64()
		metrics.FeesCharged.Observe(f)
		event.PlayerID = entry.PlayerID
		event.Detail = billing.FormatFee(fee)
	}

	l.logger.Info().
		Int64("session_id", sessionID).
		Time("stop", stop).
		Msg("Session closed")
	l.record(ctx, event)

	return nil
}

// FindOpenSession returns the player's open session, or nil when the
// player has none.
func (l *Ledger) FindOpenSession(ctx context.Context, playerID int64) (*storage.Session, error) {
	session, err := l.store.Sessions().FindOpen(ctx, playerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		metrics.StorageErrors.WithLabelValues("find_open_session").Inc()
		return nil, fmt.Errorf("find open session for player %d: %w", playerID, err)
	}
	return session, nil
}

// record appends to the audit trail; a failed append is logged and never
// fails the operation it describes.
func (l *Ledger) record(ctx context.Context, event audit.Event) {
	if l.trail == nil {
		return
	}
	if err := l.trail.Append(ctx, event); err != nil {
		l.logger.Error().Err(err).Str("kind", string(event.Kind)).Msg("Failed to record audit event")
	}
}
