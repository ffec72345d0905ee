// Package policy decides what happens when the operator picks a player
// from the roster: resume their running session, seat them, or send them
// to the desk to settle up first.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cardclub/tabled/internal/audit"
	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/ledger"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/rs/zerolog"
)

// Action is the outcome of a player selection.
type Action string

const (
	// ActionResume selects the player's already-running session.
	ActionResume Action = "resume"
	// ActionStart opens a new session for the player.
	ActionStart Action = "start"
	// ActionRequestPayment signals that the player owes money before
	// playing; collection itself is handled at the desk.
	ActionRequestPayment Action = "request_payment"
)

// Decision carries the chosen action and, for resume and start, the
// session it refers to.
type Decision struct {
	Action  Action           `json:"action"`
	Session *storage.Session `json:"session,omitempty"`
}

// Selector applies the selection rules. At-most-one-open-session-per-
// player is enforced here, ahead of the storage backstop.
type Selector struct {
	ledger       *ledger.Ledger
	clock        clock.Clock
	defaultStart time.Time
	trail        *audit.Log
	logger       zerolog.Logger
}

// NewSelector creates a selector. defaultStart is the operator-confirmed
// session start time for the evening; proposed starts never precede it.
func NewSelector(l *ledger.Ledger, clk clock.Clock, defaultStart time.Time, trail *audit.Log, logger zerolog.Logger) *Selector {
	return &Selector{
		ledger:       l,
		clock:        clk,
		defaultStart: defaultStart,
		trail:        trail,
		logger:       logger.With().Str("component", "selector").Logger(),
	}
}

// OnPlayerSelected routes a roster pick:
//
//   - a player with an open session resumes it, never starting a second;
//   - a player with a non-negative balance gets a new session starting at
//     the later of the default start and now rounded up to the next
//     whole minute;
//   - a player in arrears is flagged for payment.
func (s *Selector) OnPlayerSelected(ctx context.Context, player storage.RosterEntry) (*Decision, error) {
	open, err := s.ledger.FindOpenSession(ctx, player.PlayerID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		s.logger.Debug().
			Int64("player_id", player.PlayerID).
			Int64("session_id", open.ID).
			Msg("Resuming running session")
		return &Decision{Action: ActionResume, Session: open}, nil
	}

	if player.Balance.Sign() < 0 {
		s.logger.Info().
			Int64("player_id", player.PlayerID).
			Str("balance", player.Balance.String()).
			Msg("Payment required before seating")
		if s.trail != nil {
			if err := s.trail.Append(ctx, audit.Event{
				Kind:     audit.KindPaymentRequested,
				PlayerID: player.PlayerID,
				Detail:   player.Balance.String(),
			}); err != nil {
				s.logger.Error().Err(err).Msg("Failed to record audit event")
			}
		}
		return &Decision{Action: ActionRequestPayment}, nil
	}

	start := s.proposedStart()
	session, err := s.ledger.OpenSession(ctx, player.PlayerID, start)
	if errors.Is(err, storage.ErrConflict) {
		// Raced with another open; fall back to resuming it rather
		// than creating a duplicate.
		open, findErr := s.ledger.FindOpenSession(ctx, player.PlayerID)
		if findErr == nil && open != nil {
			return &Decision{Action: ActionResume, Session: open}, nil
		}
		return nil, fmt.Errorf("player %d: %w", player.PlayerID, err)
	}
	if err != nil {
		return nil, err
	}
	return &Decision{Action: ActionStart, Session: session}, nil
}

// proposedStart is the later of the default start and the clock reading
// rounded up to the next whole minute.
func (s *Selector) proposedStart() time.Time {
	start := clock.CeilMinute(s.clock.Now())
	if s.defaultStart.After(start) {
		start = s.defaultStart
	}
	return start
}

// StopTime rounds a close instant down to the whole minute, the
// granularity stop epochs are billed at.
func StopTime(now time.Time) time.Time {
	return clock.FloorMinute(now)
}
