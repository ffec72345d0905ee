package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/cardclub/tabled/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestLedger(t *testing.T) (*Ledger, storage.Store, *clock.Fixed) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "club.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := &clock.Fixed{Time: time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)}
	return New(store, clk, nil, zerolog.Nop()), store, clk
}

func seedPlayer(t *testing.T, store storage.Store, name, rate string) int64 {
	t.Helper()
	ctx := context.Background()

	categoryID, err := store.Categories().Upsert(ctx, storage.PlayerCategory{
		Name:       "Member " + name,
		HourlyRate: decimal.RequireFromString(rate),
	})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	playerID, err := store.Players().Upsert(ctx, storage.Player{
		Name:       name,
		CategoryID: categoryID,
		Balance:    decimal.Zero,
	})
	if err != nil {
		t.Fatalf("seed player: %v", err)
	}
	return playerID
}

func TestOpenCloseFindLifecycle(t *testing.T) {
	l, store, clk := newTestLedger(t)
	ctx := context.Background()
	playerID := seedPlayer(t, store, "Alice", "10")

	found, err := l.FindOpenSession(ctx, playerID)
	if err != nil {
		t.Fatalf("find before open: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no open session, got %+v", found)
	}

	session, err := l.OpenSession(ctx, playerID, clk.Time)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	found, err = l.FindOpenSession(ctx, playerID)
	if err != nil {
		t.Fatalf("find after open: %v", err)
	}
	if found == nil || found.ID != session.ID {
		t.Fatalf("expected open session %d, got %+v", session.ID, found)
	}

	if err := l.CloseSession(ctx, session.ID, clk.Time.Add(time.Hour)); err != nil {
		t.Fatalf("close session: %v", err)
	}

	found, err = l.FindOpenSession(ctx, playerID)
	if err != nil {
		t.Fatalf("find after close: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no open session after close, got %+v", found)
	}
}

func TestOpenSessionConflict(t *testing.T) {
	l, store, clk := newTestLedger(t)
	ctx := context.Background()
	playerID := seedPlayer(t, store, "Bob", "10")

	if _, err := l.OpenSession(ctx, playerID, clk.Time); err != nil {
		t.Fatalf("open session: %v", err)
	}
	if _, err := l.OpenSession(ctx, playerID, clk.Time.Add(time.Minute)); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCloseSessionNotOpen(t *testing.T) {
	l, store, clk := newTestLedger(t)
	ctx := context.Background()
	playerID := seedPlayer(t, store, "Carol", "10")

	session, err := l.OpenSession(ctx, playerID, clk.Time)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if err := l.CloseSession(ctx, session.ID, clk.Time.Add(time.Hour)); err != nil {
		t.Fatalf("close session: %v", err)
	}

	if err := l.CloseSession(ctx, session.ID, clk.Time.Add(2*time.Hour)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for closed session, got %v", err)
	}
	if err := l.CloseSession(ctx, 9999, clk.Time); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestListSessionsComputesLiveAndClosedFees(t *testing.T) {
	l, store, clk := newTestLedger(t)
	ctx := context.Background()
	playerID := seedPlayer(t, store, "David", "10")

	closed, err := l.OpenSession(ctx, playerID, clk.Time)
	if err != nil {
		t.Fatalf("open first session: %v", err)
	}
	if err := l.CloseSession(ctx, closed.ID, clk.Time.Add(90*time.Minute)); err != nil {
		t.Fatalf("close first session: %v", err)
	}
	if _, err := l.OpenSession(ctx, playerID, clk.Time.Add(2*time.Hour)); err != nil {
		t.Fatalf("open second session: %v", err)
	}

	// Read half an hour into the second session.
	clk.Time = clk.Time.Add(2*time.Hour + 30*time.Minute)

	lines, err := l.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	if lines[0].Running {
		t.Fatal("expected first line closed")
	}
	if lines[0].Seconds != 5400 || !lines[0].Fee.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("closed line mismatch: %d seconds, fee %s", lines[0].Seconds, lines[0].Fee)
	}

	if !lines[1].Running {
		t.Fatal("expected second line running")
	}
	if lines[1].Seconds != 1800 || !lines[1].Fee.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("running line mismatch: %d seconds, fee %s", lines[1].Seconds, lines[1].Fee)
	}
	if lines[1].EffectiveStop != clk.Time.Unix() {
		t.Fatalf("expected effective stop at clock reading, got %d", lines[1].EffectiveStop)
	}

	// The running line follows the clock on the next read.
	clk.Time = clk.Time.Add(30 * time.Minute)
	lines, err = l.ListSessions(ctx)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if lines[1].Seconds != 3600 || !lines[1].Fee.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("running line did not advance: %d seconds, fee %s", lines[1].Seconds, lines[1].Fee)
	}
}
