package policy

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/ledger"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/cardclub/tabled/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestSelector(t *testing.T, defaultStart time.Time) (*Selector, storage.Store, *clock.Fixed) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "club.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := &clock.Fixed{Time: defaultStart}
	l := ledger.New(store, clk, nil, zerolog.Nop())
	return NewSelector(l, clk, defaultStart, nil, zerolog.Nop()), store, clk
}

func seedRosterEntry(t *testing.T, store storage.Store, name, balance string) storage.RosterEntry {
	t.Helper()
	ctx := context.Background()

	categoryID, err := store.Categories().Upsert(ctx, storage.PlayerCategory{
		Name:       "Member " + name,
		HourlyRate: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	playerID, err := store.Players().Upsert(ctx, storage.Player{
		Name:       name,
		CategoryID: categoryID,
		Balance:    decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("seed player: %v", err)
	}
	return storage.RosterEntry{
		PlayerID:    playerID,
		DisplayName: name,
		Balance:     decimal.RequireFromString(balance),
	}
}

func TestSelectStartsSessionForPaidUpPlayer(t *testing.T) {
	defaultStart := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	s, store, _ := newTestSelector(t, defaultStart)
	player := seedRosterEntry(t, store, "Alice", "20")

	decision, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if decision.Action != ActionStart {
		t.Fatalf("expected start, got %s", decision.Action)
	}
	if decision.Session == nil || decision.Session.StartEpoch != defaultStart.Unix() {
		t.Fatalf("expected session starting at %v, got %+v", defaultStart, decision.Session)
	}
}

func TestSelectResumesOpenSession(t *testing.T) {
	defaultStart := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	s, store, clk := newTestSelector(t, defaultStart)
	player := seedRosterEntry(t, store, "Bob", "0")

	first, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("first select: %v", err)
	}
	if first.Action != ActionStart {
		t.Fatalf("expected start, got %s", first.Action)
	}

	// Selecting again later resumes the same session, never a second one.
	clk.Time = clk.Time.Add(45 * time.Minute)
	second, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("second select: %v", err)
	}
	if second.Action != ActionResume {
		t.Fatalf("expected resume, got %s", second.Action)
	}
	if second.Session.ID != first.Session.ID {
		t.Fatalf("expected session %d, got %d", first.Session.ID, second.Session.ID)
	}
}

func TestSelectFlagsPlayerInArrears(t *testing.T) {
	defaultStart := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	s, store, _ := newTestSelector(t, defaultStart)
	player := seedRosterEntry(t, store, "Carol", "-12.50")

	decision, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if decision.Action != ActionRequestPayment {
		t.Fatalf("expected payment request, got %s", decision.Action)
	}
	if decision.Session != nil {
		t.Fatalf("expected no session, got %+v", decision.Session)
	}

	// No session row was created.
	if _, err := store.Sessions().FindOpen(context.Background(), player.PlayerID); err != storage.ErrNotFound {
		t.Fatalf("expected no open session, got %v", err)
	}
}

func TestSelectArrearsChecksRunningSessionFirst(t *testing.T) {
	defaultStart := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	s, store, _ := newTestSelector(t, defaultStart)

	// Seated while paid up, then the balance goes negative. Selecting
	// again must still resume the running session.
	player := seedRosterEntry(t, store, "David", "5")
	first, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("first select: %v", err)
	}

	player.Balance = decimal.RequireFromString("-5")
	decision, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("second select: %v", err)
	}
	if decision.Action != ActionResume || decision.Session.ID != first.Session.ID {
		t.Fatalf("expected resume of session %d, got %+v", first.Session.ID, decision)
	}
}

func TestProposedStartBeforeDoorsOpen(t *testing.T) {
	defaultStart := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	s, store, clk := newTestSelector(t, defaultStart)
	player := seedRosterEntry(t, store, "Early", "10")

	// Arriving before the default start is billed from the default start.
	clk.Time = time.Date(2025, 3, 1, 18, 45, 12, 0, time.UTC)
	decision, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if decision.Session.StartEpoch != defaultStart.Unix() {
		t.Fatalf("expected start at %v, got %d", defaultStart, decision.Session.StartEpoch)
	}
}

func TestProposedStartAfterDoorsOpenRoundsUp(t *testing.T) {
	defaultStart := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	s, store, clk := newTestSelector(t, defaultStart)
	player := seedRosterEntry(t, store, "Late", "10")

	// Mid-minute arrivals are billed from the next whole minute.
	clk.Time = time.Date(2025, 3, 1, 20, 14, 30, 0, time.UTC)
	decision, err := s.OnPlayerSelected(context.Background(), player)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := time.Date(2025, 3, 1, 20, 15, 0, 0, time.UTC)
	if decision.Session.StartEpoch != want.Unix() {
		t.Fatalf("expected start at %v, got %d", want, decision.Session.StartEpoch)
	}
}

func TestStopTimeFloorsToMinute(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 59, 58, 0, time.UTC)
	want := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	if got := StopTime(now); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
