package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestAppendFillsTimestampAndID(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	if err := log.Append(ctx, Event{Kind: KindSessionOpened, PlayerID: 7}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Fatal("expected a generated event id")
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("expected a filled timestamp")
	}
	if events[0].Kind != KindSessionOpened || events[0].PlayerID != 7 {
		t.Fatalf("event round-trip mismatch: %+v", events[0])
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)

	kinds := []Kind{KindSessionOpened, KindClockReset, KindSessionClosed}
	for i, kind := range kinds {
		event := Event{Kind: kind, Timestamp: base.Add(time.Duration(i) * time.Second)}
		if err := log.Append(ctx, event); err != nil {
			t.Fatalf("append %s: %v", kind, err)
		}
	}

	events, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Kind != KindSessionClosed || events[2].Kind != KindSessionOpened {
		t.Fatalf("expected newest first, got %+v", events)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		event := Event{
			Kind:      KindPaymentRequested,
			PlayerID:  int64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := log.Append(ctx, event); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	events, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].PlayerID != 4 || events[1].PlayerID != 3 {
		t.Fatalf("expected the two newest events, got %+v", events)
	}
}

func TestLogSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	log, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := log.Append(ctx, Event{Kind: KindClockReset, Detail: "2025-03-01 19:30"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	log, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = log.Close() }()

	events, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 || events[0].Detail != "2025-03-01 19:30" {
		t.Fatalf("expected persisted event, got %+v", events)
	}
}
