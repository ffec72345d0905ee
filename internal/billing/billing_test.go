package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeClosedSession(t *testing.T) {
	start := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	stop := start.Add(90 * time.Minute)
	rate := decimal.NewFromInt(10)

	seconds, fee := Compute(start, &stop, rate, stop.Add(time.Hour))
	if seconds != 5400 {
		t.Fatalf("expected 5400 seconds, got %d", seconds)
	}
	if got := FormatDuration(seconds); got != "1h 30m" {
		t.Fatalf("expected duration 1h 30m, got %q", got)
	}
	if !fee.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected fee 15, got %s", fee)
	}
}

func TestComputeRunningSessionUsesNow(t *testing.T) {
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Minute)
	rate := decimal.NewFromInt(12)

	seconds, fee := Compute(start, nil, rate, now)
	if seconds != 1800 {
		t.Fatalf("expected 1800 seconds, got %d", seconds)
	}
	if got := FormatDuration(seconds); got != "0h 30m" {
		t.Fatalf("expected duration 0h 30m, got %q", got)
	}
	if !fee.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected fee 6, got %s", fee)
	}
}

func TestComputeClockSkewClampsToZero(t *testing.T) {
	start := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)
	stop := start.Add(-10 * time.Minute)

	seconds, fee := Compute(start, &stop, decimal.NewFromInt(10), start)
	if seconds != 0 {
		t.Fatalf("expected 0 seconds for stop before start, got %d", seconds)
	}
	if !fee.IsZero() {
		t.Fatalf("expected zero fee, got %s", fee)
	}

	seconds, _ = Compute(start, nil, decimal.NewFromInt(10), start.Add(-time.Minute))
	if seconds != 0 {
		t.Fatalf("expected 0 seconds for now before start, got %d", seconds)
	}
}

func TestComputeRoundsHalfUp(t *testing.T) {
	start := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	rate := decimal.NewFromInt(10)

	// 27 minutes at $10/hr is $4.50, which rounds up to $5.
	stop := start.Add(27 * time.Minute)
	_, fee := Compute(start, &stop, rate, stop)
	if !fee.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 4.50 to round to 5, got %s", fee)
	}

	// 26 minutes is $4.33, which rounds down to $4.
	stop = start.Add(26 * time.Minute)
	_, fee = Compute(start, &stop, rate, stop)
	if !fee.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 4.33 to round to 4, got %s", fee)
	}
}

func TestComputeFeeMonotonicInDuration(t *testing.T) {
	start := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	rate := decimal.RequireFromString("7.50")

	prev := decimal.Zero
	for minutes := 0; minutes <= 240; minutes += 7 {
		stop := start.Add(time.Duration(minutes) * time.Minute)
		_, fee := Compute(start, &stop, rate, stop)
		if fee.LessThan(prev) {
			t.Fatalf("fee decreased from %s to %s at %d minutes", prev, fee, minutes)
		}
		prev = fee
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0h 00m"},
		{59, "0h 00m"},
		{60, "0h 01m"},
		{5400, "1h 30m"},
		{3600*11 + 60*5, "11h 05m"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatFee(t *testing.T) {
	if got := FormatFee(decimal.NewFromInt(15)); got != "$15" {
		t.Fatalf("expected $15, got %q", got)
	}
	if got := FormatFee(decimal.NewFromInt(1234)); got != "$1,234" {
		t.Fatalf("expected $1,234, got %q", got)
	}
	if got := FormatFee(decimal.NewFromInt(-5)); got != "-$5" {
		t.Fatalf("expected -$5, got %q", got)
	}
}
