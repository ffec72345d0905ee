// Package clock provides the club wall clock: the current time adjusted
// by an operator-set offset, and a repeating tick that self-corrects so
// it lands on real second or minute boundaries.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrParse is returned for malformed operator-entered time text. Callers
// treat it as "no value supplied" and cancel the flow.
var ErrParse = errors.New("clock: unparseable time")

// Clock provides time information for session accounting.
// This interface allows time to be mocked in tests.
type Clock interface {
	Now() time.Time
}

// Fixed provides a settable time for testing.
type Fixed struct {
	Time time.Time
}

// Now returns the fixed time.
func (f *Fixed) Now() time.Time { return f.Time }

// Resolution selects how often the clock ticks and how times render.
type Resolution time.Duration

const (
	Seconds = Resolution(time.Second)
	Minutes = Resolution(time.Minute)
)

// ParseResolution maps a config string to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch s {
	case "seconds":
		return Seconds, nil
	case "minutes":
		return Minutes, nil
	default:
		return 0, fmt.Errorf("unrecognized clock resolution %q (want seconds or minutes)", s)
	}
}

// TimeFormat returns the display layout for the resolution.
func (r Resolution) TimeFormat() string {
	if r == Minutes {
		return "15:04"
	}
	return "15:04:05"
}

// WallClock is the operator-visible clock. Now is callable whether or
// not the tick is running.
type WallClock struct {
	location   *time.Location
	resolution Resolution
	logger     zerolog.Logger

	// realNow is swapped out in tests.
	realNow func() time.Time

	mu      sync.Mutex
	offset  time.Duration
	running bool
	timer   *time.Timer
	onTick  func(now time.Time)
}

// New creates a stopped wall clock in the club's timezone.
func New(location *time.Location, resolution Resolution, logger zerolog.Logger) *WallClock {
	return &WallClock{
		location:   location,
		resolution: resolution,
		logger:     logger.With().Str("component", "clock").Logger(),
		realNow:    time.Now,
	}
}

// Now returns the current club time: realtime plus the operator offset.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	offset := c.offset
	c.mu.Unlock()
	return c.realNow().Add(offset).In(c.location)
}

// SetOffset adjusts the clock so that Now reads target. The new offset
// applies immediately and to every future tick.
func (c *WallClock) SetOffset(target time.Time) {
	offset := target.Sub(c.realNow())
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
	c.logger.Info().Dur("offset", offset).Time("target", target).Msg("Clock offset set")
}

// Offset returns the current operator offset.
func (c *WallClock) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// OnTick registers the callback invoked on every tick. Set it before
// calling Start.
func (c *WallClock) OnTick(fn func(now time.Time)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// Start begins the repeating tick. The first tick fires immediately;
// each one reschedules for the next real boundary of the resolution, so
// a late or early timer fire is corrected on the next round rather than
// accumulating drift. Calling Start on a running clock is a no-op.
func (c *WallClock) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()
	c.tick()
}

// Cancel stops the repeating tick. Safe to call twice, or on a clock
// that was never started; must be called before teardown so no scheduled
// callback fires after shutdown.
func (c *WallClock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *WallClock) tick() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	now := c.realNow().Add(c.offset).In(c.location)
	fn := c.onTick

	delay := nextTickDelay(c.realNow(), time.Duration(c.resolution))
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, c.tick)
	c.mu.Unlock()

	if fn != nil {
		fn(now)
	}
}

// nextTickDelay computes the delay until the next boundary of the
// resolution. The sub-resolution remainder is rounded to whole
// milliseconds first; a remainder that rounds up to a full unit skips to
// the boundary after it. The result is clamped to at least one
// millisecond so the reschedule interval is never zero or negative.
func nextTickDelay(now time.Time, resolution time.Duration) time.Duration {
	unitMS := int64(resolution / time.Millisecond)
	rem := now.Sub(now.Truncate(resolution))
	remMS := int64((rem + 500*time.Microsecond) / time.Millisecond)

	next := (remMS + unitMS) / unitMS
	delayMS := next*unitMS - remMS
	if delayMS < 1 {
		delayMS = 1
	}
	return time.Duration(delayMS) * time.Millisecond
}

// ParseClubTime parses operator-entered time text in the club timezone.
// Accepted layouts are "2006-01-02 15:04:05" and "2006-01-02 15:04".
func ParseClubTime(s string, location *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParse, s)
}

// Stamp renders a time the way the session table shows it.
func Stamp(t time.Time) string {
	return t.Format("1/2 15:04")
}

// DefaultSessionStart returns today at the configured start-of-play time
// (for example 19:30) in now's location.
func DefaultSessionStart(now time.Time, startOfPlay string) (time.Time, error) {
	hm, err := time.Parse("15:04", startOfPlay)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrParse, startOfPlay)
	}
	return time.Date(now.Year(), now.Month(), now.Day(),
		hm.Hour(), hm.Minute(), 0, 0, now.Location()), nil
}

// CeilMinute rounds up to the next whole minute; a time already on a
// minute boundary is unchanged.
func CeilMinute(t time.Time) time.Time {
	floored := t.Truncate(time.Minute)
	if floored.Before(t) {
		return floored.Add(time.Minute)
	}
	return floored
}

// FloorMinute rounds down to the whole minute.
func FloorMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
