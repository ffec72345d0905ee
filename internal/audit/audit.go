// Package audit keeps an append-only trail of operator actions in a
// local bbolt file. The relational data lives in sqlite; this log is
// append-heavy key/value data and stays out of the club database.
package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const bucketEvents = "events"

// Kind labels an operator action.
type Kind string

const (
	KindSessionOpened    Kind = "session_opened"
	KindSessionClosed    Kind = "session_closed"
	KindClockReset       Kind = "clock_reset"
	KindPaymentRequested Kind = "payment_requested"
)

// Event is one recorded operator action.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	PlayerID  int64     `json:"player_id,omitempty"`
	SessionID int64     `json:"session_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Log is a bbolt-backed event log.
type Log struct {
	db *bbolt.DB
}

// Open opens (or creates) the audit log file.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketEvents))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create events bucket: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append records an event. A zero timestamp is filled in with the
// current UTC time; keys are timestamp-prefixed so a cursor scan reads
// in time order.
func (l *Log) Append(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		key, err := eventKey(event.Timestamp)
		if err != nil {
			return err
		}
		event.ID = key
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	return l.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return fmt.Errorf("events bucket missing")
		}
		return bucket.Put([]byte(event.ID), data)
	})
}

// Recent returns up to n events, newest first.
func (l *Log) Recent(ctx context.Context, n int) ([]Event, error) {
	var events []Event
	err := l.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketEvents))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil && len(events) < n; k, v = c.Prev() {
			var event Event
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("unmarshal audit event %s: %w", k, err)
			}
			events = append(events, event)
		}
		return nil
	})
	return events, err
}

// eventKey builds a sortable key: RFC3339Nano timestamp plus a random
// suffix to keep same-instant events distinct.
func eventKey(ts time.Time) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate event key: %w", err)
	}
	return ts.UTC().Format(time.RFC3339Nano) + "-" + hex.EncodeToString(suffix), nil
}
