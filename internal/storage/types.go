package storage

import "github.com/shopspring/decimal"

// Player is a club member as recorded by roster management.
type Player struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Nickname   string          `json:"nickname,omitempty"`
	CategoryID int64           `json:"category_id"`
	Balance    decimal.Decimal `json:"balance"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Inactive   bool            `json:"inactive"`
}

// DisplayName returns the nickname when one is set, else the full name.
func (p Player) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Name
}

// PlayerCategory carries the hourly seat rate for a class of players.
type PlayerCategory struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
}

// Session is one stretch of paid table time. StopEpoch is nil while the
// session is running.
type Session struct {
	ID         int64  `json:"id"`
	PlayerID   int64  `json:"player_id"`
	StartEpoch int64  `json:"start_epoch"`
	StopEpoch  *int64 `json:"stop_epoch,omitempty"`
}

// Open reports whether the session is still running.
func (s Session) Open() bool { return s.StopEpoch == nil }

// RosterEntry is one row of the player selection view: active players
// with their display name and prepaid balance.
type RosterEntry struct {
	PlayerID    int64           `json:"player_id"`
	DisplayName string          `json:"display_name"`
	Balance     decimal.Decimal `json:"balance"`
}

// SessionEntry is one row of the session listing view: the session joined
// with the player's display name and category rate.
type SessionEntry struct {
	Session
	PlayerName   string          `json:"player_name"`
	CategoryName string          `json:"category_name"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
}
