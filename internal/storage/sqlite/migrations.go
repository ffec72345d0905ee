package sqlite

// migrations holds the schema history. Entry N applies as version N+1;
// never reorder or edit an applied entry, append a new one instead.
var migrations = []string{
	migration001Categories,
	migration002Players,
	migration003Sessions,
}

const migration001Categories = `
CREATE TABLE player_category (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	hourly_rate TEXT NOT NULL DEFAULT '0'
);
`

const migration002Players = `
CREATE TABLE player (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	nickname    TEXT NOT NULL DEFAULT '',
	category_id INTEGER NOT NULL REFERENCES player_category(id),
	balance     TEXT NOT NULL DEFAULT '0',
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	inactive    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX idx_player_category ON player(category_id);
`

const migration003Sessions = `
CREATE TABLE session (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	player_id   INTEGER NOT NULL REFERENCES player(id),
	start_epoch INTEGER NOT NULL,
	stop_epoch  INTEGER
);
CREATE INDEX idx_session_player ON session(player_id);
CREATE UNIQUE INDEX idx_session_open ON session(player_id) WHERE stop_epoch IS NULL;
`
