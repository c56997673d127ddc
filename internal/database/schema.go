package database

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    date          TEXT NOT NULL,
    time          TEXT NOT NULL,
    turf_name     TEXT NOT NULL,
    turf_cost     BIGINT NOT NULL CHECK (turf_cost > 0),
    status        TEXT NOT NULL DEFAULT 'open',
    per_head_cost BIGINT,
    collected     BIGINT NOT NULL DEFAULT 0,
    version       BIGINT NOT NULL DEFAULT 1,
    created_at    TIMESTAMPTZ NOT NULL,
    locked_at     TIMESTAMPTZ,
    closed_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS participants (
    id             TEXT PRIMARY KEY,
    session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    position       INTEGER NOT NULL,
    player_name    TEXT NOT NULL,
    phone          TEXT NOT NULL DEFAULT '',
    identity       TEXT NOT NULL DEFAULT '',
    rsvp_status    TEXT NOT NULL,
    payment_status TEXT NOT NULL DEFAULT 'pending',
    amount_due     BIGINT NOT NULL DEFAULT 0,
    order_id       TEXT NOT NULL DEFAULT '',
    paid_at        TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON sessions (status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_participants_session ON participants (session_id, position);
`

// Timestamps are stored as Unix nanoseconds; libSQL and SQLite have no
// native time type.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    date          TEXT NOT NULL,
    time          TEXT NOT NULL,
    turf_name     TEXT NOT NULL,
    turf_cost     INTEGER NOT NULL CHECK (turf_cost > 0),
    status        TEXT NOT NULL DEFAULT 'open',
    per_head_cost INTEGER,
    collected     INTEGER NOT NULL DEFAULT 0,
    version       INTEGER NOT NULL DEFAULT 1,
    created_at    INTEGER NOT NULL,
    locked_at     INTEGER,
    closed_at     INTEGER
)`,
	`CREATE TABLE IF NOT EXISTS participants (
    id             TEXT PRIMARY KEY,
    session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    position       INTEGER NOT NULL,
    player_name    TEXT NOT NULL,
    phone          TEXT NOT NULL DEFAULT '',
    identity       TEXT NOT NULL DEFAULT '',
    rsvp_status    TEXT NOT NULL,
    payment_status TEXT NOT NULL DEFAULT 'pending',
    amount_due     INTEGER NOT NULL DEFAULT 0,
    order_id       TEXT NOT NULL DEFAULT '',
    paid_at        INTEGER,
    created_at     INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON sessions (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_session ON participants (session_id, position)`,
}
