package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CORE TABLES
// Chats, users and awake sessions.
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create chats, users and sessions
-- Version: 001

CREATE TABLE IF NOT EXISTS chats (
    id BIGINT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    chat_type TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL REFERENCES chats(id),
    user_id BIGINT NOT NULL REFERENCES users(id),
    -- business day key ("YYYY-MM-DD"), stamped at check-in
    day TEXT NOT NULL,
    seq INTEGER NOT NULL,
    check_in TIMESTAMP WITH TIME ZONE NOT NULL,
    check_out TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_seq CHECK (seq >= 1),
    CONSTRAINT valid_range CHECK (check_out IS NULL OR check_out >= check_in)
);

-- At most one open session per member per chat
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_open
    ON sessions(chat_id, user_id) WHERE check_out IS NULL;

CREATE INDEX IF NOT EXISTS idx_sessions_chat_day ON sessions(chat_id, day);
CREATE INDEX IF NOT EXISTS idx_sessions_member ON sessions(chat_id, user_id, check_out DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`

const migration001Down = `
DROP TABLE IF EXISTS sessions;
DROP TABLE IF EXISTS users;
DROP TABLE IF EXISTS chats;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ACHIEVEMENT TABLES
// Daily earliest holders, streaks, the event log and the stat counters.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create achievement tables
-- Version: 002

-- Current earliest check-in holder per chat per business day
CREATE TABLE IF NOT EXISTS daily_earliest (
    chat_id BIGINT NOT NULL REFERENCES chats(id),
    day TEXT NOT NULL,
    user_id BIGINT NOT NULL REFERENCES users(id),
    check_in TIMESTAMP WITH TIME ZONE NOT NULL,

    PRIMARY KEY (chat_id, day)
);

-- Consecutive earliest-of-day runs
CREATE TABLE IF NOT EXISTS streaks (
    chat_id BIGINT NOT NULL REFERENCES chats(id),
    user_id BIGINT NOT NULL REFERENCES users(id),
    current INTEGER NOT NULL DEFAULT 0,
    longest INTEGER NOT NULL DEFAULT 0,
    last_day TEXT NOT NULL DEFAULT '',

    PRIMARY KEY (chat_id, user_id),
    CONSTRAINT valid_current CHECK (current >= 0),
    CONSTRAINT valid_longest CHECK (longest >= current)
);

CREATE INDEX IF NOT EXISTS idx_streaks_current ON streaks(chat_id, current DESC);

-- Append-only achievement grants
CREATE TABLE IF NOT EXISTS achievement_events (
    id UUID PRIMARY KEY,
    chat_id BIGINT NOT NULL REFERENCES chats(id),
    user_id BIGINT NOT NULL REFERENCES users(id),
    kind TEXT NOT NULL,
    day TEXT NOT NULL,
    granted_at TIMESTAMP WITH TIME ZONE NOT NULL,
    -- day key for day-scoped kinds, session id for session-scoped ones
    dedup_key TEXT NOT NULL,

    CONSTRAINT valid_kind CHECK (kind IN ('earliest_of_day', 'streak_7', 'ontime_8h', 'long_day_12h'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup
    ON achievement_events(chat_id, user_id, kind, dedup_key);
CREATE INDEX IF NOT EXISTS idx_events_member ON achievement_events(chat_id, user_id);

-- Running counters, bumped in the same transaction as the event insert
CREATE TABLE IF NOT EXISTS achievement_stats (
    chat_id BIGINT NOT NULL REFERENCES chats(id),
    user_id BIGINT NOT NULL REFERENCES users(id),
    kind TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (chat_id, user_id, kind),
    CONSTRAINT valid_count CHECK (count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_stats_kind ON achievement_stats(kind, count DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS achievement_stats;
DROP TABLE IF EXISTS achievement_events;
DROP TABLE IF EXISTS streaks;
DROP TABLE IF EXISTS daily_earliest;
`
