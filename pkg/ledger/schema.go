package ledger

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Locator index: canonical id -> note file. Rebuildable from a scan of
-- the notes tree; a stale row is detected and repaired on read.
CREATE TABLE IF NOT EXISTS locators (
    canonical_id TEXT PRIMARY KEY,
    platform TEXT NOT NULL,
    path TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_locators_platform ON locators(platform);

-- Remote inbox entries pulled from sync sources. resolved flips once the
-- note reached Parsed and the source was told, so a crashed sync never
-- re-captures or re-notifies.
CREATE TABLE IF NOT EXISTS inbox_entries (
    source TEXT NOT NULL,
    remote_id TEXT NOT NULL,
    reference TEXT NOT NULL,
    resolved BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    resolved_at TIMESTAMP,
    PRIMARY KEY (source, remote_id)
);

CREATE INDEX IF NOT EXISTS idx_inbox_unresolved ON inbox_entries(source) WHERE resolved = 0;

-- Sessions: one row per batch command run.
CREATE TABLE IF NOT EXISTS sessions (
    session_id INTEGER PRIMARY KEY AUTOINCREMENT,
    command TEXT NOT NULL,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,
    succeeded INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
`
