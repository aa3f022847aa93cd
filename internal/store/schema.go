package store

// schemaSQL creates every base table idempotently. Statements run in
// sequence inside a single Exec call on init.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT NOT NULL UNIQUE,
	key        TEXT NOT NULL UNIQUE,
	short_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid              TEXT NOT NULL UNIQUE,
	project_id        INTEGER NOT NULL REFERENCES projects(id),
	parent_session_id INTEGER REFERENCES sessions(id),
	git_branch        TEXT,
	cwd               TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);

CREATE TABLE IF NOT EXISTS branches (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      INTEGER NOT NULL REFERENCES sessions(id),
	leaf_uuid       TEXT NOT NULL,
	fork_point_uuid TEXT,
	is_active       INTEGER NOT NULL DEFAULT 0,
	started_at      TEXT,
	ended_at        TEXT,
	exchange_count  INTEGER NOT NULL DEFAULT 0,
	files_modified  TEXT,
	commits         TEXT,
	UNIQUE(session_id, leaf_uuid)
);
CREATE INDEX IF NOT EXISTS idx_branches_session ON branches(session_id);
CREATE INDEX IF NOT EXISTS idx_branches_active_end ON branches(is_active, ended_at);

CREATE TABLE IF NOT EXISTS messages (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    INTEGER NOT NULL REFERENCES sessions(id),
	uuid          TEXT NOT NULL,
	parent_uuid   TEXT,
	role          TEXT NOT NULL,
	timestamp     TEXT NOT NULL,
	content       TEXT NOT NULL,
	tool_summary  TEXT,
	has_tool_use  INTEGER NOT NULL DEFAULT 0,
	has_thinking  INTEGER NOT NULL DEFAULT 0,
	UNIQUE(session_id, uuid)
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

CREATE TABLE IF NOT EXISTS branch_messages (
	branch_id  INTEGER NOT NULL REFERENCES branches(id),
	message_id INTEGER NOT NULL REFERENCES messages(id),
	PRIMARY KEY (branch_id, message_id)
);
CREATE INDEX IF NOT EXISTS idx_branch_messages_message ON branch_messages(message_id);

CREATE TABLE IF NOT EXISTS import_log (
	path          TEXT PRIMARY KEY,
	content_hash  TEXT NOT NULL,
	imported_at   TEXT NOT NULL,
	message_count INTEGER NOT NULL
);

CREATE VIEW IF NOT EXISTS search_results AS
SELECT
	m.id          AS message_id,
	m.content     AS content,
	m.timestamp   AS timestamp,
	m.role        AS role,
	s.uuid        AS session_uuid,
	p.path        AS project_path,
	p.short_name  AS project_short_name
FROM messages m
JOIN sessions s ON m.session_id = s.id
JOIN projects p ON s.project_id = p.id;

CREATE VIEW IF NOT EXISTS recent_conversations AS
SELECT
	s.uuid             AS session_uuid,
	p.path             AS project_path,
	p.short_name       AS project_short_name,
	b.id               AS branch_id,
	b.started_at       AS started_at,
	b.ended_at         AS ended_at,
	b.exchange_count   AS exchange_count,
	b.files_modified   AS files_modified,
	b.commits          AS commits
FROM branches b
JOIN sessions s ON b.session_id = s.id
JOIN projects p ON s.project_id = p.id
WHERE b.is_active = 1
ORDER BY b.ended_at DESC;
`

// schemaFTS creates the FTS5 index over messages.content as an
// external-content ("contentless") table keyed by messages.id, kept in
// sync with three triggers. The porter+unicode61 tokenizer combination
// matches the FTS tables used elsewhere in the corpus.
const schemaFTS = `
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	content='messages',
	content_rowid='id',
	tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
	INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// additiveColumns lists columns that may be missing from an intermediate
// schema version, each guarded by a PRAGMA table_info check before the
// ALTER TABLE runs.
var additiveColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"messages", "tool_summary", "ALTER TABLE messages ADD COLUMN tool_summary TEXT"},
}
