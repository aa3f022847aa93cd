package store

// Project is a unique filesystem path a session tree was rooted at.
// Key is the raw `-`-encoded directory name Claude Code uses under the
// projects root; it is the lookup key for the SessionStart hook since
// Path is reconstructed from it and is lossy for names containing `-`
// or `.` (both fold to `-` at encode time).
type Project struct {
	ID        int64  `db:"id"`
	Path      string `db:"path"`
	Key       string `db:"key"`
	ShortName string `db:"short_name"`
}

// Session is one conversation log file, identified by its UUID stem.
type Session struct {
	ID              int64         `db:"id"`
	UUID            string        `db:"uuid"`
	ProjectID       int64         `db:"project_id"`
	ParentSessionID *int64        `db:"parent_session_id"`
	GitBranch       *string       `db:"git_branch"`
	CWD             *string       `db:"cwd"`
}

// Branch is one root-to-leaf path through a session's parent-pointer
// tree carrying at least one real user message.
type Branch struct {
	ID            int64   `db:"id"`
	SessionID     int64   `db:"session_id"`
	LeafUUID      string  `db:"leaf_uuid"`
	ForkPointUUID *string `db:"fork_point_uuid"`
	IsActive      bool    `db:"is_active"`
	StartedAt     *string `db:"started_at"`
	EndedAt       *string `db:"ended_at"`
	ExchangeCount int     `db:"exchange_count"`
	FilesModified *string `db:"files_modified"` // JSON array
	Commits       *string `db:"commits"`        // JSON array
}

// Message is one (session, message-uuid) row.
type Message struct {
	ID          int64   `db:"id"`
	SessionID   int64   `db:"session_id"`
	UUID        string  `db:"uuid"`
	ParentUUID  *string `db:"parent_uuid"`
	Role        string  `db:"role"`
	Timestamp   string  `db:"timestamp"`
	Content     string  `db:"content"`
	ToolSummary *string `db:"tool_summary"` // JSON object, nil when absent
	HasToolUse  bool    `db:"has_tool_use"`
	HasThinking bool    `db:"has_thinking"`
}

// ImportLogEntry tracks the last-imported content hash of a log file so
// unchanged files can be skipped in bulk mode.
type ImportLogEntry struct {
	Path         string `db:"path"`
	ContentHash  string `db:"content_hash"`
	ImportedAt   string `db:"imported_at"`
	MessageCount int    `db:"message_count"`
}

// SearchResult is one full-text search hit: the columns of the
// search_results view plus an FTS snippet. Search builds it from a direct
// join over messages, sessions and projects rather than from the view.
type SearchResult struct {
	MessageID         int64  `db:"message_id"`
	Snippet           string `db:"snippet"`
	Timestamp         string `db:"timestamp"`
	Role              string `db:"role"`
	SessionUUID       string `db:"session_uuid"`
	ProjectPath       string `db:"project_path"`
	ProjectShortName  string `db:"project_short_name"`
}

// RecentConversation is one row of the recent_conversations view.
type RecentConversation struct {
	SessionUUID      string  `db:"session_uuid"`
	ProjectPath      string  `db:"project_path"`
	ProjectShortName string  `db:"project_short_name"`
	BranchID         int64   `db:"branch_id"`
	StartedAt        *string `db:"started_at"`
	EndedAt          *string `db:"ended_at"`
	ExchangeCount    int     `db:"exchange_count"`
	FilesModified    *string `db:"files_modified"`
	Commits          *string `db:"commits"`
}

// Stats summarizes the archive's size for the --stats CLI flag.
type Stats struct {
	Projects    int64
	Sessions    int64
	Branches    int64
	Messages    int64
	DBSizeBytes int64
	ToolCounts  map[string]int
}
