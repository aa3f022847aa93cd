package store

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gupsammy/claude-memory/internal/branch"
	"github.com/gupsammy/claude-memory/internal/logrecord"
)

// ErrUnchanged is returned by ImportSession when the file's content
// hash matches the import log, meaning nothing was written.
var ErrUnchanged = errors.New("store: file unchanged since last import")

// ErrNoBranches is returned when a session file parses but produces no
// branches (e.g. an empty or entirely-noise file).
var ErrNoBranches = errors.New("store: no branches detected")

// ImportSession is the central algorithm (component D): it upserts one
// session row, rewrites its messages and branches, prunes orphans, and
// records the import log entry, all inside a single transaction.
func (s *Store) ImportSession(file string, projectID int64, parentSessionID *int64) (branchesWritten, messagesWritten int, err error) {
	hash, err := fileMD5(file)
	if err != nil {
		return 0, 0, fmt.Errorf("hashing %s: %w", file, err)
	}

	var existingHash string
	err = s.db.Get(&existingHash, `SELECT content_hash FROM import_log WHERE path = ?`, file)
	if err == nil && existingHash == hash {
		return 0, 0, ErrUnchanged
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("checking import log: %w", err)
	}

	graph, err := logrecord.ReadGraphStream(file)
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s: %w", file, err)
	}
	messageStream, err := logrecord.ReadMessageStream(file)
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s: %w", file, err)
	}

	branches := branch.Detect(graph)
	if len(branches) == 0 {
		return 0, 0, ErrNoBranches
	}

	sessionUUID := logrecord.SessionIDFromFilename(strings.TrimSuffix(filepath.Base(file), ".jsonl"))

	err = s.Transaction(func(tx *sqlx.Tx) error {
		sessionID, txErr := upsertSession(tx, sessionUUID, projectID, parentSessionID, messageStream, filepath.Dir(file))
		if txErr != nil {
			return fmt.Errorf("upserting session: %w", txErr)
		}

		uuidToID, txErr := rewriteMessages(tx, sessionID, messageStream)
		if txErr != nil {
			return fmt.Errorf("rewriting messages: %w", txErr)
		}
		messagesWritten = len(uuidToID)

		branchesWritten, txErr = rebuildBranches(tx, sessionID, branches, uuidToID)
		if txErr != nil {
			return fmt.Errorf("rebuilding branches: %w", txErr)
		}

		if txErr := pruneOrphanMessages(tx, sessionID); txErr != nil {
			return fmt.Errorf("pruning orphans: %w", txErr)
		}

		_, txErr = tx.Exec(`
			INSERT INTO import_log (path, content_hash, imported_at, message_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				content_hash = excluded.content_hash,
				imported_at = excluded.imported_at,
				message_count = excluded.message_count`,
			file, hash, time.Now().UTC().Format(time.RFC3339), messagesWritten)
		if txErr != nil {
			return fmt.Errorf("writing import log: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return branchesWritten, messagesWritten, nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func upsertSession(tx *sqlx.Tx, uuid string, projectID int64, parentSessionID *int64, messages []logrecord.Record, sessionDir string) (int64, error) {
	var gitBranch, cwd *string
	for _, m := range messages {
		if m.GitBranch != "" {
			v := m.GitBranch
			gitBranch = &v
		}
		if m.CWD != "" {
			v := m.CWD
			cwd = &v
		}
	}
	if gitBranch == nil {
		dir := sessionDir
		if cwd != nil {
			dir = *cwd
		}
		if live := logrecord.LiveGitBranch(dir); live != "" {
			gitBranch = &live
		}
	}

	_, err := tx.Exec(`
		INSERT INTO sessions (uuid, project_id, parent_session_id, git_branch, cwd)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			git_branch = COALESCE(excluded.git_branch, sessions.git_branch),
			cwd = COALESCE(excluded.cwd, sessions.cwd),
			parent_session_id = COALESCE(excluded.parent_session_id, sessions.parent_session_id)`,
		uuid, projectID, parentSessionID, gitBranch, cwd)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := tx.Get(&id, `SELECT id FROM sessions WHERE uuid = ?`, uuid); err != nil {
		return 0, err
	}
	return id, nil
}

// rewriteMessages deletes all prior messages for the session (and the
// branch memberships referencing them) and inserts the current set,
// returning a uuid -> row id map.
func rewriteMessages(tx *sqlx.Tx, sessionID int64, messages []logrecord.Record) (map[string]int64, error) {
	if _, err := tx.Exec(`DELETE FROM branch_messages WHERE branch_id IN (SELECT id FROM branches WHERE session_id = ?)`, sessionID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return nil, err
	}

	uuidToID := make(map[string]int64, len(messages))
	for _, m := range messages {
		if m.Type == "user" && logrecord.IsToolResultUserRecord(m) {
			continue
		}
		extracted := logrecord.ExtractContent(m.Message.Content)
		if strings.TrimSpace(extracted.Text) == "" {
			continue
		}

		toolSummary := logrecord.ToolSummaryJSON(extracted.ToolSummary)
		var toolSummaryStr *string
		if toolSummary != nil {
			v := string(toolSummary)
			toolSummaryStr = &v
		}
		var parentUUID *string
		if m.ParentUUID != "" {
			parentUUID = &m.ParentUUID
		}

		res, err := tx.Exec(`
			INSERT INTO messages (session_id, uuid, parent_uuid, role, timestamp, content, tool_summary, has_tool_use, has_thinking)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id, uuid) DO NOTHING`,
			sessionID, m.UUID, parentUUID, m.Type, m.Timestamp, extracted.Text, toolSummaryStr, extracted.HasToolUse, extracted.HasThinking)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		uuidToID[m.UUID] = id
	}
	return uuidToID, nil
}

func rebuildBranches(tx *sqlx.Tx, sessionID int64, branches []branch.Branch, uuidToID map[string]int64) (int, error) {
	var existing []struct {
		ID       int64  `db:"id"`
		LeafUUID string `db:"leaf_uuid"`
	}
	if err := tx.Select(&existing, `SELECT id, leaf_uuid FROM branches WHERE session_id = ?`, sessionID); err != nil {
		return 0, err
	}
	existingByLeaf := make(map[string]int64, len(existing))
	for _, e := range existing {
		existingByLeaf[e.LeafUUID] = e.ID
	}

	seenLeaves := make(map[string]bool, len(branches))
	written := 0

	for _, b := range branches {
		seenLeaves[b.LeafUUID] = true

		filesJSON, err := jsonOrNil(b.FilesModified)
		if err != nil {
			return 0, err
		}
		commitsJSON, err := jsonOrNil(b.Commits)
		if err != nil {
			return 0, err
		}
		var forkPoint *string
		if b.ForkPointUUID != "" {
			forkPoint = &b.ForkPointUUID
		}
		var started, ended *string
		if b.Started != "" {
			started = &b.Started
		}
		if b.Ended != "" {
			ended = &b.Ended
		}

		branchID, existed := existingByLeaf[b.LeafUUID]
		if existed {
			_, err = tx.Exec(`
				UPDATE branches SET
					fork_point_uuid = ?, is_active = ?, started_at = ?, ended_at = ?,
					exchange_count = ?, files_modified = ?, commits = ?
				WHERE id = ?`,
				forkPoint, b.IsActive, started, ended, b.ExchangeCount, filesJSON, commitsJSON, branchID)
		} else {
			var res sql.Result
			res, err = tx.Exec(`
				INSERT INTO branches (session_id, leaf_uuid, fork_point_uuid, is_active, started_at, ended_at, exchange_count, files_modified, commits)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sessionID, b.LeafUUID, forkPoint, b.IsActive, started, ended, b.ExchangeCount, filesJSON, commitsJSON)
			if err == nil {
				branchID, err = res.LastInsertId()
			}
		}
		if err != nil {
			return 0, err
		}

		if b.IsActive {
			if _, err := tx.Exec(`UPDATE branches SET is_active = 0 WHERE session_id = ? AND id != ?`, sessionID, branchID); err != nil {
				return 0, err
			}
		}

		if _, err := tx.Exec(`DELETE FROM branch_messages WHERE branch_id = ?`, branchID); err != nil {
			return 0, err
		}
		for _, u := range b.MemberUUIDs {
			msgID, ok := uuidToID[u]
			if !ok {
				continue
			}
			if _, err := tx.Exec(`INSERT INTO branch_messages (branch_id, message_id) VALUES (?, ?)`, branchID, msgID); err != nil {
				return 0, err
			}
		}
		written++
	}

	for _, e := range existing {
		if seenLeaves[e.LeafUUID] {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM branch_messages WHERE branch_id = ?`, e.ID); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(`DELETE FROM branches WHERE id = ?`, e.ID); err != nil {
			return 0, err
		}
	}

	return written, nil
}

func pruneOrphanMessages(tx *sqlx.Tx, sessionID int64) error {
	_, err := tx.Exec(`
		DELETE FROM messages
		WHERE session_id = ?
		AND id NOT IN (SELECT message_id FROM branch_messages)`, sessionID)
	return err
}

func jsonOrNil(items []string) (*string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	v := string(b)
	return &v, nil
}
