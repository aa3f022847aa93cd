package store

import (
	"encoding/json"
	"fmt"
)

// CandidateBranch is one active-branch row considered by the context
// selector, with its JSON list columns already decoded.
type CandidateBranch struct {
	BranchID      int64
	SessionID     int64
	SessionUUID   string
	StartedAt     string
	EndedAt       string
	ExchangeCount int
	FilesModified []string
	Commits       []string
}

// CandidateActiveBranches returns up to limit active-branch rows for a
// project, excluding the current session and any sub-agent session
// (non-null parent_session_id), ordered by branch end time descending.
func (s *Store) CandidateActiveBranches(projectID int64, excludeSessionUUID string, limit int) ([]CandidateBranch, error) {
	var rows []struct {
		BranchID      int64   `db:"branch_id"`
		SessionID     int64   `db:"session_id"`
		SessionUUID   string  `db:"session_uuid"`
		StartedAt     *string `db:"started_at"`
		EndedAt       *string `db:"ended_at"`
		ExchangeCount int     `db:"exchange_count"`
		FilesModified *string `db:"files_modified"`
		Commits       *string `db:"commits"`
	}
	err := s.db.Select(&rows, `
		SELECT b.id AS branch_id, s.id AS session_id, s.uuid AS session_uuid,
			b.started_at, b.ended_at, b.exchange_count, b.files_modified, b.commits
		FROM branches b
		JOIN sessions s ON b.session_id = s.id
		WHERE s.project_id = ?
			AND b.is_active = 1
			AND s.uuid != ?
			AND s.parent_session_id IS NULL
		ORDER BY b.ended_at DESC
		LIMIT ?`, projectID, excludeSessionUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying candidate branches: %w", err)
	}

	out := make([]CandidateBranch, 0, len(rows))
	for _, r := range rows {
		c := CandidateBranch{
			BranchID:      r.BranchID,
			SessionID:     r.SessionID,
			SessionUUID:   r.SessionUUID,
			ExchangeCount: r.ExchangeCount,
		}
		if r.StartedAt != nil {
			c.StartedAt = *r.StartedAt
		}
		if r.EndedAt != nil {
			c.EndedAt = *r.EndedAt
		}
		c.FilesModified = decodeJSONList(r.FilesModified)
		c.Commits = decodeJSONList(r.Commits)
		out = append(out, c)
	}
	return out, nil
}

func decodeJSONList(raw *string) []string {
	if raw == nil {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(*raw), &items); err != nil {
		return nil
	}
	return items
}

// BranchMessages loads a branch's member messages ordered by timestamp.
func (s *Store) BranchMessages(branchID int64) ([]Message, error) {
	var messages []Message
	err := s.db.Select(&messages, `
		SELECT m.*
		FROM branch_messages bm
		JOIN messages m ON bm.message_id = m.id
		WHERE bm.branch_id = ?
		ORDER BY m.timestamp ASC`, branchID)
	if err != nil {
		return nil, fmt.Errorf("loading branch messages: %w", err)
	}
	return messages, nil
}
