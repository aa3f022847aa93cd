package store

import "fmt"

// Search runs a full-text query against the FTS5 index and returns
// human-readable snippets delimited with >>>/<<< markers.
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var results []SearchResult
	err := s.db.Select(&results, `
		SELECT
			m.id AS message_id,
			snippet(messages_fts, 0, '>>>', '<<<', '...', 32) AS snippet,
			m.timestamp AS timestamp,
			m.role AS role,
			s.uuid AS session_uuid,
			p.path AS project_path,
			p.short_name AS project_short_name
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.id
		JOIN sessions s ON m.session_id = s.id
		JOIN projects p ON s.project_id = p.id
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	return results, nil
}
