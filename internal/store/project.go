package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
)

// UpsertProject inserts the project row for key/path if absent and
// returns its id. key is the raw directory name under the projects
// root (e.g. "-Users-sam-code-app"); it is the stable, non-lossy
// identity since path is reconstructed from it and collapses for
// directory names containing "-" or ".". Projects and sessions are
// created on first sighting and never deleted by the core.
func (s *Store) UpsertProject(path, key string) (int64, error) {
	shortName := filepath.Base(path)

	_, err := s.db.Exec(`
		INSERT INTO projects (path, key, short_name) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET path = excluded.path, short_name = excluded.short_name`,
		path, key, shortName)
	if err != nil {
		return 0, fmt.Errorf("upserting project: %w", err)
	}

	var id int64
	if err := s.db.Get(&id, `SELECT id FROM projects WHERE key = ?`, key); err != nil {
		return 0, fmt.Errorf("fetching project id: %w", err)
	}
	return id, nil
}

// FindProjectByKey looks up a project by its raw directory key without
// creating it. This is the lookup the SessionStart hook uses, since the
// live cwd can be encoded to a key directly without going through the
// lossy path reconstruction.
func (s *Store) FindProjectByKey(key string) (int64, bool, error) {
	var id int64
	err := s.db.Get(&id, `SELECT id FROM projects WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("finding project: %w", err)
	}
	return id, true, nil
}

// FindSessionByUUID looks up a session's row id by its UUID, used by
// the bulk driver to resolve a sub-agent's parent session.
func (s *Store) FindSessionByUUID(uuid string) (int64, bool, error) {
	var id int64
	err := s.db.Get(&id, `SELECT id FROM sessions WHERE uuid = ?`, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("finding session: %w", err)
	}
	return id, true, nil
}
