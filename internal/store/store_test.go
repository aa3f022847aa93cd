package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.db.Get(&name, `SELECT name FROM sqlite_master WHERE type='table' AND name='branches'`)
	require.NoError(t, err)
	require.Equal(t, "branches", name)
}

func TestMigrateDropsPreBranchSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE sessions (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	var count int
	require.NoError(t, s.db.Get(&count, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name='branches'`))
	require.Equal(t, 1, count)
}

func TestUpsertProjectIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.UpsertProject("/Users/sam/code/app", "-Users-sam-code-app")
	require.NoError(t, err)
	id2, err := s.UpsertProject("/Users/sam/code/app", "-Users-sam-code-app")
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

// TestFindProjectByKeyPrefersLosslessLookup covers the case a path-based
// lookup gets wrong: a directory name containing "." or "-" collapses to
// the same key prefix as a literal "/" would, so the SessionStart hook
// must resolve the project via its raw key, not a reconstructed path.
func TestFindProjectByKeyPrefersLosslessLookup(t *testing.T) {
	s := newTestStore(t)

	id, err := s.UpsertProject("/Users/sam/code/claude-memory", "-Users-sam-code-claude-memory")
	require.NoError(t, err)

	found, ok, err := s.FindProjectByKey("-Users-sam-code-claude-memory")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, found)

	_, ok, err = s.FindProjectByKey("-Users-sam-code-app")
	require.NoError(t, err)
	require.False(t, ok)
}
