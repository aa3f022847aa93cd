package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsSnippetWithDelimiters(t *testing.T) {
	s := newTestStore(t)
	projectID, err := s.UpsertProject("/proj", "-proj")
	require.NoError(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(linearSession), 0644))
	_, _, err = s.ImportSession(file, projectID, nil)
	require.NoError(t, err)

	results, err := s.Search("hello", 10)
	require.NoError(t, err)
	if assert.Len(t, results, 1) {
		assert.Contains(t, results[0].Snippet, ">>>")
		assert.Contains(t, results[0].Snippet, "<<<")
	}
}

func TestSearchNoMatchesReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search("nonexistentterm", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
