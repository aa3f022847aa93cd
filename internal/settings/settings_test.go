package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "absent.md"))
	assert.Equal(t, Defaults(), s)
}

func TestLoadParsesFrontMatter(t *testing.T) {
	doc := `---
db_path: /custom/db.sqlite
auto_inject_context: false
max_context_sessions: 5
exclude_projects:
  - scratch
  - experiments
context_truncation_limit: 500
logging_enabled: true
sync_on_stop: false
---

# Notes

Whatever prose goes here is ignored.
`
	path := filepath.Join(t.TempDir(), "settings.md")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	s := Load(path)
	assert.Equal(t, "/custom/db.sqlite", s.DBPath)
	assert.False(t, s.AutoInjectContext)
	assert.Equal(t, 5, s.MaxContextSessions)
	assert.Equal(t, []string{"scratch", "experiments"}, s.ExcludeProjects)
	assert.Equal(t, 500, s.ContextTruncationLimit)
	assert.True(t, s.LoggingEnabled)
	assert.False(t, s.SyncOnStop)
}

func TestLoadMalformedYAMLReturnsDefaults(t *testing.T) {
	doc := "---\nmax_context_sessions: [not, a, number\n---\n"
	path := filepath.Join(t.TempDir(), "settings.md")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	s := Load(path)
	assert.Equal(t, Defaults(), s)
}

func TestLoadNoFrontMatterReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.md")
	require.NoError(t, os.WriteFile(path, []byte("# just a heading\n"), 0644))

	s := Load(path)
	assert.Equal(t, Defaults(), s)
}
