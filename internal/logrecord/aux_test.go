package logrecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAuxFilesModified(t *testing.T) {
	raw := []byte(`[
		{"type":"tool_use","name":"Edit","input":{"file_path":"a.go"}},
		{"type":"tool_use","name":"Write","input":{"file_path":"b.go"}},
		{"type":"tool_use","name":"Read","input":{"file_path":"c.go"}}
	]`)
	files, commits := ExtractAux(raw)
	assert.Equal(t, []string{"a.go", "b.go"}, files)
	assert.Empty(t, commits)
}

func TestExtractAuxCommitSubject(t *testing.T) {
	raw := []byte(`[
		{"type":"tool_use","name":"Bash","input":{"command":"git commit -m \"fix the thing\""}}
	]`)
	_, commits := ExtractAux(raw)
	assert.Equal(t, []string{"fix the thing"}, commits)
}

func TestExtractAuxCommitSubjectTruncated(t *testing.T) {
	long := ""
	for i := 0; i < 150; i++ {
		long += "x"
	}
	raw := []byte(`[{"type":"tool_use","name":"Bash","input":{"command":"git commit -m \"` + long + `\""}}]`)
	_, commits := ExtractAux(raw)
	require := assert.New(t)
	require.Len(commits, 1)
	require.Len(commits[0], 100)
}

func TestExtractAuxIgnoresNonCommitBash(t *testing.T) {
	raw := []byte(`[{"type":"tool_use","name":"Bash","input":{"command":"ls -la"}}]`)
	files, commits := ExtractAux(raw)
	assert.Empty(t, files)
	assert.Empty(t, commits)
}
