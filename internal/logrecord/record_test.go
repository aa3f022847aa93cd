package logrecord

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSONL(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadGraphStreamSkipsNoiseAndMeta(t *testing.T) {
	path := writeJSONL(t,
		`{"type":"user","uuid":"A","timestamp":"2025-01-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"progress","uuid":"P1","timestamp":"2025-01-01T10:00:01Z"}`,
		`{"type":"assistant","uuid":"B","parentUuid":"A","timestamp":"2025-01-01T10:00:02Z","isMeta":true,"message":{"role":"assistant","content":"meta"}}`,
		`not json at all`,
		``,
		`{"type":"assistant","uuid":"C","parentUuid":"A","timestamp":"2025-01-01T10:00:03Z","message":{"role":"assistant","content":"hello"}}`,
	)

	records, err := ReadGraphStream(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].UUID)
	assert.Equal(t, "C", records[1].UUID)
}

func TestReadMessageStreamOnlyUserAssistant(t *testing.T) {
	path := writeJSONL(t,
		`{"type":"user","uuid":"A","timestamp":"2025-01-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"file-history-snapshot","uuid":"F1","timestamp":"2025-01-01T10:00:01Z"}`,
		`{"type":"summary","uuid":"S1","timestamp":"2025-01-01T10:00:02Z"}`,
	)

	records, err := ReadMessageStream(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].UUID)
}

func TestIsToolResultUserRecord(t *testing.T) {
	toolResult := Record{
		Type:    "user",
		Message: Message{Content: []byte(`[{"type":"tool_result","tool_use_id":"x"}]`)},
	}
	assert.True(t, IsToolResultUserRecord(toolResult))

	realUser := Record{
		Type:    "user",
		Message: Message{Content: []byte(`"hello there"`)},
	}
	assert.False(t, IsToolResultUserRecord(realUser))

	assistant := Record{
		Type:    "assistant",
		Message: Message{Content: []byte(`[{"type":"tool_result"}]`)},
	}
	assert.False(t, IsToolResultUserRecord(assistant))
}
