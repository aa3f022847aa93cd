// Package logrecord reads the append-only JSON-lines transcripts emitted
// per session, classifies each line, and extracts the text and auxiliary
// payloads that the rest of the pipeline stores. It knows nothing about
// branches or storage; it only turns bytes into typed records.
package logrecord

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// noiseTypes are record types that carry no conversational content. They
// are dropped before either stream is built, so they are never yielded
// and take no part in the parent-pointer graph.
var noiseTypes = map[string]bool{
	"progress":             true,
	"file-history-snapshot": true,
	"queue-operation":      true,
}

// Record is one parsed JSON-line entry.
type Record struct {
	Type          string
	UUID          string
	ParentUUID    string
	Timestamp     string
	GitBranch     string
	CWD           string
	IsMeta        bool
	Message       Message
	ToolUseResult json.RawMessage

	Raw map[string]interface{}
}

// Message mirrors the `message` field of a user/assistant record.
type Message struct {
	Role    string
	Content json.RawMessage
}

// IsUserOrAssistant reports whether this record's type belongs to the
// message stream.
func (r Record) IsUserOrAssistant() bool {
	return r.Type == "user" || r.Type == "assistant"
}

// HasGraphIdentity reports whether this record can participate in the
// parent-pointer graph (it carries a uuid).
func (r Record) HasGraphIdentity() bool {
	return r.UUID != ""
}

// ReadGraphStream parses every line of the file at path and returns every
// record that carries a uuid, regardless of type. Malformed lines and
// records without a uuid are dropped silently.
func ReadGraphStream(path string) ([]Record, error) {
	return readLines(path, func(r Record) bool {
		return r.HasGraphIdentity()
	})
}

// ReadMessageStream parses every line of the file at path and returns
// only user/assistant records, skipping noise types and isMeta records.
func ReadMessageStream(path string) ([]Record, error) {
	return readLines(path, func(r Record) bool {
		return r.IsUserOrAssistant()
	})
}

func readLines(path string, keep func(Record) bool) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if !utf8.Valid(line) {
			line = []byte(strings.ToValidUTF8(string(line), "�"))
		}
		trimmed := strings.TrimSpace(string(line))
		if trimmed == "" {
			continue
		}

		rec, ok := parseLine(trimmed)
		if !ok {
			continue
		}
		if noiseTypes[rec.Type] || rec.IsMeta {
			continue
		}
		if keep(rec) {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return records, err
	}
	return records, nil
}

func parseLine(line string) (Record, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}

	rec := Record{Raw: raw}
	rec.Type, _ = raw["type"].(string)
	rec.UUID, _ = raw["uuid"].(string)
	rec.ParentUUID, _ = raw["parentUuid"].(string)
	rec.Timestamp, _ = raw["timestamp"].(string)
	rec.GitBranch, _ = raw["gitBranch"].(string)
	rec.CWD, _ = raw["cwd"].(string)
	if meta, ok := raw["isMeta"].(bool); ok {
		rec.IsMeta = meta
	}

	if msgRaw, ok := raw["message"]; ok {
		if msgMap, ok := msgRaw.(map[string]interface{}); ok {
			rec.Message.Role, _ = msgMap["role"].(string)
			if content, ok := msgMap["content"]; ok {
				if b, err := json.Marshal(content); err == nil {
					rec.Message.Content = b
				}
			}
		}
	}
	if tur, ok := raw["toolUseResult"]; ok {
		if b, err := json.Marshal(tur); err == nil {
			rec.ToolUseResult = b
		}
	}

	return rec, true
}

// IsToolResultUserRecord reports whether a user record's content is a
// list whose first element is a tool_result block, meaning it is not a
// real user turn for exchange-counting purposes.
func IsToolResultUserRecord(r Record) bool {
	if r.Type != "user" || len(r.Message.Content) == 0 {
		return false
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(r.Message.Content, &items); err != nil {
		return false
	}
	if len(items) == 0 {
		return false
	}
	t, _ := items[0]["type"].(string)
	return t == "tool_result"
}
