package logrecord

import (
	"encoding/json"
	"strings"

	"github.com/google/shlex"
	"github.com/tidwall/gjson"
)

var fileModifyingTools = map[string]bool{
	"Edit":      true,
	"Write":     true,
	"MultiEdit": true,
}

const commitSubjectMaxLen = 100

// ExtractAux walks an assistant message's content list for tool_use
// blocks worth surfacing outside the text body: file paths touched by
// Edit/Write/MultiEdit, and commit subject lines from `git commit -m`
// Bash invocations.
func ExtractAux(raw json.RawMessage) (files []string, commits []string) {
	if len(raw) == 0 {
		return nil, nil
	}
	result := gjson.ParseBytes(raw)
	if !result.IsArray() {
		return nil, nil
	}

	result.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str != "tool_use" {
			return true
		}
		name := block.Get("name").Str
		input := block.Get("input")

		if fileModifyingTools[name] {
			if path := input.Get("file_path").Str; path != "" {
				files = append(files, path)
			}
			return true
		}

		if name == "Bash" {
			command := input.Get("command").Str
			if strings.Contains(command, "git commit") {
				if subject, ok := commitSubject(command); ok {
					commits = append(commits, truncate(subject, commitSubjectMaxLen))
				}
			}
		}
		return true
	})

	return files, commits
}

// commitSubject extracts the argument following the first -m flag from a
// shell command string, using shlex for POSIX-aware quote handling
// instead of a hand-rolled regex.
func commitSubject(command string) (string, bool) {
	tokens, err := shlex.Split(command)
	if err != nil {
		return "", false
	}
	for i, tok := range tokens {
		if tok == "-m" && i+1 < len(tokens) {
			return tokens[i+1], true
		}
		if strings.HasPrefix(tok, "-m") && len(tok) > 2 {
			return tok[2:], true
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
