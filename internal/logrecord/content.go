package logrecord

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var commandEnvelopeSpans = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<command-name>.*?</command-name>`),
	regexp.MustCompile(`(?s)<command-message>.*?</command-message>`),
	regexp.MustCompile(`(?s)<command-args>.*?</command-args>`),
	regexp.MustCompile(`(?s)<local-command-stdout>.*?</local-command-stdout>`),
}

// ExtractedContent is the result of classifying one message's content.
type ExtractedContent struct {
	Text          string
	HasToolUse    bool
	HasThinking   bool
	ToolSummary   map[string]int // nil when no tool_use items present
}

// ExtractContent implements the content-extraction rules of the log
// record parser: string content has command-envelope spans stripped;
// list content is concatenated text with tool_use/thinking bookkeeping
// and tool_result items dropped entirely. Tool-use markers are never
// materialized into the text body.
func ExtractContent(raw json.RawMessage) ExtractedContent {
	if len(raw) == 0 {
		return ExtractedContent{}
	}

	result := gjson.ParseBytes(raw)
	if result.Type == gjson.String {
		return ExtractedContent{Text: stripCommandEnvelope(result.Str)}
	}
	if !result.IsArray() {
		return ExtractedContent{}
	}

	var (
		parts       []string
		hasThinking bool
		hasToolUse  bool
		toolCounts  map[string]int
	)
	result.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "text":
			if text := block.Get("text").Str; text != "" {
				parts = append(parts, text)
			}
		case "thinking":
			hasThinking = true
		case "tool_use":
			hasToolUse = true
			if name := block.Get("name").Str; name != "" {
				if toolCounts == nil {
					toolCounts = make(map[string]int)
				}
				toolCounts[name]++
			}
		case "tool_result":
			// dropped entirely
		}
		return true
	})

	return ExtractedContent{
		Text:        strings.Join(parts, "\n"),
		HasToolUse:  hasToolUse,
		HasThinking: hasThinking,
		ToolSummary: toolCounts,
	}
}

func stripCommandEnvelope(s string) string {
	for _, re := range commandEnvelopeSpans {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// ToolSummaryJSON serializes a tool-use summary for storage, returning
// nil (not "null") when there were no tool_use items.
func ToolSummaryJSON(summary map[string]int) []byte {
	if len(summary) == 0 {
		return nil
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return nil
	}
	return b
}
