// Package recap implements the context selector and formatter: picking
// up to N prior sessions for the current project and rendering them as
// a Markdown blob injected at the start of a new session.
package recap

import (
	"fmt"
	"strings"
	"time"

	"github.com/gupsammy/claude-memory/internal/store"
)

// candidatePoolSize bounds how many active-branch rows are considered
// before the selection rule decides whether to keep scanning.
const candidatePoolSize = 20

// Select applies the §4.7 selection rule over a project's candidate
// active branches, returning the ones to render.
func Select(s *store.Store, projectID int64, excludeSessionUUID string, maxContextSessions int) ([]store.CandidateBranch, error) {
	candidates, err := s.CandidateActiveBranches(projectID, excludeSessionUUID, candidatePoolSize)
	if err != nil {
		return nil, err
	}
	return applySelectionRule(candidates, maxContextSessions), nil
}

// applySelectionRule walks candidates newest-first applying the
// exchange-count heuristic: skip noise, include-and-continue on exactly
// two exchanges (up to maxContextSessions), include-and-stop on more.
func applySelectionRule(candidates []store.CandidateBranch, maxContextSessions int) []store.CandidateBranch {
	var selected []store.CandidateBranch
	for _, c := range candidates {
		switch {
		case c.ExchangeCount <= 1:
			continue
		case c.ExchangeCount == 2:
			selected = append(selected, c)
			if len(selected) >= maxContextSessions {
				return selected
			}
		default: // > 2
			selected = append(selected, c)
			return selected
		}
	}
	return selected
}

// RenderOptions controls per-message truncation in the rendered output.
type RenderOptions struct {
	TruncationLimit int // default 2000, applies to "Where We Left Off" message bodies
}

// Render assembles the selected branches into the Markdown context blob
// described in §4.7, loading each branch's messages from the store.
func Render(s *store.Store, branches []store.CandidateBranch, opts RenderOptions) (string, error) {
	if len(branches) == 0 {
		return "", nil
	}
	if opts.TruncationLimit <= 0 {
		opts.TruncationLimit = 2000
	}

	var sections []string
	for _, b := range branches {
		messages, err := s.BranchMessages(b.BranchID)
		if err != nil {
			return "", err
		}
		sections = append(sections, renderSession(b, messages, opts))
	}

	var out strings.Builder
	out.WriteString("# Previous Conversations\n\n")
	out.WriteString(strings.Join(sections, "\n\n---\n\n"))
	return out.String(), nil
}

func renderSession(b store.CandidateBranch, messages []store.Message, opts RenderOptions) string {
	var out strings.Builder

	fmt.Fprintf(&out, "## %s → %s\n", localClock(b.StartedAt), localClock(b.EndedAt))

	if len(b.FilesModified) > 0 {
		out.WriteString("\n**Files Modified**\n")
		files := b.FilesModified
		tail := false
		if len(files) > 10 {
			tail = true
			files = files[len(files)-10:]
		}
		for _, f := range files {
			fmt.Fprintf(&out, "- %s\n", f)
		}
		if tail {
			out.WriteString("- ...\n")
		}
	}

	if len(b.Commits) > 0 {
		out.WriteString("\n**Git Commits**\n")
		for _, c := range b.Commits {
			fmt.Fprintf(&out, "- %s\n", c)
		}
	}

	userIndices := userMessageIndices(messages)
	total := len(userIndices)

	lastThreeStart := total - 3
	if lastThreeStart < 0 {
		lastThreeStart = 0
	}

	if total > 3 && !inLastThree(0, lastThreeStart) {
		goal := messages[userIndices[0]].Content
		fmt.Fprintf(&out, "\n**Session Goal**\n%s\n", truncate(goal, 1000))
	}

	if total > 3 {
		otherIdx := userIndices[1:lastThreeStart]
		if len(otherIdx) > 0 {
			out.WriteString("\n**Other Requests**\n")
			for _, idx := range otherIdx {
				fmt.Fprintf(&out, "- %s\n", truncate(messages[idx].Content, 300))
			}
		}
	}

	if total > 0 {
		out.WriteString("\n**Where We Left Off**\n")
		for _, idx := range userIndices[lastThreeStart:] {
			fmt.Fprintf(&out, "\n> %s\n", truncate(messages[idx].Content, opts.TruncationLimit))
			if reply, ok := nextAssistantReply(messages, idx); ok {
				fmt.Fprintf(&out, "\n%s\n", truncate(reply, opts.TruncationLimit))
			}
		}
	}

	return strings.TrimRight(out.String(), "\n")
}

func userMessageIndices(messages []store.Message) []int {
	var idx []int
	for i, m := range messages {
		if m.Role == "user" {
			idx = append(idx, i)
		}
	}
	return idx
}

func inLastThree(userIdx, lastThreeStart int) bool {
	return userIdx >= lastThreeStart
}

func nextAssistantReply(messages []store.Message, fromIdx int) (string, bool) {
	for i := fromIdx + 1; i < len(messages); i++ {
		if messages[i].Role == "user" {
			return "", false
		}
		if messages[i].Role == "assistant" {
			return messages[i].Content, true
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

func localClock(ts string) string {
	if ts == "" {
		return "?"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04")
}
