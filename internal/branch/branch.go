// Package branch reconstructs conversation branches from a session's
// parent-pointer graph: the active branch ending at the session's
// latest message, and any abandoned branches left behind by user
// rewinds.
package branch

import (
	"sort"

	"github.com/gupsammy/claude-memory/internal/logrecord"
)

// userDescendantDepthCap bounds the recursion used to test whether an
// abandoned subtree contains a real user message, so a pathological
// input cannot blow the call stack.
const userDescendantDepthCap = 100

// Branch is one root-to-leaf path in a session's parent-pointer tree
// that carries at least one user message.
type Branch struct {
	LeafUUID      string
	ForkPointUUID string // "" for the active branch
	IsActive      bool
	MemberUUIDs   []string
	Started       string
	Ended         string
	ExchangeCount int
	FilesModified []string
	Commits       []string
}

// Detect runs the branch-reconstruction algorithm over one session's
// full graph stream.
func Detect(graph []logrecord.Record) []Branch {
	if len(graph) == 0 {
		return nil
	}

	byUUID := make(map[string]logrecord.Record, len(graph))
	parent := make(map[string]string, len(graph))
	children := make(map[string][]string, len(graph))
	for _, r := range graph {
		byUUID[r.UUID] = r
		if r.ParentUUID != "" {
			parent[r.UUID] = r.ParentUUID
			children[r.ParentUUID] = append(children[r.ParentUUID], r.UUID)
		}
	}

	activeLeaf := maxTimestampUUID(graph)
	if activeLeaf == "" {
		return nil
	}

	activePath := ancestors(activeLeaf, parent) // leaf-first
	activeSet := make(map[string]bool, len(activePath))
	activeNext := make(map[string]string, len(activePath)) // uuid -> the active child it leads to
	for i, u := range activePath {
		activeSet[u] = true
		if i > 0 {
			activeNext[u] = activePath[i-1]
		}
	}

	branches := []Branch{buildBranch(activePath, "", true, byUUID)}

	type abandoned struct {
		forkPoint string
		members   []string
	}
	var found []abandoned

	for _, u := range activePath {
		kids := children[u]
		if len(kids) <= 1 {
			continue
		}
		for _, k := range kids {
			if k == activeNext[u] {
				continue
			}
			sub := subtreeAll(k, children)
			if !subtreeHasUser(k, children, byUUID, 0) {
				continue
			}
			members := append(ancestors(u, parent), sub...)
			found = append(found, abandoned{forkPoint: u, members: members})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return leafOf(found[i].members, byUUID) < leafOf(found[j].members, byUUID)
	})

	for _, a := range found {
		branches = append(branches, buildBranch(a.members, a.forkPoint, false, byUUID))
	}

	return branches
}

func buildBranch(memberUUIDs []string, forkPoint string, active bool, byUUID map[string]logrecord.Record) Branch {
	leaf := leafOf(memberUUIDs, byUUID)

	type msgEntry struct {
		rec logrecord.Record
	}
	var messages []msgEntry
	for _, u := range memberUUIDs {
		rec, ok := byUUID[u]
		if !ok || !rec.IsUserOrAssistant() {
			continue
		}
		if rec.Type == "user" && logrecord.IsToolResultUserRecord(rec) {
			continue
		}
		messages = append(messages, msgEntry{rec})
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].rec.Timestamp < messages[j].rec.Timestamp
	})

	b := Branch{
		LeafUUID:      leaf,
		ForkPointUUID: forkPoint,
		IsActive:      active,
		MemberUUIDs:   memberUUIDs,
	}
	if len(messages) > 0 {
		b.Started = messages[0].rec.Timestamp
		b.Ended = messages[len(messages)-1].rec.Timestamp
	}

	seenFiles := make(map[string]bool)
	for _, m := range messages {
		if m.rec.Type == "user" {
			b.ExchangeCount++
			continue
		}
		files, commits := logrecord.ExtractAux(m.rec.Message.Content)
		for _, f := range files {
			if !seenFiles[f] {
				seenFiles[f] = true
				b.FilesModified = append(b.FilesModified, f)
			}
		}
		b.Commits = append(b.Commits, commits...)
	}

	return b
}

func leafOf(memberUUIDs []string, byUUID map[string]logrecord.Record) string {
	best := ""
	bestTS := ""
	for _, u := range memberUUIDs {
		rec, ok := byUUID[u]
		if !ok {
			continue
		}
		if best == "" || rec.Timestamp > bestTS {
			best = u
			bestTS = rec.Timestamp
		}
	}
	return best
}

// maxTimestampUUID picks the record with the lexically greatest
// timestamp; ties are broken arbitrarily (the source permits duplicate
// max timestamps and callers should not rely on which wins).
func maxTimestampUUID(graph []logrecord.Record) string {
	best := ""
	bestTS := ""
	for _, r := range graph {
		if r.UUID == "" {
			continue
		}
		if best == "" || r.Timestamp > bestTS {
			best = r.UUID
			bestTS = r.Timestamp
		}
	}
	return best
}

// ancestors walks parent pointers from uuid to the root, returning the
// collected uuids leaf-first (uuid itself included).
func ancestors(uuid string, parent map[string]string) []string {
	var path []string
	seen := make(map[string]bool)
	u := uuid
	for u != "" && !seen[u] {
		path = append(path, u)
		seen[u] = true
		u = parent[u]
	}
	return path
}

// subtreeAll collects every descendant uuid of root (root included),
// unbounded — used for branch membership once the user-descendant test
// has already approved the subtree.
func subtreeAll(root string, children map[string][]string) []string {
	var out []string
	var walk func(string)
	walk = func(u string) {
		out = append(out, u)
		for _, c := range children[u] {
			walk(c)
		}
	}
	walk(root)
	return out
}

// subtreeHasUser reports whether the subtree rooted at uuid contains at
// least one record of type user, bounded by userDescendantDepthCap.
// Exceeding the cap is treated as "no user descendant".
func subtreeHasUser(uuid string, children map[string][]string, byUUID map[string]logrecord.Record, depth int) bool {
	if depth > userDescendantDepthCap {
		return false
	}
	if rec, ok := byUUID[uuid]; ok && rec.Type == "user" {
		return true
	}
	for _, c := range children[uuid] {
		if subtreeHasUser(c, children, byUUID, depth+1) {
			return true
		}
	}
	return false
}
