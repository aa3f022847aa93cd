package logrecord

import "strings"

// DecodeProjectKey reverses the project-directory encoding: each '-'
// denotes a '/', and the leading '-' produced by the root path's leading
// '/' is restored.
func DecodeProjectKey(key string) string {
	if key == "" {
		return "/"
	}
	path := strings.ReplaceAll(key, "-", "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// EncodeProjectKey produces the directory-name encoding for a filesystem
// path: every '/' becomes '-'.
func EncodeProjectKey(path string) string {
	return strings.ReplaceAll(path, "/", "-")
}

// SessionIDFromFilename derives a session UUID from a log file's stem,
// stripping the `agent-` prefix used by sub-agent logs.
func SessionIDFromFilename(stem string) string {
	return strings.TrimPrefix(stem, "agent-")
}
