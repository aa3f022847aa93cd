// Package settings loads the optional user-facing settings file: a
// Markdown document with a YAML front-matter block between `---`
// fences. An absent file or any parse failure falls back to defaults
// silently — this is scaffolding, not the ingestion engine, and must
// never block a hook invocation.
package settings

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds every recognized front-matter key.
type Settings struct {
	DBPath                string   `yaml:"db_path"`
	AutoInjectContext     bool     `yaml:"auto_inject_context"`
	MaxContextSessions    int      `yaml:"max_context_sessions"`
	ExcludeProjects       []string `yaml:"exclude_projects"`
	ContextTruncationLimit int     `yaml:"context_truncation_limit"`
	LoggingEnabled        bool     `yaml:"logging_enabled"`
	SyncOnStop            bool     `yaml:"sync_on_stop"`
}

// Defaults returns the built-in values used when no settings file is
// present or it fails to parse.
func Defaults() Settings {
	return Settings{
		AutoInjectContext:      true,
		MaxContextSessions:     2,
		ContextTruncationLimit: 2000,
		LoggingEnabled:         false,
		SyncOnStop:             true,
	}
}

// Load reads the settings file at path, if any, and merges its
// front-matter over the defaults. Any error reading or parsing the file
// yields plain defaults rather than propagating the error.
func Load(path string) Settings {
	defaults := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults
	}

	front, ok := extractFrontMatter(string(data))
	if !ok {
		return defaults
	}

	parsed := defaults
	if err := yaml.Unmarshal([]byte(front), &parsed); err != nil {
		return defaults
	}
	return parsed
}

// extractFrontMatter returns the text between the opening and closing
// `---` fences at the top of the document.
func extractFrontMatter(doc string) (string, bool) {
	const fence = "---"
	doc = strings.TrimLeft(doc, "﻿ \t\r\n")
	if !strings.HasPrefix(doc, fence) {
		return "", false
	}
	rest := doc[len(fence):]
	end := strings.Index(rest, "\n"+fence)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}
