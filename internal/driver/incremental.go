package driver

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/gupsammy/claude-memory/internal/logrecord"
	"github.com/gupsammy/claude-memory/internal/store"
)

// SyncResult maps directly onto the Stop hook's stdout contract.
type SyncResult struct {
	Continue       bool
	SuppressOutput bool
}

// IncrementalSync locates the log file for sessionID beneath
// projectsDir (including sub-agent locations) and imports it. It never
// returns an error to the caller: any failure is logged and treated as
// "nothing to do" so the hook never blocks the host.
func IncrementalSync(s *store.Store, projectsDir, sessionID string, logger *logrus.Logger) SyncResult {
	if logger == nil {
		logger = logrus.New()
	}

	file, parentUUID, found := locateSessionFile(projectsDir, sessionID)
	if !found {
		return SyncResult{Continue: true}
	}

	projectDir := enclosingProjectDir(file)
	projectKey := filepath.Base(projectDir)
	projectPath := logrecord.DecodeProjectKey(projectKey)

	projectID, err := s.UpsertProject(projectPath, projectKey)
	if err != nil {
		logger.WithError(err).WithField("project", projectPath).Error("incremental sync: failed to upsert project")
		return SyncResult{Continue: true}
	}

	var parentRef *int64
	if parentUUID != "" {
		if id, ok, err := s.FindSessionByUUID(parentUUID); err == nil && ok {
			parentRef = &id
		}
	}

	_, messages, err := s.ImportSession(file, projectID, parentRef)
	if err != nil {
		if err != store.ErrUnchanged && err != store.ErrNoBranches {
			logger.WithError(err).WithField("file", file).Error("incremental sync: import failed")
		}
		return SyncResult{Continue: true}
	}

	return SyncResult{Continue: true, SuppressOutput: messages > 0}
}

// locateSessionFile searches the projects tree for a file whose stem
// matches sessionID, checking top-level session files first and then
// sub-agent files (stem prefixed with agent-). Returns the sub-agent's
// parent session UUID when the match is a sub-agent file.
func locateSessionFile(projectsDir, sessionID string) (file string, parentUUID string, found bool) {
	projectEntries, err := os.ReadDir(projectsDir)
	if err != nil {
		return "", "", false
	}

	for _, pe := range projectEntries {
		if !pe.IsDir() {
			continue
		}
		projectDir := filepath.Join(projectsDir, pe.Name())

		candidate := filepath.Join(projectDir, sessionID+".jsonl")
		if fileExists(candidate) {
			return candidate, "", true
		}

		sessionEntries, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, se := range sessionEntries {
			if !se.IsDir() {
				continue
			}
			subagentsDir := filepath.Join(projectDir, se.Name(), "subagents")
			candidate := filepath.Join(subagentsDir, "agent-"+sessionID+".jsonl")
			if fileExists(candidate) {
				return candidate, se.Name(), true
			}
			candidate = filepath.Join(subagentsDir, sessionID+".jsonl")
			if fileExists(candidate) {
				return candidate, se.Name(), true
			}
		}
	}
	return "", "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// enclosingProjectDir collapses a sub-agent file's directory up two
// levels (.../<project_key>/<uuid>/subagents) to the project directory.
func enclosingProjectDir(file string) string {
	dir := filepath.Dir(file)
	if filepath.Base(dir) == "subagents" {
		return filepath.Dir(filepath.Dir(dir))
	}
	return dir
}
