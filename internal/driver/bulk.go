// Package driver hosts the two thin entry points over the importer:
// the bulk walk across a whole projects tree, and the incremental
// single-session sync driven by a Stop hook.
package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gupsammy/claude-memory/internal/logrecord"
	"github.com/gupsammy/claude-memory/internal/store"
)

// BulkResult aggregates totals across a whole bulk import run.
type BulkResult struct {
	SessionsWritten int
	MessagesWritten int
	SessionsSkipped int
	ProjectTotals   map[string]int // short name -> sessions written
}

// BulkImportOptions narrows a run to a single project subdirectory and
// excludes others by short name.
type BulkImportOptions struct {
	ProjectFilter   string
	ExcludeProjects []string
}

// BulkImport walks projectsDir's immediate subdirectories, importing
// every session file (and sub-agent files beneath it) found in each.
func BulkImport(s *store.Store, projectsDir string, opts BulkImportOptions, logger *logrus.Logger) (BulkResult, error) {
	if logger == nil {
		logger = logrus.New()
	}
	runID := uuid.New().String()
	logger.WithField("run_id", runID).Info("starting bulk import")
	result := BulkResult{ProjectTotals: make(map[string]int)}

	excluded := make(map[string]bool, len(opts.ExcludeProjects))
	for _, name := range opts.ExcludeProjects {
		excluded[name] = true
	}

	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return result, fmt.Errorf("reading projects directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		key := entry.Name()
		projectPath := logrecord.DecodeProjectKey(key)
		shortName := filepath.Base(projectPath)

		if excluded[shortName] {
			continue
		}
		if opts.ProjectFilter != "" && opts.ProjectFilter != shortName && opts.ProjectFilter != key {
			continue
		}

		projectDir := filepath.Join(projectsDir, key)
		projectID, err := s.UpsertProject(projectPath, key)
		if err != nil {
			logger.WithError(err).WithField("project", projectPath).Error("failed to upsert project")
			continue
		}

		before := result.SessionsWritten
		importProjectDir(s, projectDir, projectID, &result, logger)
		result.ProjectTotals[shortName] = result.SessionsWritten - before
	}

	return result, nil
}

func importProjectDir(s *store.Store, projectDir string, projectID int64, result *BulkResult, logger *logrus.Logger) {
	topLevel, err := listSessionFiles(projectDir)
	if err != nil {
		logger.WithError(err).WithField("dir", projectDir).Error("failed to list session files")
		return
	}
	for _, file := range topLevel {
		importOneFile(s, file, projectID, nil, result, logger)
	}

	subAgentFiles, err := listSubAgentFiles(projectDir)
	if err != nil {
		logger.WithError(err).WithField("dir", projectDir).Error("failed to list sub-agent files")
		return
	}
	for parentUUID, files := range subAgentFiles {
		// Open question (ii): if the parent file hasn't been imported
		// yet in this walk, sub-agents import with a NULL parent ref.
		parentID, found, err := s.FindSessionByUUID(parentUUID)
		var parentRef *int64
		if err == nil && found {
			parentRef = &parentID
		}
		for _, file := range files {
			importOneFile(s, file, projectID, parentRef, result, logger)
		}
	}
}

func importOneFile(s *store.Store, file string, projectID int64, parentSessionID *int64, result *BulkResult, logger *logrus.Logger) {
	branches, messages, err := s.ImportSession(file, projectID, parentSessionID)
	switch {
	case errors.Is(err, store.ErrUnchanged), errors.Is(err, store.ErrNoBranches):
		result.SessionsSkipped++
	case err != nil:
		logger.WithError(err).WithField("file", file).Error("failed to import session")
		result.SessionsSkipped++
	default:
		if branches > 0 {
			result.SessionsWritten++
		}
		result.MessagesWritten += messages
	}
}

func listSessionFiles(projectDir string) ([]string, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, filepath.Join(projectDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// listSubAgentFiles finds <uuid>/subagents/*.jsonl files beneath a
// project directory, grouped by parent session UUID.
func listSubAgentFiles(projectDir string) (map[string][]string, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		parentUUID := e.Name()
		subagentsDir := filepath.Join(projectDir, parentUUID, "subagents")
		subEntries, err := os.ReadDir(subagentsDir)
		if err != nil {
			continue // no subagents directory for this session, not an error
		}
		var files []string
		for _, se := range subEntries {
			if se.IsDir() || !strings.HasSuffix(se.Name(), ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(subagentsDir, se.Name()))
		}
		if len(files) > 0 {
			sort.Strings(files)
			out[parentUUID] = files
		}
	}
	return out, nil
}
