package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/gupsammy/claude-memory/internal/logrecord"
	"github.com/gupsammy/claude-memory/internal/store"
)

// Watcher re-runs the incremental sync driver whenever a project's
// .jsonl files change on disk. It exists for users who run
// claude-memory as a standalone long-running process instead of
// driving it from a Stop hook; the hook path in IncrementalSync
// remains the primary entry point.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]time.Time
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	onChange func(path string)
	logger   *logrus.Logger
}

// NewWatcher builds a Watcher that calls onChange once per .jsonl file
// after debounce has elapsed since its last write.
func NewWatcher(debounce time.Duration, logger *logrus.Logger, onChange func(path string)) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watch: onChange callback is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		onChange: onChange,
		logger:   logger,
	}, nil
}

// WatchRecursive adds root and every subdirectory beneath it to the
// watch list, auto-following newly created directories as they appear.
func (w *Watcher) WatchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = w.fsw.Add(path)
		}
		return nil
	})
}

// Start begins processing filesystem events in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop halts the watcher and blocks until its goroutine has exited.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.fsw.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("watch: fsnotify error")
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
			return
		}
	}
	if !strings.HasSuffix(event.Name, ".jsonl") {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.onChange(path)
	}
}

// SyncChangedFile resolves file's enclosing project and parent session
// (if it's a sub-agent transcript) and imports it through the same path
// IncrementalSync uses. It is the onChange callback wired by the watch
// CLI command.
func SyncChangedFile(s *store.Store, file string, logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.New()
	}

	projectDir := enclosingProjectDir(file)
	projectKey := filepath.Base(projectDir)
	projectPath := logrecord.DecodeProjectKey(projectKey)

	projectID, err := s.UpsertProject(projectPath, projectKey)
	if err != nil {
		logger.WithError(err).WithField("project", projectPath).Error("watch: failed to upsert project")
		return
	}

	var parentRef *int64
	if parentUUID := subAgentParentUUID(file); parentUUID != "" {
		if id, ok, err := s.FindSessionByUUID(parentUUID); err == nil && ok {
			parentRef = &id
		}
	}

	_, _, err = s.ImportSession(file, projectID, parentRef)
	if err != nil && !errors.Is(err, store.ErrUnchanged) && !errors.Is(err, store.ErrNoBranches) {
		logger.WithError(err).WithField("file", file).Error("watch: import failed")
	}
}

// subAgentParentUUID returns the parent session UUID encoded in a
// sub-agent file's path (.../<uuid>/subagents/<file>.jsonl), or "" for
// a top-level session file.
func subAgentParentUUID(file string) string {
	dir := filepath.Dir(file)
	if filepath.Base(dir) != "subagents" {
		return ""
	}
	return filepath.Base(filepath.Dir(dir))
}
