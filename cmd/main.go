// Package main is the claude-memory CLI: a bulk import driver, a pair
// of hook entry points, and search/stats reporting over the archive.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gupsammy/claude-memory/internal/config"
	"github.com/gupsammy/claude-memory/internal/driver"
	"github.com/gupsammy/claude-memory/internal/recap"
	"github.com/gupsammy/claude-memory/internal/settings"
	"github.com/gupsammy/claude-memory/internal/store"
)

var (
	cfgFile      string
	dbPathFlag   string
	projectsFlag string
	debugFlag    bool

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "claude-memory",
	Short: "Archive and recall Claude Code conversation history",
	Long:  `claude-memory ingests Claude Code session transcripts into a searchable local SQLite archive.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			log.SetLevel(logrus.DebugLevel)
		}
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if n := cmd.Name(); n == "sync" || n == "context" {
			// Hook entry points must never write to stderr.
			log.SetOutput(io.Discard)
		}
	},
}

func resolvePaths() (dbPath, projectsDir string, err error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return "", "", fmt.Errorf("loading config: %w", err)
	}

	dbPath = cfg.Store.DBPath
	projectsDir = cfg.Claude.ProjectsPath

	if home, herr := os.UserHomeDir(); herr == nil {
		s := settings.Load(filepath.Join(home, ".claude", "claude-memory.md"))
		if s.DBPath != "" {
			dbPath = s.DBPath
		}
	}

	if dbPathFlag != "" {
		dbPath = dbPathFlag
	}
	if projectsFlag != "" {
		projectsDir = projectsFlag
	}
	return dbPath, projectsDir, nil
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import every project under the projects directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, projectsDir, err := resolvePaths()
		if err != nil {
			return err
		}
		projectFilter, _ := cmd.Flags().GetString("project")

		excludeProjects := settings.Defaults().ExcludeProjects
		if home, herr := os.UserHomeDir(); herr == nil {
			excludeProjects = settings.Load(filepath.Join(home, ".claude", "claude-memory.md")).ExcludeProjects
		}

		s, err := store.Open(dbPath, log)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		result, err := driver.BulkImport(s, projectsDir, driver.BulkImportOptions{
			ProjectFilter:   projectFilter,
			ExcludeProjects: excludeProjects,
		}, log)
		if err != nil {
			return err
		}

		for project, count := range result.ProjectTotals {
			if count > 0 {
				fmt.Printf("%s: %d sessions\n", project, count)
			}
		}
		fmt.Printf("Imported %d sessions (%d messages), skipped %d unchanged\n",
			result.SessionsWritten, result.MessagesWritten, result.SessionsSkipped)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Incrementally sync one session (Stop hook entry point)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var input struct {
			SessionID string `json:"session_id"`
		}
		_ = json.NewDecoder(bufio.NewReader(os.Stdin)).Decode(&input)

		output := map[string]interface{}{"continue": true}
		dbPath, projectsDir, err := resolvePaths()
		if err == nil && input.SessionID != "" {
			if s, serr := store.Open(dbPath, log); serr == nil {
				defer s.Close()
				result := driver.IncrementalSync(s, projectsDir, input.SessionID, log)
				output["continue"] = result.Continue
				if result.SuppressOutput {
					output["suppressOutput"] = true
				}
			} else {
				log.WithError(serr).Error("sync: failed to open store")
			}
		}

		json.NewEncoder(os.Stdout).Encode(output)
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Emit session-start context (SessionStart hook entry point)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var input struct {
			CWD       string `json:"cwd"`
			SessionID string `json:"session_id"`
			Source    string `json:"source"`
		}
		_ = json.NewDecoder(bufio.NewReader(os.Stdin)).Decode(&input)

		output := map[string]interface{}{}
		markdown, ok := buildContext(input.CWD, input.SessionID, input.Source)
		if ok {
			output["hookSpecificOutput"] = map[string]interface{}{
				"hookEventName":     "SessionStart",
				"additionalContext": markdown,
			}
		}
		json.NewEncoder(os.Stdout).Encode(output)
		return nil
	},
}

func buildContext(cwd, sessionID, source string) (string, bool) {
	if source != "startup" && source != "clear" {
		return "", false
	}

	dbPath, _, err := resolvePaths()
	if err != nil {
		return "", false
	}

	projectSettings := settings.Defaults()
	if home, herr := os.UserHomeDir(); herr == nil {
		projectSettings = settings.Load(filepath.Join(home, ".claude", "claude-memory.md"))
	}
	if !projectSettings.AutoInjectContext {
		return "", false
	}

	s, err := store.Open(dbPath, log)
	if err != nil {
		log.WithError(err).Error("context: failed to open store")
		return "", false
	}
	defer s.Close()

	projectKey := strings.NewReplacer("/", "-", ".", "-").Replace(cwd)
	projectID, found, err := s.FindProjectByKey(projectKey)
	if err != nil || !found {
		return "", false
	}

	selected, err := recap.Select(s, projectID, sessionID, projectSettings.MaxContextSessions)
	if err != nil || len(selected) == 0 {
		return "", false
	}

	markdown, err := recap.Render(s, selected, recap.RenderOptions{TruncationLimit: projectSettings.ContextTruncationLimit})
	if err != nil || markdown == "" {
		return "", false
	}
	return markdown, true
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over archived messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _, err := resolvePaths()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := store.Open(dbPath, log)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		results, err := s.Search(args[0], limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		for _, r := range results {
			fmt.Printf("[%s] %s (%s)\n%s\n\n", r.Timestamp, r.ProjectShortName, r.SessionUUID, r.Snippet)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print archive-wide counts and a per-tool breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _, err := resolvePaths()
		if err != nil {
			return err
		}

		s, err := store.Open(dbPath, log)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		stats, err := s.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Projects: %d\nSessions: %d\nBranches: %d\nMessages: %d\nDatabase size: %d bytes\n",
			stats.Projects, stats.Sessions, stats.Branches, stats.Messages, stats.DBSizeBytes)
		if len(stats.ToolCounts) > 0 {
			fmt.Println("\nTool usage:")
			for tool, count := range stats.ToolCounts {
				fmt.Printf("  %-20s %d\n", tool, count)
			}
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-run orphan cleanup against the whole database without re-parsing logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _, err := resolvePaths()
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		s, err := store.Open(dbPath, log)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		removed, err := s.ReconcileOrphans(dryRun)
		if err != nil {
			return err
		}
		if dryRun {
			fmt.Printf("Would remove %d orphaned message rows\n", removed)
		} else {
			fmt.Printf("Removed %d orphaned message rows\n", removed)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the projects directory and sync changed sessions continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, projectsDir, err := resolvePaths()
		if err != nil {
			return err
		}

		s, err := store.Open(dbPath, log)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()

		w, err := driver.NewWatcher(2*time.Second, log, func(path string) {
			driver.SyncChangedFile(s, path, log)
		})
		if err != nil {
			return err
		}
		if err := w.WatchRecursive(projectsDir); err != nil {
			return fmt.Errorf("watching %s: %w", projectsDir, err)
		}
		w.Start()
		defer w.Stop()

		log.WithField("projects_dir", projectsDir).Info("watching for session changes, press Ctrl+C to stop")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/claude-memory/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "path to the SQLite archive (overrides config/settings)")
	rootCmd.PersistentFlags().StringVar(&projectsFlag, "projects-dir", "", "path to the Claude projects directory")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	importCmd.Flags().String("project", "", "limit the import to one project subdirectory")

	searchCmd.Flags().Int("limit", 20, "maximum number of results")

	reconcileCmd.Flags().Bool("dry-run", false, "report what would be removed without modifying the database")

	rootCmd.AddCommand(importCmd, syncCmd, contextCmd, searchCmd, statsCmd, reconcileCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
