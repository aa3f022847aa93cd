package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// GetStats reports archive-wide counts for the --stats CLI flag,
// including a per-tool invocation breakdown aggregated from every
// message's tool_summary JSON column.
func (s *Store) GetStats() (Stats, error) {
	var stats Stats

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT count(*) FROM projects`, &stats.Projects},
		{`SELECT count(*) FROM sessions`, &stats.Sessions},
		{`SELECT count(*) FROM branches`, &stats.Branches},
		{`SELECT count(*) FROM messages`, &stats.Messages},
	}
	for _, c := range counts {
		if err := s.db.Get(c.dest, c.query); err != nil {
			return stats, fmt.Errorf("counting: %w", err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DBSizeBytes = info.Size()
	}

	var summaries []string
	if err := s.db.Select(&summaries, `SELECT tool_summary FROM messages WHERE tool_summary IS NOT NULL`); err != nil {
		return stats, fmt.Errorf("reading tool summaries: %w", err)
	}
	stats.ToolCounts = make(map[string]int)
	for _, raw := range summaries {
		var counts map[string]int
		if err := json.Unmarshal([]byte(raw), &counts); err != nil {
			continue
		}
		for tool, n := range counts {
			stats.ToolCounts[tool] += n
		}
	}

	return stats, nil
}
