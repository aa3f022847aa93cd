package store

import "github.com/jmoiron/sqlx"

// ReconcileOrphans runs the same orphan-message cleanup ImportSession
// applies per-session, but across the whole database. It backs the
// reconcile CLI command for repairing a database without re-parsing
// every log file (e.g. after a manual branch edit). With dryRun it only
// counts the rows that would be removed.
func (s *Store) ReconcileOrphans(dryRun bool) (int64, error) {
	const countQuery = `SELECT count(*) FROM messages WHERE id NOT IN (SELECT message_id FROM branch_messages)`

	if dryRun {
		var count int64
		if err := s.db.Get(&count, countQuery); err != nil {
			return 0, err
		}
		return count, nil
	}

	var removed int64
	err := s.Transaction(func(tx *sqlx.Tx) error {
		var count int64
		if err := tx.Get(&count, countQuery); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM messages WHERE id NOT IN (SELECT message_id FROM branch_messages)`); err != nil {
			return err
		}
		removed = count
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
