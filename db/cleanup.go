package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CleanupResult reports what a retention pass removed.
type CleanupResult struct {
	RunsDeleted  int64
	HullsDeleted int64
	Duration     time.Duration
}

// Cleanup deletes runs older than retention, including their hulls, then
// runs VACUUM. A zero retention removes every run.
//
//	result, err := database.Cleanup(ctx, 30*24*time.Hour)
func (d *Database) Cleanup(ctx context.Context, retention time.Duration) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{}

	if retention < 0 {
		return result, fmt.Errorf("retention must be non-negative, got %s", retention)
	}
	cutoff := start.Add(-retention).UnixMilli()

	err := d.withConn(func(conn *sql.DB) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx,
			`DELETE FROM hulls WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, cutoff)
		if err != nil {
			return fmt.Errorf("failed to delete hulls: %w", err)
		}
		if result.HullsDeleted, err = res.RowsAffected(); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("failed to delete runs: %w", err)
		}
		if result.RunsDeleted, err = res.RowsAffected(); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit cleanup: %w", err)
		}

		// VACUUM cannot run inside a transaction.
		if result.RunsDeleted > 0 {
			if _, err := conn.ExecContext(ctx, "VACUUM"); err != nil {
				return fmt.Errorf("failed to vacuum database: %w", err)
			}
		}
		return nil
	})

	result.Duration = time.Since(start)
	if err != nil {
		return CleanupResult{Duration: result.Duration}, err
	}
	return result, nil
}
