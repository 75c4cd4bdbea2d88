package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/aivisibility/internal/errors"
)

// Maintain lets SQLite refresh its query planner statistics and folds the write-ahead log back into the
// database file. See https://www.sqlite.org/pragma.html#pragma_optimize and
// https://www.sqlite.org/pragma.html#pragma_wal_checkpoint.
func (db *Database) Maintain(ctx context.Context) error {
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return errors.Wrap(err, "optimize")
	}
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		return errors.Wrap(err, "checkpoint wal")
	}
	return nil
}

// StartMaintenance calls Maintain right away and then every interval until ctx is done.
func (db *Database) StartMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		start := time.Now()
		if err := db.Maintain(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			db.logger.LogAttrs(ctx, slog.LevelError, "database maintenance failed", errors.SlogError(err))
		} else {
			db.logger.LogAttrs(ctx, slog.LevelDebug, "database maintained", slog.Duration("duration", time.Since(start)))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
