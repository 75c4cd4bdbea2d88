package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/sqlite"
	"github.com/myrjola/aivisibility/internal/testhelpers"
)

// migratetest opens a copy of the production lead database, which applies the schema, and checks that the
// captured contacts are still readable.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("AIVIS_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "AIVIS_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	var count int
	if err = db.ReadOnly.GetContext(ctx, &count, `SELECT COUNT(*) FROM contacts WHERE email <> ''`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting contacts", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "contact count", slog.Int("count", count))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
