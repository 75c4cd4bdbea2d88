package sqlite_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/aivisibility/internal/sqlite"
	"github.com/myrjola/aivisibility/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	_, err = db.ReadWrite.ExecContext(ctx,
		`INSERT INTO contacts (id, email, brand, domain, doc_id) VALUES ('1', 'a@b.c', 'Ember', 'ember.com', 'doc')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.ReadOnly.GetContext(ctx, &count, `SELECT COUNT(*) FROM contacts`))
	require.Equal(t, 1, count)

	_, err = db.ReadOnly.ExecContext(ctx, `DELETE FROM contacts`)
	require.Error(t, err, "read-only pool accepted a write")
}

func TestNewDatabase_Isolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := testhelpers.NewLogger(io.Discard)

	first, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)
	second, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, first.Close())
		require.NoError(t, second.Close())
	})

	_, err = first.ReadWrite.ExecContext(ctx,
		`INSERT INTO contacts (id, email, brand, domain, doc_id) VALUES ('1', 'a@b.c', 'Ember', 'ember.com', 'doc')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, second.ReadOnly.GetContext(ctx, &count, `SELECT COUNT(*) FROM contacts`))
	require.Zero(t, count)
}

func TestDatabase_Maintain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, db.Maintain(ctx))

	done := make(chan struct{})
	go func() {
		db.StartMaintenance(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintenance did not stop with its context")
	}
}
