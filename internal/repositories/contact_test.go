package repositories_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/repositories"
	"github.com/myrjola/aivisibility/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestContactRepository(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewContactRepository(db, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	older := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first, err := repo.Save(ctx, models.Contact{
		Email:     "owner@embercookware.com",
		Brand:     "Ember Cookware",
		Domain:    "embercookware.com",
		DocID:     "abc123",
		CreatedAt: older,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.Save(ctx, models.Contact{
		Email:  "hello@example.com",
		Brand:  "Example",
		Domain: "example.com",
		DocID:  "def456",
	})
	require.NoError(t, err)
	require.False(t, second.CreatedAt.IsZero())

	t.Run("newest first", func(t *testing.T) {
		contacts, err := repo.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, contacts, 2)
		require.Equal(t, second.ID, contacts[0].ID)
		require.Equal(t, first.ID, contacts[1].ID)
		require.Equal(t, "Ember Cookware", contacts[1].Brand)
		require.Equal(t, "abc123", contacts[1].DocID)
		require.True(t, older.Equal(contacts[1].CreatedAt))
	})

	t.Run("limit", func(t *testing.T) {
		contacts, err := repo.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, contacts, 1)
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := repo.Save(ctx, first)
		require.Error(t, err)
	})
}
