package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/aivisibility/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := logging.WithAttrs(context.Background(), slog.String("wizard_session", "abc"))
	sibling := logging.WithAttrs(ctx, slog.Int("index", 1))
	ctx = logging.WithAttrs(ctx, slog.Int("index", 2))

	logger.With(slog.String("component", "test")).InfoContext(ctx, "hello")
	out := buf.String()
	require.Contains(t, out, "wizard_session=abc")
	require.Contains(t, out, "index=2")
	require.Contains(t, out, "component=test")
	require.NotContains(t, out, "index=1")

	buf.Reset()
	logger.InfoContext(sibling, "sibling")
	require.Contains(t, buf.String(), "index=1")
}
