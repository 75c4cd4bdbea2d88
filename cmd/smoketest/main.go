package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/myrjola/aivisibility/internal/e2etest"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/logging"
)

// TestInputPage checks that a visitor lands on the brand form.
func TestInputPage(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return errors.Wrap(err, "wait for ready")
	}
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return errors.Wrap(err, "get input page")
	}
	if step, _ := doc.Find("main").Attr("data-step"); step != "input" {
		return errors.New("unexpected wizard step", slog.String("step", step))
	}
	form := doc.Find("form[action='/brand']")
	if form.Length() == 0 {
		return errors.New("brand form missing")
	}
	if token, _ := form.Find("input[name=csrf_token]").Attr("value"); strings.TrimSpace(token) == "" {
		return errors.New("csrf token missing")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestInputPage(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing input page", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
