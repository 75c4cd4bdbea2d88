// Package local holds the commands that run without the hosted backend.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/myrjola/aivisibility/internal/ai"
	"github.com/myrjola/aivisibility/internal/devbackend"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/logging"
	"github.com/myrjola/aivisibility/internal/repositories"
	"github.com/myrjola/aivisibility/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "local",
	Title: "Local development",
}

func init() {
	DevBackend.Flags().String("addr", "localhost:4001", "address to listen on")
	Contacts.Flags().String("sqlite-url", "", "lead database (default $AIVIS_SQLITE_URL or ./aivisibility.sqlite)")
	Contacts.Flags().Int("limit", 50, "maximum number of contacts to list") //nolint:mnd // one screen
}

var DevBackend = &cobra.Command{
	Use:     "devbackend",
	GroupID: "local",
	Short:   "Serve a development analysis backend",
	Long: `Serves the analysis backend endpoints from memory. Verification codes are written to the log.
With OPENAI_API_KEY set, queries and answers come from a chat model, otherwise from canned content.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger := newLogger(cmd)
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return errors.Wrap(err, "addr flag")
		}

		var generator devbackend.Generator = devbackend.CannedGenerator{}
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			generator = devbackend.OpenAIGenerator{Client: ai.NewClient(key, os.Getenv("OPENAI_BASE_URL"))}
			logger.LogAttrs(ctx, slog.LevelInfo, "using OpenAI for generated content")
		}

		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.Wrap(err, "listen", slog.String("addr", addr))
		}
		srv := &http.Server{
			Handler:           devbackend.NewServer(generator, logger),
			ReadHeaderTimeout: 5 * time.Second, //nolint:mnd // 5 seconds
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		}

		shutdownComplete := make(chan error, 1)
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd // 5 seconds
			defer cancel()
			shutdownComplete <- srv.Shutdown(shutdownCtx)
		}()

		logger.LogAttrs(ctx, slog.LevelInfo, "starting development backend",
			slog.String("url", "http://"+listener.Addr().String()))
		if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		if err = <-shutdownComplete; err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	},
}

var Contacts = &cobra.Command{
	Use:     "contacts",
	GroupID: "local",
	Short:   "List captured leads",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger := newLogger(cmd)
		url, err := cmd.Flags().GetString("sqlite-url")
		if err != nil {
			return errors.Wrap(err, "sqlite-url flag")
		}
		if url == "" {
			url = os.Getenv("AIVIS_SQLITE_URL")
		}
		if url == "" {
			url = "./aivisibility.sqlite"
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return errors.Wrap(err, "limit flag")
		}

		db, err := sqlite.NewDatabase(ctx, url, logger)
		if err != nil {
			return errors.Wrap(err, "open database")
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.LogAttrs(ctx, slog.LevelWarn, "close database", errors.SlogError(closeErr))
			}
		}()

		contacts, err := repositories.NewContactRepository(db, logger).List(ctx, limit)
		if err != nil {
			return errors.Wrap(err, "list contacts")
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0) //nolint:mnd // column padding
		_, _ = fmt.Fprintln(tw, "CREATED\tEMAIL\tBRAND\tDOMAIN\tDOC ID")
		for _, c := range contacts {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				c.CreatedAt.Local().Format(time.DateTime), c.Email, c.Brand, c.Domain, c.DocID)
		}
		if err = tw.Flush(); err != nil {
			return errors.Wrap(err, "flush table")
		}
		return nil
	},
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})))
}
