package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myrjola/aivisibility/internal/errors"
)

const (
	// readTimeout is plenty for reading the small form posts of the wizard.
	readTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

func (app *application) newServer() *http.Server {
	return &http.Server{
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           app.routes(),
		IdleTimeout:       time.Minute,
		ReadTimeout:       readTimeout,
		WriteTimeout:      app.requestTimeout,
		ReadHeaderTimeout: time.Second,
	}
}

// configureAndStartServer serves the application on addr until SIGINT or SIGTERM arrives or ctx is done
// and then shuts the server down gracefully.
func (app *application) configureAndStartServer(ctx context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := app.newServer()
	// Live result streams never finish on their own so they are told to stop when shutdown begins.
	streams, stopStreams := context.WithCancel(context.WithoutCancel(ctx))
	defer stopStreams()
	app.streamsDone = streams.Done()
	srv.RegisterOnShutdown(stopStreams)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "TCP listen", slog.String("addr", addr))
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String("addr", listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server serve")
	}
	if err = <-shutdownErr; err != nil {
		return errors.Wrap(err, "shutdown server")
	}
	return nil
}
