package e2etest

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/logging"
)

// LogAddrKey is the log attribute the server announces its listening address with.
const LogAddrKey = "addr"

// ReadyPath is polled until the server answers 200 OK.
const ReadyPath = "/api/healthy"

// RunFunc starts a server and blocks until it stops. It has the signature of the binaries' run functions.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is a server started by [StartServer].
type Server struct {
	url    string
	client *Client
	done   chan struct{}
	err    error
}

// addrWatcher hands over the first logged address.
type addrWatcher struct {
	once sync.Once
	addr chan string
}

func (w *addrWatcher) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == LogAddrKey {
		w.once.Do(func() { w.addr <- a.Value.String() })
	}
	return a
}

// StartServer runs the server in the background and returns once it answers on [ReadyPath]. The server
// stops when ctx is done.
//
// Server logs go to logSink, usually [io.Discard]. The server must log the address it listens on under
// [LogAddrKey] because it normally picks a free port.
func StartServer(ctx context.Context, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	watcher := &addrWatcher{addr: make(chan string, 1)}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: watcher.replaceAttr,
	})))

	s := &Server{done: make(chan struct{})}
	go func() {
		defer close(s.done)
		s.err = run(ctx, logger, lookupEnv)
	}()

	var addr string
	select {
	case <-s.done:
		if s.err == nil {
			return nil, errors.New("server stopped before listening")
		}
		return nil, errors.Wrap(s.err, "server stopped before listening")
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "wait for listen address")
	case addr = <-watcher.addr:
	}

	s.url = "http://" + addr
	var err error
	if s.client, err = NewClient(s.url); err != nil {
		return nil, errors.Wrap(err, "new client")
	}
	if err = s.client.WaitForReady(ctx, ReadyPath); err != nil {
		return nil, errors.Wrap(err, "wait for ready")
	}
	return s, nil
}

// Client returns a client with its own cookie jar. Every call returns the same client.
func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}

// Wait blocks until the server has stopped and returns the error it stopped with.
func (s *Server) Wait() error {
	<-s.done
	return s.err
}
