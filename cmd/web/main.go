package main

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/myrjola/aivisibility/internal/backend"
	"github.com/myrjola/aivisibility/internal/broker"
	"github.com/myrjola/aivisibility/internal/envstruct"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/leads"
	"github.com/myrjola/aivisibility/internal/logging"
	"github.com/myrjola/aivisibility/internal/pprofserver"
	"github.com/myrjola/aivisibility/internal/repositories"
	"github.com/myrjola/aivisibility/internal/sqlite"
	"github.com/myrjola/aivisibility/internal/wizard"
)

type config struct {
	// Addr is the address the web server listens on. Use localhost:0 for a random port.
	Addr string `env:"AIVIS_ADDR" envDefault:"localhost:4000"`
	// BackendURL is the base URL of the visibility analysis service.
	BackendURL string `env:"AIVIS_BACKEND_URL"`
	// SqliteURL is where captured contacts are stored. Use :memory: for an in-memory database.
	SqliteURL string `env:"AIVIS_SQLITE_URL" envDefault:"./aivisibility.sqlite"`
	// PprofAddr enables the pprof server when set, e.g. localhost:6060.
	PprofAddr       string        `env:"AIVIS_PPROF_ADDR" envDefault:""`
	SessionLifetime time.Duration `env:"AIVIS_SESSION_LIFETIME" envDefault:"12h"`
	GuideURL        string        `env:"AIVIS_GUIDE_URL" envDefault:"https://drive.google.com/file/d/11U3zct2IVYYrDQ_-scclEXMUR0g0Exeh/view?usp=sharing"`
	// RequestTimeout bounds the handlers that wait for the backend. Live result streams are exempt.
	RequestTimeout time.Duration `env:"AIVIS_REQUEST_TIMEOUT" envDefault:"60s"`
}

type application struct {
	logger         *slog.Logger
	db             *sqlite.Database
	sessionManager *scs.SessionManager
	sessions       *wizard.Store
	flow           *wizard.Flow
	hub            *broker.Hub[string, wizard.Notification]
	htmx           *htmx.HTMX
	templates      map[string]*template.Template
	guideURL       string
	requestTimeout time.Duration
	// streamsDone is closed when the server begins shutting down.
	streamsDone <-chan struct{}
}

// hubBufferSize is how many notifications a slow live result stream may lag behind before it misses some.
const hubBufferSize = 32

const janitorInterval = time.Minute

const maintenanceInterval = time.Hour

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if cfg.BackendURL == "" {
		return errors.New("AIVIS_BACKEND_URL is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err = pprofserver.Launch(ctx, cfg.PprofAddr, logger); err != nil {
		return errors.Wrap(err, "launch pprof server")
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(context.Background(), slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()
	go db.StartMaintenance(ctx, maintenanceInterval)

	var backendClient *backend.Client
	if backendClient, err = backend.NewClient(cfg.BackendURL, nil, logger); err != nil {
		return errors.Wrap(err, "create backend client")
	}

	recorder := leads.NewRecorder(repositories.NewContactRepository(db, logger), logger)
	// Lets contacts captured just before shutdown reach the database.
	defer recorder.Wait()

	hub := broker.NewHub[string, wizard.Notification](hubBufferSize)
	go hub.Start()
	defer hub.Stop()

	sessions := wizard.NewStore(cfg.SessionLifetime, logger)
	go sessions.StartJanitor(ctx, janitorInterval)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Name = sessionCookieName
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	var templates map[string]*template.Template
	if templates, err = parseTemplates(); err != nil {
		return errors.Wrap(err, "parse templates")
	}

	app := application{
		logger:         logger,
		db:             db,
		sessionManager: sessionManager,
		sessions:       sessions,
		flow:           wizard.NewFlow(backendClient, recorder, hub, logger),
		hub:            hub,
		htmx:           htmx.New(),
		templates:      templates,
		guideURL:       cfg.GuideURL,
		requestTimeout: cfg.RequestTimeout,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
