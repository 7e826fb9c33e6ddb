// =============================================================================
// FILE: internal/app/app.go
// PURPOSE: App lifecycle orchestrator. Loads config, stands up logging, the
//          store, requester, messenger, job manager and indexer
//          registration, the downloader and the HTTP surface, in that
//          order, and tears them down again on shutdown.
// =============================================================================

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gbmm/internal/cache"
	"gbmm/internal/config"
	"gbmm/internal/downloader"
	"gbmm/internal/httpapi"
	"gbmm/internal/indexer"
	"gbmm/internal/job"
	"gbmm/internal/logging"
	"gbmm/internal/messenger"
	"gbmm/internal/requester"
	"gbmm/internal/store"
	"gbmm/internal/utils/system"
)

// ---------------------------------------------------------------------------
// App
// ---------------------------------------------------------------------------

// App is the main application instance: every long-lived subsystem wired
// together for one run of the gbmm server.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.AppConfig
	logger *slog.Logger

	DB         *store.DB
	Req        *requester.Requester
	Messenger  *messenger.Messenger
	Jobs       *job.Manager
	Downloader *downloader.Downloader
	RespCache  cache.Cache
	Handler    http.Handler

	// ConfigPath and LogLevelOverride let cmd/gbmm's CLI layer override the
	// persisted config file path and logging level before Init runs.
	ConfigPath       string
	LogLevelOverride string
}

// New creates a new App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Init initializes every application subsystem in dependency order:
// config, logging, store, requester, messenger, job manager (with the
// indexer jobs registered before Startup runs its recovery scan),
// downloader, then the HTTP handler.
//
// Returns:
//   - Error if any subsystem fails to initialize.
func (a *App) Init() error {
	if err := config.Init(a.ConfigPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = config.Get()

	level := a.cfg.Logging.Level
	if a.LogLevelOverride != "" {
		level = a.LogLevelOverride
	}
	if err := logging.Init(&logging.Options{
		Level:      level,
		LogDir:     config.LogDirAbs(),
		Color:      true,
		RotateLogs: true,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	a.logger = logging.Logger()
	a.logger.Info(config.ServerName+" starting", "version", config.ServerVersion, "system", system.Summary())

	dbPath := filepath.Join(config.DatabaseDirAbs(), config.DatabaseName())
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.DB = db

	a.Req = requester.New(http.DefaultClient, config.UserAgent(), a.logger)
	go a.Req.Start(a.ctx)

	a.Messenger = messenger.New()
	store.SetDownloadHook(func(ev store.EventType, id int64) {
		a.Messenger.Publish(messenger.EventType(ev), "download", id)
	})

	a.Jobs = job.NewManager(a.DB, a.logger)

	indexer.Register(indexer.Deps{
		DB:          a.DB,
		Req:         a.Req,
		Manager:     a.Jobs,
		Messenger:   a.Messenger,
		BaseURL:     config.APIBaseURL,
		APIKeyField: config.APIKeyField,
		APIKey:      a.cfg.API.Key,
		Logger:      a.logger,
	})

	if err := a.Jobs.Startup(a.ctx); err != nil {
		return fmt.Errorf("job manager startup: %w", err)
	}

	filesRoot := config.FileRootAbs()
	a.Downloader = downloader.New(a.DB, http.DefaultClient, filesRoot, config.APIKeyField, a.cfg.API.Key, a.logger)
	a.Downloader.SetUpstream(a.Req, config.APIBaseURL)
	a.Downloader.Start(a.ctx)

	respCache, err := cache.New(cache.Mode(a.cfg.Cache.Mode), config.CacheDirAbs())
	if err != nil {
		return fmt.Errorf("init response cache: %w", err)
	}
	a.RespCache = respCache

	a.Handler = httpapi.Routes(&httpapi.Deps{
		DB:          a.DB,
		Req:         a.Req,
		Manager:     a.Jobs,
		Downloader:  a.Downloader,
		Messenger:   a.Messenger,
		Config:      config.NewStore(),
		FilesRoot:   filesRoot,
		BaseURL:     config.APIBaseURL,
		APIKeyField: config.APIKeyField,
		APIKey:      a.cfg.API.Key,
		Logger:      a.logger,
		RespCache:   a.RespCache,
	})

	a.setupSignals()

	return nil
}

// setupSignals configures graceful shutdown on SIGINT/SIGTERM.
func (a *App) setupSignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		a.logger.Info("received signal, shutting down", "signal", sig)
		a.cancel()
	}()
}

// Context returns the app's context.
func (a *App) Context() context.Context {
	return a.ctx
}

// Config returns the app config.
func (a *App) Config() *config.AppConfig {
	return a.cfg
}

// Logger returns the app logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
