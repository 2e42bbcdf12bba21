package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Processes modes.
const (
	StoreMode    = "store"
	WebMode      = "web"
	LauncherMode = "start"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	mode           string
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	redisClient    *redis.Client
	cleanups       []func() error
	queueConsumers []func(context.Context) error
}

// NewAppLogger ensures the logs folder exists and setup the logging module.
// The returned cleanups flush then close the log file.
func NewAppLogger(config *Config, mode string) (*zap.Logger, []func() error, error) {
	err := os.MkdirAll(config.LogFolder, 0o700)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logFile := NewRSyncWriter(config, clock, mode)
	logger, flusher := SetupLogging(config, logFile, NewTickClock(clock))
	return logger, []func() error{flusher, logFile.Close}, nil
}

// newStatistics provides the ops statistics of the running process.
func newStatistics(config *Config, clock Clocker) *Statistics {
	stats := &Statistics{
		version:   config.GitTag,
		container: IsAppRunningInDocker(),
		started:   clock.Now(),
		runtime:   runtime.Version(),
		platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	// Use git commit in case the tag is not set.
	if stats.version == "" {
		stats.version = config.GitCommit
	}
	return stats
}

// newServer wraps the router with the default http timeout handler
// and builds the server definition.
func newServer(config *Config, host, port string, router http.Handler) *http.Server {
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	return &http.Server{
		Addr:           net.JoinHostPort(host, port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}
}

// NewStoreApp provides the book store process.
func NewStoreApp(config *Config) (AppProvider, error) {
	logger, cleanups, err := NewAppLogger(config, StoreMode)
	if err != nil {
		return nil, err
	}
	app := &App{mode: StoreMode, logger: logger, config: config, cleanups: cleanups}

	// Setup the connection to redis server if needed.
	if config.Storage.Driver == RedisDriver || config.Backup.Enable {
		app.redisClient, err = GetRedisClient(config)
		if err != nil {
			app.Clean()
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
	}

	storage, closer, err := NewBookStorage(logger, config, app.redisClient)
	if err != nil {
		app.Clean()
		return nil, fmt.Errorf("failed to setup %s storage: %s", config.Storage.Driver, err)
	}
	app.cleanups = append([]func() error{closer}, app.cleanups...)

	var queue Queuer
	if config.Backup.Enable {
		backupConfig := config.BoltDB
		backupConfig.FilePath = config.Backup.FilePath
		boltDBClient, err := GetBoltDBClient(&backupConfig)
		if err != nil {
			app.Clean()
			return nil, fmt.Errorf("failed to open backup database: %s", err)
		}
		app.cleanups = append([]func() error{boltDBClient.Close}, app.cleanups...)
		queue = NewRedisQueue(app.redisClient)
		boltDBConsumer := NewBoltDBConsumer(logger, queue, NewBoltBookStorage(logger, &backupConfig, boltDBClient))
		app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
			return boltDBConsumer.Consume(ctx, CreateQueue, ReviewQueue)
		})
	}

	clock := NewClock(config.IsProduction)
	bookService := NewBookService(logger, storage, queue)
	apiHandler := NewAPIHandler(logger, config, newStatistics(config, clock), clock, NewIDsHandler(), bookService)

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiHandler.MiddlewaresStacks(CORSMiddleware)

	// Configure the endpoints with their handlers and middlewares.
	router := apiHandler.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	app.server = newServer(config, config.Server.Host, config.Server.Port, router)
	return app, nil
}

// loopbackURL returns the local base url of a server listening on host:port.
func loopbackURL(host, port string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// NewWebApp provides the web process serving the page and the proxy.
func NewWebApp(config *Config) (AppProvider, error) {
	logger, cleanups, err := NewAppLogger(config, WebMode)
	if err != nil {
		return nil, err
	}
	app := &App{mode: WebMode, logger: logger, config: config, cleanups: cleanups}

	tmpl, err := ParseTemplates()
	if err != nil {
		app.Clean()
		return nil, fmt.Errorf("failed to parse templates: %s", err)
	}

	// The page reaches the store through the proxy of this same process.
	client := NewAPIClient(loopbackURL(config.Web.Host, config.Web.Port)+"/api", &http.Client{Timeout: config.Server.RequestTimeout})
	idsHandler := NewIDsHandler()
	clock := NewClock(config.IsProduction)
	sessions, err := NewSessionStore(idsHandler, clock, config.Web.SessionsMax, config.Web.SessionTTL, func() *UIState {
		return NewUIState(logger, client)
	})
	if err != nil {
		app.Clean()
		return nil, fmt.Errorf("failed to setup sessions store: %s", err)
	}

	base := NewBaseHandler(logger, config, newStatistics(config, clock), clock, idsHandler)
	webHandler := NewWebHandler(base, sessions, NewProxy(logger, config.Proxy.BackendURL, config.Proxy.Timeout), tmpl)

	middlewaresPublic, middlewaresOps := webHandler.MiddlewaresStacks()
	router := webHandler.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	app.server = newServer(config, config.Web.Host, config.Web.Port, router)
	return app, nil
}

// Run starts the web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info(app.mode+" server stopped",
		zap.String("app.addr", app.server.Addr),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		if err := f(); err != nil {
			fmt.Fprintf(os.Stderr, "%s: cleanup failed: %v\n", app.mode, err)
		}
	}
}

// Serve starts the web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info(app.mode+" server starting", zap.String("app.addr", app.server.Addr))
		err := app.server.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info(app.mode + " server stopping. reason: requested to stop")
		} else {
			app.logger.Info(app.mode + " server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info(app.mode + " server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info(app.mode + " server graceful shutdown timed out")
		default:
			app.logger.Info(app.mode+" server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info(app.mode+" server going to force shutdown", zap.Error(app.server.Close()))
		}
		if app.redisClient != nil {
			_ = app.redisClient.Close()
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
