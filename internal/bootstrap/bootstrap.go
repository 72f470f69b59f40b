package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "image-sizer-go/docs"
	"image-sizer-go/internal/domain/batch"
	"image-sizer-go/internal/domain/eventbus"
	"image-sizer-go/internal/domain/handles"
	domainimage "image-sizer-go/internal/domain/image"
	"image-sizer-go/internal/domain/job"
	"image-sizer-go/internal/domain/render"
	"image-sizer-go/internal/domain/sizes"
	platformconfig "image-sizer-go/internal/platform/config"
	platformerrors "image-sizer-go/internal/platform/errors"
	platformlogging "image-sizer-go/internal/platform/logging"
	platformobservability "image-sizer-go/internal/platform/observability"
	platformstorage "image-sizer-go/internal/platform/storage"
	httptransport "image-sizer-go/internal/transport/http"
	httpjobs "image-sizer-go/internal/transport/http/jobs"
	httpresize "image-sizer-go/internal/transport/http/resize"
	httpwebapi "image-sizer-go/internal/transport/http/webapi"
	"image-sizer-go/internal/transport/ws"
	"image-sizer-go/internal/utils"
)

const scalarHTML = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>image-sizer API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

// Options tune how the application graph is built.
type Options struct {
	// ConfigPath overrides IMAGE_SIZER_CONFIG.
	ConfigPath string
	// Config skips loading entirely when set.
	Config *platformconfig.Config
	// Console routes logs to w only, without a log file.
	Console io.Writer
	// LogLevel overrides the configured level when set.
	LogLevel string
}

type appState struct {
	opts Options

	config                *platformconfig.Config
	configPath            string
	logProvider           *platformlogging.Logger
	logger                *utils.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	handleStore           handles.Store
	catalog               *sizes.Catalog
	resolver              *batch.Resolver
	pipeline              *domainimage.Pipeline
	serverEngine          *batch.Engine
	interactiveRenderer   *render.Renderer
	bus                   *eventbus.Bus
	jobs                  *job.Manager
}

// App is the assembled object graph shared by the server and the CLI.
type App struct {
	Config   *platformconfig.Config
	Path     string
	Logger   *utils.Logger
	Catalog  *sizes.Catalog
	Resolver *batch.Resolver
	Engine   *batch.Engine
	Pipeline *domainimage.Pipeline
	Jobs     *job.Manager
	Store    handles.Store
	Bus      *eventbus.Bus

	state *appState
}

// Build executes the init graph and returns the assembled application.
func Build(ctx context.Context, opts Options) (*App, error) {
	state := &appState{opts: opts}
	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		state.close()
		return nil, err
	}
	return &App{
		Config:   state.config,
		Path:     state.configPath,
		Logger:   state.logger,
		Catalog:  state.catalog,
		Resolver: state.resolver,
		Engine:   state.serverEngine,
		Pipeline: state.pipeline,
		Jobs:     state.jobs,
		Store:    state.handleStore,
		Bus:      state.bus,
		state:    state,
	}, nil
}

// Close releases everything Build acquired, in reverse order.
func (a *App) Close() {
	if a == nil || a.state == nil {
		return
	}
	a.state.close()
}

// Run starts the server lifecycle: load configuration, wire dependencies, serve until signalled.
func Run(ctx context.Context, opts Options) error {
	app, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	logger := app.Logger
	logBootstrapGraph(InitGraph(), logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(app, group, groupCtx); err != nil {
		cancel()
		return fmt.Errorf("start http server: %w", err)
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func (s *appState) close() {
	logger := s.logger
	if s.jobs != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.jobs.Close(closeCtx); err != nil && logger != nil {
			logger.WarnTag("BOOT", "job manager did not close cleanly: %v", err)
		}
		cancel()
		s.jobs = nil
	}
	if s.handleStore != nil {
		if err := s.handleStore.Close(context.Background()); err != nil && logger != nil {
			logger.WarnTag("BOOT", "handle store did not close cleanly: %v", err)
		}
		s.handleStore = nil
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		s.db = nil
	}
	if shutdown := s.observabilityShutdown; shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := shutdown(shutdownCtx); err != nil && logger != nil {
			logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
		}
		cancel()
		s.observabilityShutdown = nil
	}
	if s.logProvider != nil {
		_ = s.logProvider.Close()
		s.logProvider = nil
	}
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "init graph")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("BOOT", "  %s: %s", step.ID, step.Title)
			continue
		}
		logger.InfoTag("BOOT", "  %s: %s (after %s)", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-handles",
			Title:     "Initialise output handle store",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initHandleStoreStep,
		},
		{
			ID:        "catalog:load",
			Title:     "Load size catalog",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindConfig,
			Execute:   loadCatalogStep,
		},
		{
			ID:        "render:init-engines",
			Title:     "Initialise decoders and renderers",
			DependsOn: []string{"catalog:load", "observability:setup-hooks"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEnginesStep,
		},
		{
			ID:        "jobs:init-manager",
			Title:     "Initialise job manager",
			DependsOn: []string{"storage:init-handles", "render:init-engines"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initJobsStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	if state.opts.Config != nil {
		if err := platformconfig.Validate(state.opts.Config); err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "invalid configuration", err)
		}
		state.config = state.opts.Config
		return nil
	}

	result, err := platformconfig.NewLoader().WithPath(state.opts.ConfigPath).Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	level := state.config.Log.Level
	if state.opts.LogLevel != "" {
		level = state.opts.LogLevel
	}

	if state.opts.Console != nil {
		state.logProvider = platformlogging.NewConsole(level, state.opts.Console)
	} else {
		logProvider, err := platformlogging.New(platformlogging.Config{
			Level:    level,
			Dir:      state.config.Log.Dir,
			Filename: state.config.Log.File,
		})
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
		}
		state.logProvider = logProvider
	}

	state.logger = state.logProvider.Legacy()
	state.slogger = state.logProvider.Slog()
	utils.DefaultLogger = state.logger

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	state.logger.InfoTag("BOOT", "logging ready [%s] config=%s", level, source)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	slogger := state.slogger
	if slogger == nil {
		slogger = state.logger.Slog()
	}

	cfg := platformobservability.Config{
		Enabled: state.config.Obs.Enabled || strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initHandleStoreStep(_ context.Context, state *appState) error {
	hc := state.config.Handles
	cfg := handles.Config{
		Driver: hc.Driver,
		TTL:    hc.TTL,
		Memory: &handles.MemoryConfig{GCInterval: hc.Cleanup},
		Redis: &handles.RedisConfig{
			Addr:     hc.Redis.Addr,
			Username: hc.Redis.Username,
			Password: hc.Redis.Password,
			DB:       hc.Redis.DB,
			Prefix:   hc.Redis.Prefix,
		},
		SQLite: &handles.SQLiteConfig{DSN: hc.SQLite.DSN},
	}

	var deps handles.Dependencies
	if cfg.Driver == handles.DriverSQLite {
		db, err := platformstorage.Open(hc.SQLite.DSN)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-handles", "failed to open sqlite database", err)
		}
		state.db = db
		deps.SQLiteDB = db
	}

	store, err := handles.New(cfg, deps)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-handles", "failed to create handle store", err)
	}
	state.handleStore = store

	driver := cfg.Driver
	if driver == "" {
		driver = handles.DriverMemory
	}
	state.logger.InfoTag("STORE", "handle store ready driver=%s ttl=%s", driver, hc.TTL)
	return nil
}

func loadCatalogStep(_ context.Context, state *appState) error {
	catalog := sizes.Builtin()
	if path := state.config.Catalog.Path; path != "" {
		loaded, err := sizes.Load(path)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "catalog:load", "failed to load size catalog", err)
		}
		catalog = loaded
		state.logger.InfoTag("CATALOG", "loaded %s", path)
	}
	state.catalog = catalog
	state.resolver = batch.NewResolver(catalog)
	state.logger.InfoTag("CATALOG", "%d sizes in %d categories", catalog.Len(), len(catalog.Categories()))
	return nil
}

func initEnginesStep(_ context.Context, state *appState) error {
	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Security: &state.config.Security,
		Logger:   state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "render:init-engines", "failed to create image pipeline", err)
	}
	state.pipeline = pipeline

	encoder := render.PNGEncoder{Level: state.config.Render.PNGCompression}

	serverResampler, err := render.NewResampler(state.config.Render.ServerResampler)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "render:init-engines", "invalid server resampler", err)
	}
	interactiveResampler, err := render.NewResampler(state.config.Render.InteractiveResampler)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "render:init-engines", "invalid interactive resampler", err)
	}

	engine, err := batch.NewEngine(batch.EngineOptions{
		Pipeline: pipeline,
		Renderer: render.NewRenderer(serverResampler, encoder),
		Logger:   state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "render:init-engines", "failed to create batch engine", err)
	}
	state.serverEngine = engine
	state.interactiveRenderer = render.NewRenderer(interactiveResampler, encoder)

	state.logger.InfoTag("RENDER", "resamplers server=%s interactive=%s",
		engine.Renderer().Resampler().Name(), state.interactiveRenderer.Resampler().Name())
	return nil
}

func initJobsStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	if err := eventbus.Attach(state.bus, eventbus.NewLogHandler(state.logger)); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "jobs:init-manager", "failed to attach job event log", err)
	}

	manager, err := job.NewManager(job.Options{
		Engine:    state.serverEngine,
		Resolver:  state.resolver,
		Renderer:  state.interactiveRenderer,
		Store:     state.handleStore,
		Bus:       state.bus,
		Logger:    state.logger,
		MaxActive: state.config.Jobs.MaxActive,
		TTL:       state.config.Handles.TTL,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "jobs:init-manager", "failed to create job manager", err)
	}
	state.jobs = manager
	return nil
}

// NewHandler builds the complete HTTP handler: API routes, progress streams and docs.
func NewHandler(ctx context.Context, app *App) (http.Handler, *ws.Server, error) {
	config := app.Config
	logger := app.Logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	resizeService, err := httpresize.NewService(config, logger, app.Engine, app.Resolver)
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "resize:new-service", "failed to create resize service", err)
	}
	jobsService, err := httpjobs.NewService(config, logger, app.Jobs)
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "jobs:new-service", "failed to create jobs service", err)
	}
	webapiService, err := httpwebapi.NewService(httpwebapi.Options{
		Config:  config,
		Logger:  logger,
		Catalog: app.Catalog,
		Store:   app.Store,
		Jobs:    app.Jobs,
		Images:  app.Pipeline,
	})
	if err != nil {
		return nil, nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}

	for _, svc := range []interface {
		Register(context.Context, *gin.RouterGroup) error
	}{resizeService, jobsService, webapiService} {
		if err := svc.Register(ctx, apiGroup); err != nil {
			return nil, nil, err
		}
	}

	wsServer := ws.NewServer(ws.ServerConfig{}, app.Jobs, logger)
	wsServer.Register(router)

	router.GET("/openapi.json", func(c *gin.Context) {
		doc, err := swag.ReadDoc()
		if err != nil {
			logger.ErrorTag("HTTP", "render openapi document: %v", err)
			httptransport.RespondError(c, http.StatusInternalServerError, "failed to generate openapi spec", gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	})

	router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
	})

	return router, wsServer, nil
}

func startHTTPServer(app *App, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	handler, wsServer, err := NewHandler(groupCtx, app)
	if err != nil {
		return nil, err
	}

	config := app.Config
	logger := app.Logger
	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.Server.Timeout(),
		// Leaves room to write the timeout response itself.
		WriteTimeout: config.Server.Timeout() + 5*time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", addr)
		logger.InfoTag("HTTP", "api docs at http://%s/docs", addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			_ = wsServer.Stop()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		// a server goroutine exited on its own
		cancel()
		if err != nil {
			logger.ErrorTag("BOOT", "server stopped with error: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.InfoTag("BOOT", "shutting down: %v", context.Cause(ctx))
	cancel()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out")
		return errors.New("shutdown timed out")
	}
	return nil
}
