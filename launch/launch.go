package launch

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/xerrors"

	"cdr.dev/slog/v3"

	"github.com/Cedrat/watch-focus-time/config"
	"github.com/Cedrat/watch-focus-time/query"
	"github.com/Cedrat/watch-focus-time/reconcile"
	"github.com/Cedrat/watch-focus-time/syncer"
	"github.com/Cedrat/watch-focus-time/web"
	"github.com/Cedrat/watch-focus-time/window"
)

type Options struct {
	ConfigPath string
	// Headless runs without the tray icon.
	Headless bool
	// Once runs a single tick and a single sync, then returns.
	Once bool
}

// App is the wired program: store, reconciler, syncer, loop and status API.
type App struct {
	cfg      config.Config
	log      slog.Logger
	db       *query.Database
	loop     *Loop
	web      *web.Server
	registry *prometheus.Registry
	closeLog func() error
}

// NewApp opens the store and wires every component from cfg.
func NewApp(cfg config.Config, source window.Source) (*App, error) {
	w, closeLog, err := openLogWriter(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(w, cfg.LogLevel)

	db, err := query.InitDatabase(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		_ = closeLog()
		return nil, xerrors.Errorf("open database %s: %w", cfg.DBPath, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rec := reconcile.New(source, db,
		reconcile.WithLogger(logger.Named("reconcile")),
		reconcile.WithMetrics(reconcile.NewMetrics(reg)),
	)

	loopOpts := []LoopOption{
		WithInterval(cfg.TickInterval.Std()),
		WithLogger(logger.Named("loop")),
	}
	if cfg.Sync.Enabled {
		engine := syncer.NewEngine(db,
			syncer.NewHTTPTransport(cfg.Sync.URL, cfg.Sync.AccessToken, cfg.Sync.Timeout.Std()),
			syncer.WithBatchSize(cfg.Sync.BatchSize),
			syncer.WithLogger(logger.Named("sync")),
			syncer.WithMetrics(syncer.NewMetrics(reg)),
		)
		loopOpts = append(loopOpts, WithSyncer(engine, cfg.Sync.EveryTicks))
	}
	loop := NewLoop(rec, loopOpts...)

	app := &App{
		cfg:      cfg,
		log:      logger,
		db:       db,
		loop:     loop,
		registry: reg,
		closeLog: closeLog,
	}
	if cfg.Web.Enabled {
		var trigger web.SyncTrigger
		if cfg.Sync.Enabled {
			trigger = loop
		}
		app.web = web.NewServer(db, trigger, reg, logger.Named("web"))
	}
	return app, nil
}

func (a *App) Loop() *Loop {
	return a.loop
}

// Run serves the status API (when enabled) and ticks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.web != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			// Tracking carries on without the status API.
			if err := a.web.ListenAndServe(ctx, a.cfg.Web.Address); err != nil {
				a.log.Error(context.Background(), "status server stopped",
					slog.F("address", a.cfg.Web.Address), slog.Error(err))
			}
		}()
		defer func() { <-done }()
	}
	err := a.loop.Run(ctx)
	if xerrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() error {
	err := a.db.Close()
	if cerr := a.closeLog(); err == nil {
		err = cerr
	}
	return err
}

// StartProgramme loads the configuration and runs the tracker until it is
// interrupted or quit from the tray.
func StartProgramme(opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return xerrors.Errorf("load config: %w", err)
	}

	app, err := NewApp(cfg, window.NewSystem())
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.Once:
		app.loop.RunOnce(ctx)
		return nil
	case opts.Headless:
		return app.Run(ctx)
	default:
		return runTray(ctx, app)
	}
}
