// Package app wires the market data service together and owns its
// lifecycle. Every long-lived object is constructed once in New and passed
// explicitly to the components that need it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/market-data/internal/api"
	"github.com/rickgao/market-data/internal/broker"
	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/config"
	"github.com/rickgao/market-data/internal/database"
	"github.com/rickgao/market-data/internal/market"
	"github.com/rickgao/market-data/internal/metrics"
	"github.com/rickgao/market-data/internal/model"
	"github.com/rickgao/market-data/internal/publisher"
	"github.com/rickgao/market-data/internal/scheduler"
	"github.com/rickgao/market-data/internal/server"
	"github.com/rickgao/market-data/internal/store"
)

// Task names as they appear in logs, metrics and GET /scheduler.
const (
	TaskPublishQuotes = "publish-quotes"
	TaskUpdateRates   = "update-exchange-rates"
)

// App is one running fetcher instance.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	metrics *metrics.Metrics
	catalog *cache.SecurityCatalog
	rates   *cache.Cache[model.ExchangeRate]
	symbols *cache.SymbolSet

	broker    broker.Broker
	pool      *pgxpool.Pool // nil when persistence is disabled
	store     *store.CatalogStore
	persister *catalogPersister // nil when persistence is disabled
	refresher publisher.Refresher
	updater   *market.RatesUpdater
	publisher *publisher.Publisher
	scheduler *scheduler.Scheduler

	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error

	// Parent of every request context; cancelled on shutdown so that
	// long-lived streams end instead of holding Shutdown open.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// Option customizes New.
type Option func(*options)

type options struct {
	broker broker.Broker
}

// WithBroker uses b instead of building one from config.
func WithBroker(b broker.Broker) Option {
	return func(o *options) {
		o.broker = b
	}
}

// New builds the service. It verifies the broker (and database, when
// configured) before returning; either being unreachable is fatal.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	hours, err := market.ParseHours(cfg.Market.Open, cfg.Market.Close)
	if err != nil {
		return nil, fmt.Errorf("market hours: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		catalog:  cache.NewSecurityCatalog(),
		rates:    cache.New[model.ExchangeRate](),
		symbols:  cache.NewSymbolSet(),
		serveErr: make(chan error, 1),
	}
	if cfg.Metrics.IsEnabled() {
		a.metrics = metrics.New()
	}

	a.broker = o.broker
	if a.broker == nil {
		if a.broker, err = newBroker(cfg.Broker, logger); err != nil {
			return nil, err
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Broker.PingTimeout)
	defer cancel()
	if err := a.broker.Ping(pingCtx); err != nil {
		a.broker.Close()
		return nil, fmt.Errorf("broker: %w", err)
	}

	if cfg.Database.Enabled() {
		if err := a.openStore(ctx); err != nil {
			a.broker.Close()
			return nil, err
		}
	}

	client := api.NewClient(
		cfg.Upstream.BaseURL,
		cfg.Upstream.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Upstream.Timeout),
		api.WithRetries(cfg.Upstream.MaxRetries, cfg.Upstream.RetryBackoff),
	)

	catalogRefresher := market.NewCatalogRefresher(client, a.catalog, cfg.Market.Exchanges, a.metrics, logger)
	a.refresher = catalogRefresher
	if a.store != nil {
		a.persister = newCatalogPersister(a.catalog, a.store, cfg.Schedule.TaskTimeout, logger)
		a.refresher = &persistingRefresher{
			inner:     catalogRefresher,
			persister: a.persister,
		}
	}
	a.updater = market.NewRatesUpdater(client, a.rates, a.metrics, logger)

	a.publisher = publisher.New(publisher.Config{Channel: cfg.Broker.Channel},
		a.symbols, a.catalog, hours, a.refresher, a.broker, a.metrics, logger)

	a.scheduler = scheduler.New([]scheduler.Task{
		{
			Name:     TaskPublishQuotes,
			Interval: cfg.Schedule.QuoteInterval,
			Timeout:  cfg.Schedule.TaskTimeout,
			Run: func(ctx context.Context) error {
				_, err := a.publisher.PublishCycle(ctx)
				return err
			},
		},
		{
			Name:     TaskUpdateRates,
			Interval: cfg.Schedule.FXInterval,
			Timeout:  cfg.Schedule.TaskTimeout,
			Run:      a.updater.Update,
		},
	}, a.metrics, logger)

	deps := server.Deps{
		Catalog:   a.catalog,
		Rates:     a.rates,
		Quotes:    a.publisher,
		Broker:    a.broker,
		Scheduler: a.scheduler,
		Metrics:   a.metrics,
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	metricsPath := ""
	if cfg.Metrics.IsEnabled() {
		metricsPath = cfg.Metrics.Path
	}
	srv := server.New(server.Config{
		Mode:        cfg.HTTP.Mode,
		Channel:     cfg.Broker.Channel,
		MetricsPath: metricsPath,
		PingTimeout: cfg.Broker.PingTimeout,
	}, deps, logger)

	a.baseCtx, a.baseCancel = context.WithCancel(context.Background())
	a.httpServer = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return a.baseCtx
		},
	}
	a.httpServer.RegisterOnShutdown(a.baseCancel)

	return a, nil
}

func newBroker(cfg config.BrokerConfig, logger *slog.Logger) (broker.Broker, error) {
	switch cfg.Driver {
	case "memory":
		return broker.NewMemory(cfg.BufferSize), nil
	case "redis":
		b, err := broker.NewRedis(cfg.URL, cfg.BufferSize, logger)
		if err != nil {
			return nil, fmt.Errorf("broker: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}

func (a *App) openStore(ctx context.Context) error {
	db := a.cfg.Database
	a.logger.Info("connecting to database",
		"host", db.Host,
		"port", db.Port,
		"database", db.Name,
	)

	pool, err := database.Connect(ctx, db)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	st := store.NewCatalogStore(pool, 0, a.logger)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("database: %w", err)
	}

	a.pool = pool
	a.store = st
	a.logger.Info("database connected")
	return nil
}

// Start loads any persisted catalog, warms the caches, starts the scheduler
// and begins serving HTTP. Warm-up failures are logged; the service starts
// with whatever it has.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.New("app already started")
	}

	if a.store != nil {
		a.loadCatalog(ctx)
		a.persister.Start(ctx)
	}
	a.warmUp(ctx)

	if err := a.scheduler.Start(ctx); err != nil {
		a.stopPersister()
		return fmt.Errorf("start scheduler: %w", err)
	}

	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		a.stopScheduler()
		a.stopPersister()
		return fmt.Errorf("listen %s: %w", a.httpServer.Addr, err)
	}
	a.listener = ln

	go func() {
		a.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.started = true
	return nil
}

func (a *App) loadCatalog(ctx context.Context) {
	securities, err := a.store.Load(ctx)
	if err != nil {
		a.logger.Warn("failed to load persisted catalog", "err", err)
		return
	}
	a.catalog.UpsertAll(securities)
	a.logger.Info("persisted catalog loaded", "securities", len(securities))
}

// warmUp runs one catalog refresh and one FX update concurrently.
func (a *App) warmUp(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Schedule.TaskTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		if _, err := a.refresher.Refresh(ctx); err != nil {
			a.logger.Warn("initial catalog refresh failed", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.updater.Update(ctx); err != nil {
			a.logger.Warn("initial exchange rate update failed", "err", err)
		}
		return nil
	})
	_ = g.Wait()

	a.logger.Info("warm-up complete",
		"securities", a.catalog.Len(),
		"exchange_rates", a.rates.Len(),
	)
}

// Addr returns the bound HTTP address, or "" before Start.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Err reports a fatal HTTP serve error. It is closed when serving stops.
func (a *App) Err() <-chan error {
	return a.serveErr
}

// Scheduler exposes the task scheduler.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Stop shuts down in reverse start order: HTTP, scheduler, persister,
// broker, database. Open quote streams are ended as part of the HTTP
// shutdown.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	if a.started {
		a.logger.Info("stopping http server")
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		a.stopScheduler()
		a.stopPersister()
		a.started = false
	}
	a.baseCancel()

	if err := a.broker.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close broker: %w", err))
	}
	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}

func (a *App) stopScheduler() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Warn("scheduler stop", "err", err)
	}
}

func (a *App) stopPersister() {
	if a.persister != nil {
		a.persister.Stop()
	}
}

// Run starts the app, blocks until ctx is done or serving fails, then stops.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-a.Err():
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Stop(shutdownCtx))
}
