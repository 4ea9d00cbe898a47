// Package app wires all lingograde subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context ends, and Shutdown tears
// everything down in reverse order.
//
// For testing, inject doubles via functional options (WithCache, etc.). When
// an option is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/MrWong99/lingograde/internal/api"
	"github.com/MrWong99/lingograde/internal/cache"
	"github.com/MrWong99/lingograde/internal/config"
	"github.com/MrWong99/lingograde/internal/grading"
	"github.com/MrWong99/lingograde/internal/health"
	"github.com/MrWong99/lingograde/internal/mcp/tools/gradingtool"
	"github.com/MrWong99/lingograde/internal/observe"
	"github.com/MrWong99/lingograde/internal/resilience"
)

// App owns all subsystem lifetimes of the grading server.
type App struct {
	cfg        *config.Config
	version    string
	configPath string

	level         *slog.LevelVar
	registry      *prometheus.Registry
	traceExporter sdktrace.SpanExporter

	// Subsystems, initialised in New and torn down in Shutdown.
	cache    cache.Cache
	checkers []health.Checker
	metrics  *observe.Metrics
	service  *grading.Service
	handler  http.Handler
	server   *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCache injects a result cache instead of creating one from config.
func WithCache(c cache.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithLevel connects the server's log level to lv, so that hot reloads of
// server.log_level take effect.
func WithLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithVersion sets the version reported to MCP clients and as
// service.version.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithConfigWatch polls the config file at path and applies changes to the
// running server.
func WithConfigWatch(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithTraceExporter exports spans to exp.
func WithTraceExporter(exp sdktrace.SpanExporter) Option {
	return func(a *App) { a.traceExporter = exp }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. It connects to the
// cache backend and applies its schema synchronously.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		version:  "dev",
		registry: prometheus.NewRegistry(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
	}
	a.level.Set(cfg.Server.LogLevel.Slog())

	// ── 1. Telemetry ─────────────────────────────────────────────────────
	if err := a.initTelemetry(ctx); err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}

	// ── 2. Result cache ──────────────────────────────────────────────────
	if err := a.initCache(ctx); err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("app: init cache: %w", err)
	}

	// ── 3. Grading service ───────────────────────────────────────────────
	svcOpts := []grading.Option{grading.WithMetrics(a.metrics)}
	if a.cache != nil {
		svcOpts = append(svcOpts, grading.WithCache(a.cache))
	}
	a.service = grading.New(cfg.Grading, svcOpts...)

	// ── 4. HTTP surface ──────────────────────────────────────────────────
	a.handler = a.buildHandler()
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.closers = append(a.closers, a.server.Shutdown)

	// ── 5. Config watcher ────────────────────────────────────────────────
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.ApplyConfig)
		if err != nil {
			a.closeAll(context.Background())
			return nil, fmt.Errorf("app: init watcher: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			w.Stop()
			return nil
		})
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initTelemetry installs the OTel providers and creates the metric
// instruments from them.
func (a *App) initTelemetry(ctx context.Context) error {
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    a.cfg.Telemetry.ServiceName,
		ServiceVersion: a.version,
		Registry:       a.registry,
		TraceExporter:  a.traceExporter,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdown)

	a.metrics, err = observe.NewMetrics(otel.GetMeterProvider())
	return err
}

// initCache sets up the configured result cache or uses the injected one.
func (a *App) initCache(ctx context.Context) error {
	if a.cache != nil {
		if p, ok := a.cache.(health.Pinger); ok {
			a.checkers = append(a.checkers, health.PingChecker("cache", p))
		}
		return nil
	}

	switch a.cfg.Cache.Backend {
	case config.CacheNone:
		return nil
	case config.CachePostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Cache.PostgresDSN)
		if err != nil {
			return fmt.Errorf("create pool: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		pc := cache.NewPostgresCache(pool)
		if err := pc.Migrate(ctx); err != nil {
			return err
		}
		guarded := resilience.GuardCache(pc, resilience.Config{Name: "postgres-cache"})
		a.cache = guarded
		a.checkers = append(a.checkers, health.PingChecker("postgres", guarded))
		slog.Info("grading cache ready", "backend", a.cfg.Cache.Backend)
	default:
		a.cache = cache.NewMemCache(a.cfg.Cache.MaxEntries)
	}
	return nil
}

// buildHandler assembles the routes: health probes, the grading API, the
// metrics exposition and the optional MCP endpoint.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()
	health.New(a.checkers...).Register(mux)
	api.New(a.service).Register(mux)
	if path := a.cfg.Telemetry.MetricsPath; path != "" {
		mux.Handle("GET "+path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}

	if a.cfg.MCP.Enabled {
		server := gradingtool.NewServer(a.service, a.version)
		mux.Handle(a.cfg.MCP.Path, mcp.NewStreamableHTTPHandler(
			func(*http.Request) *mcp.Server { return server },
			&mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true},
		))
	}
	return observe.Middleware(a.metrics)(mux)
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Service returns the grading service.
func (a *App) Service() *grading.Service { return a.service }

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig applies the hot-reloadable differences between old and new to
// the running server. Changes to sections only read at startup are logged.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		a.level.Set(d.NewLogLevel.Slog())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.GradingChanged {
		a.service.UpdateSettings(d.NewGrading)
		slog.Info("grading settings reloaded")
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config change requires a restart", "sections", d.RestartRequired)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run listens on server.listen_addr and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails. It returns
// ctx.Err() on cancellation; call Shutdown afterwards to drain connections.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil, "mcp", a.cfg.MCP.Enabled)

	errCh := make(chan error, 1)
	go func() {
		if tls := a.cfg.Server.TLS; tls != nil {
			errCh <- a.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
			return
		}
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		shutdownErr = a.closeAll(ctx)
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

func (a *App) closeAll(ctx context.Context) error {
	closers := slices.Clone(a.closers)
	slices.Reverse(closers)
	a.closers = nil

	var errs []error
	for i, closer := range closers {
		if err := ctx.Err(); err != nil {
			slog.Warn("shutdown deadline exceeded", "remaining", len(closers)-i)
			return err
		}
		if err := closer(ctx); err != nil {
			slog.Warn("closer error", "index", i, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
