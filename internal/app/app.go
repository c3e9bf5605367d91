// Package app wires all intentd subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject a sample store via WithStore. When the option is not
// provided, New creates the real backend from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verbao/intentd/internal/config"
	"github.com/verbao/intentd/internal/health"
	"github.com/verbao/intentd/internal/httpapi"
	"github.com/verbao/intentd/internal/observe"
	"github.com/verbao/intentd/internal/service"
	"github.com/verbao/intentd/pkg/samples"
	"github.com/verbao/intentd/pkg/samples/memstore"
	"github.com/verbao/intentd/pkg/samples/postgres"
)

// shutdownGrace is the maximum time the HTTP server gets to drain in-flight
// requests during Shutdown.
const shutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes for the intentd server.
type App struct {
	cfg *config.Config

	store   samples.Store
	svc     *service.Service
	server  *http.Server
	metrics *observe.Metrics

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a sample store instead of creating one from config.
func WithStore(s samples.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics instance instead of using the global one.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together: the sample store
// backend, the classification service, and the HTTP server with its routes.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	a.svc = service.New(a.store, cfg.Store.EmbeddingDimensions, string(cfg.Store.Backend),
		service.WithMetrics(a.metrics),
		service.WithPendingCapacity(cfg.Pending.Capacity),
		service.WithKNeighbors(cfg.Classifier.KNeighbors),
	)

	a.initServer()
	return a, nil
}

// initStore creates the configured sample store backend unless one was
// injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dims := a.cfg.Store.EmbeddingDimensions

	switch a.cfg.Store.Backend {
	case config.BackendPostgres:
		store, err := postgres.NewStore(ctx, a.cfg.Store.PostgresDSN, dims)
		if err != nil {
			return err
		}
		a.store = store

	default:
		var mopts []memstore.Option
		if a.cfg.Store.SnapshotPath != "" {
			mopts = append(mopts, memstore.WithSnapshotPath(a.cfg.Store.SnapshotPath))
		}
		store, err := memstore.New(dims, mopts...)
		if err != nil {
			return err
		}
		a.store = store
	}

	a.closers = append(a.closers, a.store.Close)
	slog.Info("sample store ready", "backend", a.cfg.Store.Backend, "dimensions", dims)
	return nil
}

// initServer builds the HTTP mux and server.
func (a *App) initServer() {
	mux := http.NewServeMux()

	api := httpapi.New(a.svc)
	api.Register(mux)

	h := health.New(health.Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := a.store.Stats(ctx)
			return err
		},
	})
	h.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP until ctx is cancelled. It returns the server error on
// failure to listen, or nil after a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("intentd listening", "addr", a.cfg.Server.ListenAddr, "tls", a.cfg.Server.TLS != nil)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown drains the HTTP server and tears down all subsystems in
// reverse-init order. It respects the context deadline: if ctx expires
// before all closers finish, remaining closers are skipped and the context
// error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		drainCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
		if err := a.server.Shutdown(drainCtx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// Service exposes the classification facade, mainly for tests.
func (a *App) Service() *service.Service {
	return a.svc
}

// Handler exposes the root HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}
