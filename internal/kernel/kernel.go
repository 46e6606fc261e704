// Package kernel implements the Service Kernel: the lifecycle every one
// of the five services shares — structured logging with correlation-ID
// injection, a metrics collector, an HTTP surface exposing
// /health /ready /status /metrics, registration in the service registry
// with a heartbeat ticker, and graceful shutdown on SIGINT/SIGTERM. Built
// around a signal-channel-plus-errgroup-serve pattern, with a pure gin
// HTTP surface instead of an RPC transport (see DESIGN.md).
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/libs/registry"
	"github.com/cryptopulse/signalpipe/internal/models"
)

// Kernel is constructed once per process and wraps the service's own
// producer/consumer loop with the shared lifecycle.
type Kernel struct {
	cfg Config

	log      *logger.Logger
	metrics  *Metrics
	registry *registry.Registry
	health   *healthState
	deps     []DependencyCheck

	apiKeyCfg    config.APIKeyConfig
	rateLimitCfg config.RateLimitConfig

	httpServer *http.Server
	startedAt  time.Time
}

// Config carries the per-service identity and the kernel-wide tunables
// from config.KernelConfig.
type Config struct {
	ServiceName     string
	Host            string
	Port            int
	HeartbeatPeriod time.Duration
	RegistryTTL     time.Duration
	ShutdownGrace   time.Duration
	DefaultTimeout  time.Duration
}

// New constructs a Kernel. reg may be nil in tests that don't need
// registration (e.g. a unit test of one service's pure logic).
func New(cfg Config, log *logger.Logger, reg *registry.Registry, apiKeyCfg config.APIKeyConfig, rateLimitCfg config.RateLimitConfig, deps ...DependencyCheck) *Kernel {
	return &Kernel{
		cfg:          cfg,
		log:          log,
		metrics:      NewMetrics(cfg.ServiceName),
		registry:     reg,
		health:       newHealthState(),
		deps:         deps,
		apiKeyCfg:    apiKeyCfg,
		rateLimitCfg: rateLimitCfg,
		startedAt:    time.Now(),
	}
}

func (k *Kernel) Metrics() *Metrics { return k.metrics }

// Loop is the service's own periodic-producer or subscribe-consumer body.
// It must return promptly once ctx is cancelled, within roughly a second,
// via chunked sleeps or blocked reads that poll ctx.Done().
type Loop func(ctx context.Context) error

// Run drives the full lifecycle: register, start the HTTP surface and
// heartbeat ticker, run loop, and block until SIGINT/SIGTERM, at which
// point it cancels ctx, closes the HTTP server within ShutdownGrace,
// unregisters, and waits for the background workers to return. That final
// wait has no deadline of its own; it relies on each worker observing the
// cancelled ctx.
func (k *Kernel) Run(parent context.Context, loop Loop) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	healthURL := fmt.Sprintf("http://%s:%d/health", k.cfg.Host, k.cfg.Port)
	if k.registry != nil {
		if err := k.registry.Register(ctx, models.ServiceRegistration{
			Name:      k.cfg.ServiceName,
			Host:      k.cfg.Host,
			Port:      k.cfg.Port,
			HealthURL: healthURL,
		}); err != nil {
			k.log.Warn("registry registration failed", zap.Error(err))
		}
	}

	k.probe(ctx)

	k.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", k.cfg.Port),
		Handler: k.router(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		k.log.Info("http surface listening", zap.Int("port", k.cfg.Port))
		if err := k.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return k.heartbeatLoop(gctx)
	})

	g.Go(func() error {
		return loop(gctx)
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			k.log.Info("termination signal received", zap.String("signal", sig.String()))
		case <-gctx.Done():
		}

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), k.cfg.ShutdownGrace)
		defer shutdownCancel()
		if err := k.httpServer.Shutdown(shutdownCtx); err != nil {
			k.log.Warn("http surface shutdown error", zap.Error(err))
		}

		if k.registry != nil {
			unregCtx, unregCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer unregCancel()
			if err := k.registry.Unregister(unregCtx, k.cfg.ServiceName); err != nil {
				k.log.Warn("registry unregister failed", zap.Error(err))
			}
		}

		return nil
	})

	err := g.Wait()
	k.log.Info("service stopped", zap.String("service", k.cfg.ServiceName))
	return err
}

// heartbeatLoop refreshes the registry TTL every HeartbeatPeriod, ticking
// in 1s quanta so cancellation is observed within about a second and Run's
// shutdown path is not held up.
func (k *Kernel) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	elapsed := time.Duration(0)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			elapsed += time.Second
			if elapsed < k.cfg.HeartbeatPeriod {
				continue
			}
			elapsed = 0

			k.probe(ctx)

			if k.registry == nil {
				continue
			}
			if err := k.registry.Heartbeat(ctx, k.cfg.ServiceName); err != nil {
				k.log.Warn("heartbeat failed", zap.Error(err))
				k.metrics.Error("registry_heartbeat")
			}
		}
	}
}

// Sleep blocks for d in 1-second quanta so callers' main loops observe
// ctx cancellation promptly instead of sleeping through it. Returns early
// (true) if ctx was cancelled mid-sleep.
func Sleep(ctx context.Context, d time.Duration) (cancelled bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	quantum := time.Second
	remaining := d

	for remaining > 0 {
		step := quantum
		if remaining < step {
			step = remaining
		}

		select {
		case <-ctx.Done():
			return true
		case <-time.After(step):
			remaining -= step
		}
	}
	return false
}
