package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "Prism/internal/domain/repository"
	icache "Prism/internal/service/cache"
	"Prism/internal/service/ratelimit"
	"Prism/internal/usecase"
	pkgch "Prism/pkg/clickhouse"
	"Prism/pkg/config"
	xhttp "Prism/pkg/http"
	pkgkafka "Prism/pkg/kafka"
	applogger "Prism/pkg/logger"
)

const sweepInterval = time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	collector *usecase.ConeCollector
	processor *usecase.ConeProcessor
	consumer  *pkgkafka.Consumer
	kh        pkgkafka.MessageHandler
	store     domrepo.ConeStore
	chClient  *pkgch.Client
	cache     icache.BytesCache
	hub       *usecase.SceneHub
	limiter   *ratelimit.Limiter

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App. consumer, kh, store and chClient are nil when the
// corresponding backend is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.ConeCollector,
	processor *usecase.ConeProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	store domrepo.ConeStore,
	chClient *pkgch.Client,
	cache icache.BytesCache,
	hub *usecase.SceneHub,
	limiter *ratelimit.Limiter,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		collector:   collector,
		processor:   processor,
		consumer:    consumer,
		kh:          kh,
		store:       store,
		chClient:    chClient,
		cache:       cache,
		hub:         hub,
		limiter:     limiter,
		httpHandler: handler,
	}
}

// Start brings up the consumer, the collector and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.collector.Start(ctx); err != nil {
		return err
	}
	a.l.Info("collector started",
		applogger.Strings("assets", a.cfg.Synth.Assets),
		applogger.String("backend", a.cfg.Backend.Type),
	)

	if a.limiter != nil {
		go a.sweep(ctx)
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if !a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(""))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	}
	a.httpServer = xhttp.NewServer(a.l, a.httpHandler, opts...)
	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		a.l.Error("app start error", applogger.Error(err))
		_ = a.Shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.Shutdown(context.Background())
}

func (a *App) sweep(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := a.limiter.Sweep(now); n > 0 {
				a.l.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// Shutdown stops polling and consuming before it closes streams and clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if err := a.collector.Shutdown(ctx); err != nil {
		a.l.Warn("collector stop error", applogger.Error(err))
	}

	if a.consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancel()
	}

	// Closing the hub ends every frame session so hijacked websocket
	// connections do not hold the HTTP shutdown.
	a.hub.Close()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	a.processor.Close()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.l.Warn("cone store close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if c, ok := a.cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
