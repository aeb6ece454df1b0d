package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cadencelab/tempolink/internal/adapters/renderer"
	"github.com/cadencelab/tempolink/internal/adapters/transport"
	app "github.com/cadencelab/tempolink/internal/app"
	"github.com/cadencelab/tempolink/internal/config"
	"github.com/cadencelab/tempolink/pkg/logger"
	"github.com/cadencelab/tempolink/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection; the custom registry
	// carries only tempolink series.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	setter, err := buildSetter(cfg)
	if err != nil {
		log.Error(ctx, "failed to reach renderer", logger.String("addr", cfg.RendererAddr), logger.Error(err))
		return
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithTransport(transport.New(
			transport.WithHost(cfg.ListenHost),
			transport.WithPort(cfg.ListenPort),
			transport.WithDebug(cfg.Debug),
			transport.WithLogger(log.Named("transport")),
		)),
		app.WithSetter(setter),
		app.WithSettings(cfg.Settings()),
		app.WithDebug(cfg.Debug),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start tempo sync", logger.Error(err))
		return
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "serving metrics", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error(ctx, "shutdown with error", logger.Error(err))
		return
	}
	log.Info(ctx, "stopped")
}

// buildSetter picks the rendering engine boundary: a UDP forwarder when
// one is configured, otherwise the accept-all setter.
func buildSetter(cfg *config.Config) (renderer.TempoSetter, error) {
	if cfg.RendererAddr == "" {
		return renderer.NopSetter{}, nil
	}
	return renderer.NewOSCSetter(cfg.RendererAddr)
}
