package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"acspop/internal/platform/config"
	"acspop/internal/platform/httpserver"
	httpmetrics "acspop/internal/platform/metrics"
	"acspop/internal/population/handler"
	"acspop/pkg/platform/httputil"
)

func newServeCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var ingestOnStart bool
	ccmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve published relations over HTTP.",
		Long: `Serve published relations over HTTP.

Routes:
  GET  /relations          list published relations
  GET  /relations/{name}   read one relation, optionally ?state_fips=
  POST /runs/{level}       build and publish one level
  GET  /healthz            dependency health
  GET  /metrics            Prometheus metrics
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, ingestOnStart)
		},
	}
	flags := ccmd.Flags()
	flags.String("addr", "", "Address to listen on, e.g. :8080.")
	flags.BoolVar(&ingestOnStart, "ingest-on-start", false, "Run every configured level once the server is listening.")
	return ccmd
}

func runServe(ctx context.Context, cfg config.Config, ingestOnStart bool) error {
	log := newLogger(cfg)
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ing, err := a.ingester()
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	handler.New(a.store, log,
		handler.WithRunner(ing),
		handler.WithMetrics(httpmetrics.NewWithRegistry(a.registry)),
	).Register(r)

	srv := httpserver.New(cfg.Server.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting acspop", "addr", cfg.Server.Addr, "sink", cfg.Sink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if ingestOnStart {
		levels, err := a.levels()
		if err != nil {
			return err
		}
		go func() {
			if _, err := ing.RunAll(ctx, levels); err != nil {
				log.Error("startup ingest failed", "error", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if a.redis != nil {
		status["redis"] = "ok"
		if err := a.redis.Health(ctx); err != nil {
			status["redis"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if a.db != nil {
		status["postgres"] = "ok"
		if err := a.db.PingContext(ctx); err != nil {
			status["postgres"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	httputil.WriteJSON(w, code, status)
}
