package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/olgkv/linkchecker/internal/app"
)

const shutdownTimeout = 5 * time.Second

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type waiter interface {
	Wait()
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the link checking HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			srv, svc, stats, err := app.NewServer(cfg, reg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = runHTTPServer(ctx, srv, svc)

			total, completed := stats()
			log.Info().Int("total_tasks", total).Int("completed_tasks", completed).Msg("shutdown summary")
			return err
		},
	}
	cmd.Flags().String("port", "8080", "listen port")
	mustBind("port", cmd.Flags().Lookup("port"))
	return cmd
}

// runHTTPServer serves until ctx is done, then shuts the server down and waits
// for in-flight checks to finish.
func runHTTPServer(ctx context.Context, srv httpServer, svc waiter) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server failed")
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	svc.Wait()
	return serveErr
}
