package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	httpAdapter "github.com/aretw0/canopy/pkg/adapters/http"
	"github.com/aretw0/canopy/pkg/adapters/redis"
	"github.com/aretw0/canopy/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP inspector",
		Long: `Assembles the tree files and exposes the machine over HTTP: queries,
transitions, a Mermaid graph, a Server-Sent Events stream and Prometheus metrics on /metrics.

With --redis-addr every transition is also published to a Redis channel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("redis-addr") {
				cfg.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
			}
			logger := cli.CreateLogger(opts)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}

			extra := []cli.MachineOption{cli.WithMetrics(metrics)}
			if cfg.RedisAddr != "" {
				client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr})
				defer client.Close()
				pub := redis.NewPublisher(client,
					redis.WithChannel(cfg.RedisChannel),
					redis.WithMachineName(opts.Name),
					redis.WithLogger(logger),
				)
				extra = append(extra, cli.WithListener(pub.Listener()))
				logger.Info("Publishing transitions", "redis", cfg.RedisAddr, "channel", pub.Channel())
			}

			build, err := cli.CreateMachine(opts, logger, extra...)
			if err != nil {
				return err
			}

			api := httpAdapter.NewServer(build.Machine, httpAdapter.WithLogger(logger))
			defer api.Close()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			mux.Handle("/", api.Handler())

			// Cancelled before Shutdown so open event streams return.
			baseCtx, cancelRequests := context.WithCancel(context.Background())
			defer cancelRequests()

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return baseCtx },
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("Starting Canopy Server", "addr", srv.Addr, "states", len(build.Machine.AllStates()))
				serverErrors <- srv.ListenAndServe()
			}()

			sigCtx := cli.NewSignalContext(context.Background())
			defer sigCtx.Cancel()

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
			case <-sigCtx.Done():
				logger.Info("Start shutdown", "signal", sigCtx.Signal())

				// Give outstanding requests a deadline for completion.
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				cancelRequests()
				if err := srv.Shutdown(ctx); err != nil {
					logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					_ = srv.Close()
				}
			}

			_ = build.Machine.Shutdown()
			logger.Info("Canopy Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "Address to listen on (default: CANOPY_HTTP_ADDR or :8080)")
	cmd.Flags().String("redis-addr", "", "Redis address used to publish transitions (default: CANOPY_REDIS_ADDR)")
	return cmd
}
