package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linkmgr/internal/metrics"
)

func listenCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Connect to the relay and print authenticated requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := wire.Config.MetricsAddr
			if cmd.Flags().Changed("metrics-addr") {
				addr = metricsAddr
			}
			if addr != "" {
				srv := serveMetrics(addr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			wire.Host.OnRequest = func(payload string) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintln(out, payload)
			}

			m := wire.Manager
			fmt.Fprintf(out, "Connecting to %s\n", m.ChannelURL())
			if err := m.Connect(ctx); err != nil {
				_ = m.Disconnect()
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			wire.Logger.Info().Str("url", m.ChannelURL()).Msg("listening")

			<-ctx.Done()
			return m.Disconnect()
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	return cmd
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wire.Logger.Error().Err(err).Str("addr", addr).Msg("metrics server")
		}
	}()
	return srv
}
