package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/manthysbr/aiexpert/internal/core/services"
	"github.com/manthysbr/aiexpert/pkg/kernel"
	"github.com/manthysbr/aiexpert/pkg/relay"
)

const shutdownTimeout = 5 * time.Second

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRelayCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the relay that forwards browser requests to a private model server",
		Long: `Run the relay. It accepts POST /bridge/{chat,generate,check} with a
{"targetBaseUrl": ..., "model": ..., ...} envelope and forwards it to the model
server's /api/{action}, streaming the answer back.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := relay.Config{
				Addr:           g.env.Relay.Addr,
				AllowedOrigins: g.env.Relay.AllowedOrigins,
				ConnectTimeout: g.env.Relay.ConnectTimeout,
				HeaderTimeout:  g.env.Relay.HeaderTimeout,
				IdleTimeout:    g.env.Relay.IdleTimeout,
				RateLimit:      g.env.Relay.RateLimit,
				RateBurst:      g.env.Relay.RateBurst,
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			srv, err := relay.NewServer(g.logger, cfg, reg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			group, gCtx := errgroup.WithContext(ctx)
			group.Go(srv.Start)
			group.Go(func() error {
				<-gCtx.Done()
				g.logger.Info("shutting down relay")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return group.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3001", "Listen address")
	return cmd
}

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser-facing API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("addr") {
				g.env.Kernel.Addr = addr
			}

			sessions := services.NewConversationStore(g.logger, a.facade, a.eventBus, 256)
			apiServer := kernel.NewServer(g.logger, a.facade, a.settings, a.providers.Local, a.eventBus, sessions)

			c := cors.New(cors.Options{
				AllowedOrigins:   g.env.Kernel.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: true,
			})

			httpServer := &http.Server{
				Addr:              g.env.Kernel.Addr,
				Handler:           c.Handler(apiServer.Handler()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			group, gCtx := errgroup.WithContext(ctx)

			// Debug trace of every bus event
			group.Go(func() error {
				events, unsub := a.eventBus.SubscribeGlobal()
				defer unsub()
				for {
					select {
					case <-gCtx.Done():
						return nil
					case evt, ok := <-events:
						if !ok {
							return nil
						}
						g.logger.Debug("event", "topic", evt.Topic, "type", evt.Type)
					}
				}
			})

			group.Go(func() error {
				g.logger.Info("starting user api server",
					"addr", httpServer.Addr,
					"provider", a.settings.Provider(),
					"cloud_configured", a.providers.Cloud.IsConfigured(),
				)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("api server failed: %w", err)
				}
				return nil
			})

			group.Go(func() error {
				<-gCtx.Done()
				g.logger.Info("shutting down api server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})

			return group.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
