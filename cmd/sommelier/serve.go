package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/internal/handlers"
	"github.com/PavoWillow/wine-data-toolkit/internal/httpserver"
	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics.Register()

			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			defer a.close()

			queryHandler := handlers.NewQueryHandler(a.orchestrator, a.history)

			r := chi.NewRouter()
			httpserver.SetupRouter(r, a.logger, queryHandler)

			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           r,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      90 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			a.logger.Info("starting server",
				zap.String("addr", srv.Addr),
				zap.String("cache_backend", a.cfg.Cache.Backend),
			)

			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					a.logger.Error("server error", zap.Error(err))
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			<-stop
			a.logger.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server shutdown error", zap.Error(err))
				return err
			}

			a.logger.Info("server shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sommelier.yaml", "path to config file")
	return cmd
}
