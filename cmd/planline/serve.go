package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fentz26/planline/internal/project"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only HTTP API for a project",
	Long:  `Starts an HTTP server exposing the tasks, critical path and journal of a project.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var listenAddr string

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}

	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		server := project.NewServer(svc, cfg.Server.Addr, cfg.Server.RateLimitPerMin, log)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		serverErr := make(chan error, 1)
		go func() {
			err := server.Start()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		log.Info("serving project",
			zap.String("project", svc.Project().Name),
			zap.String("addr", cfg.Server.Addr))

		select {
		case sig := <-sigCh:
			log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		case err := <-serverErr:
			if err != nil {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("http server shutdown", zap.Error(err))
		}
		log.Info("server stopped")
		return nil
	})
}
