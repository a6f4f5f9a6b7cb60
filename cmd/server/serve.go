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

	"estekhdam/internal/app"
	"estekhdam/internal/platform/httpserver"
	"estekhdam/internal/platform/postgres"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Without a database URL every store is kept in
memory; without a Redis URL sessions are kept in memory.`,
		RunE: c.runServe,
	}
	cmd.Flags().String("addr", "", "Address to listen on")
	cmd.Flags().Bool("migrate", false, "Apply the schema before serving")
	if err := c.v.BindPFlag("addr", cmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	return cmd
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := c.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	migrate, err := cmd.Flags().GetBool("migrate")
	if err != nil {
		return err
	}
	if migrate && cfg.Database.URL != "" {
		if err := postgres.MigrateUp(ctx, cfg.Database.URL); err != nil {
			return err
		}
		log.Info("schema applied")
	}

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Error("release resources", "error", err)
		}
	}()
	if err := a.Bootstrap(ctx, cfg.Bootstrap); err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Addr, a.Handler)
	log.Info("starting estekhdam", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
