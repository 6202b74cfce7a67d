package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/payrecon/internal/interfaces/cli/runtime"
	httpContainer "github.com/orris-inc/payrecon/internal/interfaces/http"
)

const shutdownTimeout = 30 * time.Second

var (
	env                string
	autoMigrate        bool
	skipMigrationCheck bool
	embeddedWorker     bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API server",
		Long:  `Start the payment API and gateway webhook endpoints.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")
	cmd.Flags().BoolVar(&embeddedWorker, "with-worker", false, "Also run the queue worker and reconciliation scheduler in this process")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.Open(ctx, runtime.ResolveEnv(env))
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.Log

	log.Infow("starting server", "environment", rt.Env, "auto_migrate", autoMigrate, "with_worker", embeddedWorker)

	switch {
	case autoMigrate:
		if err := rt.Migrate(ctx); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	case !skipMigrationCheck:
		rt.LogSchemaVersion(ctx)
	}

	container, err := httpContainer.NewContainer(rt.DB, rt.Redis, rt.Config, log)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	container.SetupRoutes()

	workerDone := make(chan struct{})
	if embeddedWorker {
		if err := container.StartScheduler(); err != nil {
			return err
		}
		go func() {
			defer close(workerDone)
			container.RunWorker(ctx)
		}()
	} else {
		close(workerDone)
	}

	srv := &http.Server{
		Addr:         rt.Config.Server.GetAddr(),
		Handler:      container.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "address", srv.Addr, "mode", rt.Config.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	<-workerDone
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Warnw("container shutdown incomplete", "error", err)
	}

	log.Infow("server exited gracefully")
	return nil
}
