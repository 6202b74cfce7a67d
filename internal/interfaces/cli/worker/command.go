package worker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/payrecon/internal/interfaces/cli/runtime"
	httpContainer "github.com/orris-inc/payrecon/internal/interfaces/http"
)

var (
	env         string
	noScheduler bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background worker",
		Long:  `Consume the webhook and retry queues and run the scheduled reconciliation sweeps.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Only consume queues, leave sweeps to another process")

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

	rt.Log.Infow("starting worker", "environment", rt.Env, "scheduler", !noScheduler)

	container, err := httpContainer.NewContainer(rt.DB, rt.Redis, rt.Config, rt.Log)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}

	if !noScheduler {
		if err := container.StartScheduler(); err != nil {
			return err
		}
	}

	// Blocks until a signal cancels ctx and in-flight jobs finish.
	container.RunWorker(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		rt.Log.Warnw("container shutdown incomplete", "error", err)
	}
	return nil
}
