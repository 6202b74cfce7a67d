package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/payrecon/internal/interfaces/cli/migrate"
	"github.com/orris-inc/payrecon/internal/interfaces/cli/server"
	"github.com/orris-inc/payrecon/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "payrecon",
		Short:        "Payment lifecycle and reconciliation engine",
		Long:         `payrecon runs the payment API, the webhook and retry worker, the reconciliation scheduler and database migrations.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		worker.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
