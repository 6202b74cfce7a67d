package main

import (
	"os"

	"github.com/orris-inc/payrecon/internal/interfaces/cli/worker"
)

// Standalone worker binary for deployments that scale consumers separately
// from the API.
func main() {
	if err := worker.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
