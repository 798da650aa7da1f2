// Command flowrpc provides a CLI for running and exercising the runtime,
// grounded on the teacher's cmd/hyperway CLI shape (a cobra root command
// wrapping serve/call subcommands, with --version on the root).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowrpc/flowrpc/cmd/flowrpc/commands"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "flowrpc",
		Short:   "gRPC-over-HTTP/2 runtime CLI",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	rootCmd.AddCommand(
		commands.NewServeCommand(),
		commands.NewCallCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
