package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcpdiag",
	Short: "Diagnose a local MCP server from the outside",
	Long: `mcpdiag treats a running MCP server as a black box and checks it
over its real transport: it speaks JSON-RPC 2.0 over the server's unix
socket (or a spawned stdio bridge), validates every response envelope,
and probes the host environment for the usual integration mistakes
(missing socket, dead process, unregistered editor config).`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed connections)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpdiag version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}
