package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mcpdiag/internal/config"
	"mcpdiag/internal/mockserver"
	"mcpdiag/pkg/logging"
)

var (
	mockSocket    string
	mockStdio     bool
	mockName      string
	mockMisbehave []string
	mockDebug     bool
)

// mockServerCmd represents the mock-server command
var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run a mock MCP server for exercising the harness",
	Long: `The mock-server command runs a small MCP endpoint that answers the
initialize, tools/list and tools/call methods, either on a unix socket
or over stdio. It can be told to misbehave per method, which makes it
a convenient counterpart for demonstrating each failure class the
check command can report:

  mcpdiag mock-server --socket /tmp/mock.sock
  mcpdiag mock-server --stdio
  mcpdiag mock-server --socket /tmp/mock.sock --misbehave tools/list=silent

Supported behaviors: normal, wrong-id, silent, garbage, ambiguous,
no-result.`,
	RunE: runMockServer,
}

func init() {
	rootCmd.AddCommand(mockServerCmd)

	mockServerCmd.Flags().StringVar(&mockSocket, "socket", "", "Unix socket path to listen on (default: configured path)")
	mockServerCmd.Flags().BoolVar(&mockStdio, "stdio", false, "Serve on stdin/stdout instead of a socket")
	mockServerCmd.Flags().StringVar(&mockName, "name", "nixai", "Server name advertised during the handshake")
	mockServerCmd.Flags().StringArrayVar(&mockMisbehave, "misbehave", nil, "Per-method misbehavior as method=behavior, repeatable")
	mockServerCmd.Flags().BoolVar(&mockDebug, "debug", false, "Enable debug logging")

	mockServerCmd.MarkFlagsMutuallyExclusive("socket", "stdio")
}

func runMockServer(cmd *cobra.Command, args []string) error {
	level := logging.LevelWarn
	if mockDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	opts, err := misbehaveOptions(mockMisbehave)
	if err != nil {
		return err
	}
	srv := mockserver.New(mockName, opts...)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	if mockStdio {
		return srv.ServeStdio(ctx)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	socketPath := mockSocket
	if socketPath == "" {
		socketPath = cfg.Server.SocketPath
	}
	socketPath = config.ExpandPath(socketPath)

	ln, err := srv.ListenUnix(socketPath)
	if err != nil {
		return err
	}
	defer os.Remove(socketPath)

	fmt.Printf("🚀 Mock MCP server %q listening on %s\n", mockName, socketPath)
	return srv.Serve(ctx, ln)
}

func misbehaveOptions(specs []string) ([]mockserver.Option, error) {
	known := map[mockserver.Behavior]bool{
		mockserver.BehaviorNormal:    true,
		mockserver.BehaviorWrongID:   true,
		mockserver.BehaviorSilent:    true,
		mockserver.BehaviorGarbage:   true,
		mockserver.BehaviorAmbiguous: true,
		mockserver.BehaviorNoResult:  true,
	}

	var opts []mockserver.Option
	for _, spec := range specs {
		method, behavior, found := strings.Cut(spec, "=")
		if !found || method == "" {
			return nil, fmt.Errorf("invalid --misbehave %q, want method=behavior", spec)
		}
		b := mockserver.Behavior(behavior)
		if !known[b] {
			return nil, fmt.Errorf("unknown behavior %q in --misbehave %q", behavior, spec)
		}
		opts = append(opts, mockserver.WithBehavior(method, b))
	}
	return opts, nil
}
