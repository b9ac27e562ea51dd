package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcpdiag/internal/config"
	"mcpdiag/internal/probe"
	"mcpdiag/internal/report"
	"mcpdiag/internal/scenario"
	"mcpdiag/internal/transport"
	"mcpdiag/pkg/logging"
)

var (
	checkSocket        string
	checkCommand       string
	checkScenarios     []string
	checkScenarioFile  string
	checkProbesOnly    bool
	checkScenariosOnly bool
	checkTimeout       time.Duration
	checkVerbose       bool
	checkDebug         bool
	checkReportPath    string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run environment probes and protocol scenarios against an MCP server",
	Long: `The check command runs two kinds of diagnostics and combines them
into one verdict:

Environment probes inspect the host from the outside: is the server
process running, does the socket file exist and accept connections, is
the server registered in the editor's MCP settings, are the companion
extensions installed. Probes never talk JSON-RPC.

Protocol scenarios open a real connection and drive fixed request
sequences (handshake, tool listing, tool invocation), validating every
JSON-RPC 2.0 envelope along the way. A failing step never stops the
scenario; the remaining steps still run so one broken method does not
hide the state of the others.

Example usage:
  mcpdiag check                                 # everything, default socket
  mcpdiag check --socket /tmp/nixai-mcp.sock    # explicit socket
  mcpdiag check --command "socat - UNIX-CONNECT:/tmp/nixai-mcp.sock"
  mcpdiag check --scenario initialize --scenario tools-list
  mcpdiag check --probes-only                   # no protocol traffic
  mcpdiag check --report ./reports              # also save a JSON report

Exit codes: 0 when every check passes, 1 when any probe or scenario
fails, 2 when the transport cannot be constructed at all.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkSocket, "socket", "", "Path to the server's unix socket (default: configured path)")
	checkCmd.Flags().StringVar(&checkCommand, "command", "", "Command spawning a stdio bridge to the server instead of dialing the socket")
	checkCmd.Flags().StringArrayVar(&checkScenarios, "scenario", nil, "Scenario to run, repeatable (default: all registered scenarios)")
	checkCmd.Flags().StringVar(&checkScenarioFile, "scenario-file", "", "YAML file with additional scenario definitions")
	checkCmd.Flags().BoolVar(&checkProbesOnly, "probes-only", false, "Run only the environment probes")
	checkCmd.Flags().BoolVar(&checkScenariosOnly, "scenarios-only", false, "Run only the protocol scenarios")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 0, "Per-step timeout (default: configured step timeout)")
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose", false, "Show passing steps and remediation hints inline")
	checkCmd.Flags().BoolVar(&checkDebug, "debug", false, "Enable debug logging, including wire-level traffic")
	checkCmd.Flags().StringVar(&checkReportPath, "report", "", "Directory to save a timestamped JSON report into")

	checkCmd.MarkFlagsMutuallyExclusive("probes-only", "scenarios-only")
	checkCmd.MarkFlagsMutuallyExclusive("socket", "command")
	checkCmd.MarkFlagsMutuallyExclusive("probes-only", "scenario")
	checkCmd.MarkFlagsMutuallyExclusive("probes-only", "scenario-file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	initCheckLogging()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, stopping checks...")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	target := resolveTarget(cfg)
	started := time.Now()

	var scenarios []scenario.Scenario
	var tr transport.Transport
	if !checkProbesOnly {
		scenarios, err = selectScenarios()
		if err != nil {
			return err
		}

		tr, err = transport.New(target, transport.Options{
			ConnectTimeout: cfg.Timeouts.Connect,
			IOTimeout:      stepTimeout(cfg),
		})
		if err != nil {
			// Nothing was checked; this is an operator error, not a
			// diagnostic finding.
			fmt.Fprintf(os.Stderr, "❌ cannot construct transport for %s: %v\n", target, err)
			os.Exit(2)
		}
	}

	probeResults := make(chan []probe.Result, 1)
	if checkScenariosOnly {
		probeResults <- nil
	} else {
		suite := probe.NewSuite(cfg)
		go func() {
			probeResults <- suite.Run(ctx)
		}()
	}

	var scenarioResults []scenario.Result
	if !checkProbesOnly {
		runner := scenario.NewRunner(tr, stepTimeout(cfg))
		for _, sc := range scenarios {
			scenarioResults = append(scenarioResults, runner.Run(ctx, sc))
			if ctx.Err() != nil {
				break
			}
		}
	}

	summary := report.Aggregate(target.String(), <-probeResults, scenarioResults, started)
	report.NewRenderer(os.Stdout, checkVerbose).Render(summary)

	if checkReportPath != "" {
		path, err := summary.WriteJSON(checkReportPath)
		if err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Printf("📄 Report saved to: %s\n", path)
	}

	if !summary.Overall {
		failed := summary.ProbesFailed + summary.ScenariosFailed + summary.ScenariosAborted
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func initCheckLogging() {
	level := logging.LevelWarn
	if checkVerbose {
		level = logging.LevelInfo
	}
	if checkDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)
}

// resolveTarget picks the endpoint: an explicit command wins, then an
// explicit socket, then the configured socket path.
func resolveTarget(cfg config.Config) transport.Target {
	if checkCommand != "" {
		return transport.CommandTarget(strings.Fields(checkCommand))
	}
	socketPath := checkSocket
	if socketPath == "" {
		socketPath = cfg.Server.SocketPath
	}
	return transport.SocketTarget(config.ExpandPath(socketPath))
}

func stepTimeout(cfg config.Config) time.Duration {
	if checkTimeout > 0 {
		return checkTimeout
	}
	return cfg.Timeouts.Step
}

func selectScenarios() ([]scenario.Scenario, error) {
	registry, err := scenario.NewRegistry(scenario.Builtins()...)
	if err != nil {
		return nil, err
	}
	if checkScenarioFile != "" {
		loaded, err := scenario.LoadFile(checkScenarioFile)
		if err != nil {
			return nil, err
		}
		for _, sc := range loaded {
			if err := registry.Add(sc); err != nil {
				return nil, err
			}
		}
	}
	return registry.Select(checkScenarios)
}
