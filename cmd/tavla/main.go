// Command tavla runs the board store as a terminal UI, an HTTP/MCP server, or one-shot
// maintenance commands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	serveradapter "github.com/hylla/tavla/internal/adapters/server"
	"github.com/hylla/tavla/internal/platform"
)

// version is stamped at build time; "dev" enables dev-mode paths by default.
var version = "dev"

// program is the slice of *tea.Program the TUI command needs.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests replace it.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner runs the HTTP server; tests replace it.
var serveCommandRunner = serveradapter.Run

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		// fang already printed the styled error.
		os.Exit(1)
	}
}

// run executes one command line against the given output streams.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand()
	root.SetArgs(args)
	root.SetIn(os.Stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	inMemory   bool
}

// newRootCommand builds the command tree. The bare command opens the TUI.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{appName: platform.DefaultAppName}
	if envApp := strings.TrimSpace(os.Getenv("TAVLA_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TAVLA_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	root := &cobra.Command{
		Use:   "tavla",
		Short: "A keyboard-driven kanban board",
		Long: `tavla keeps boards, columns, tasks and subtasks in a local store.

Run without a command to open the terminal board. Use "serve" to expose the same
store over HTTP and MCP, and "export"/"import" to move snapshots between machines.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML (overrides TAVLA_CONFIG)")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database (overrides TAVLA_DB_PATH)")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	flags.BoolVar(&opts.inMemory, "memory", false, "keep boards in memory for this session only")

	root.AddCommand(
		newServeCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newSeedCommand(opts),
		newPathsCommand(opts),
	)
	return root
}

// resolvePaths resolves per-user paths for the selected app name and mode.
func (o *rootOptions) resolvePaths() (platform.Paths, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return platform.Paths{}, fmt.Errorf("resolve paths: %w", err)
	}
	return paths, nil
}

// parseBoolEnv reads a boolean environment variable; ok is false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
