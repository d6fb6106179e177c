package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	serveradapter "github.com/hylla/tavla/internal/adapters/server"
	servercommon "github.com/hylla/tavla/internal/adapters/server/common"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/tui"
)

// runTUI opens the terminal board against the configured store.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) (err error) {
	s, err := openSession(ctx, opts, stderr, true)
	if err != nil {
		return err
	}
	defer s.Close()
	logger := s.logger
	logger.Info("command flow start", "command", "tui")
	defer func() {
		if err != nil {
			logger.Error("command flow failed", "command", "tui", "err", err)
			return
		}
		logger.Info("command flow complete", "command", "tui")
	}()

	changes, unsubscribe := s.svc.Subscribe()
	defer unsubscribe()
	m := tui.NewModel(s.svc,
		tui.WithConfirmDelete(s.cfg.UI.ConfirmDelete),
		tui.WithChanges(changes),
	)
	logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		return fmt.Errorf("run tui program: %w", err)
	}
	return nil
}

// newServeCommand exposes the store over HTTP and MCP.
func newServeCommand(opts *rootOptions) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board store over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := serveradapter.Config{
				HTTPBind:      firstNonEmpty(httpBind, s.cfg.Server.HTTPBind),
				APIEndpoint:   firstNonEmpty(apiEndpoint, s.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(mcpEndpoint, s.cfg.Server.MCPEndpoint),
				ServerName:    opts.appName,
				ServerVersion: version,
			}
			adapter := servercommon.NewAppServiceAdapter(s.svc)
			s.logger.Info("command flow start", "command", "serve", "http", cfg.HTTPBind)
			if err := serveCommandRunner(cmd.Context(), cfg, serveradapter.Dependencies{
				Boards:  adapter,
				Watcher: adapter,
				Logger:  s.logger.Sink(),
			}); err != nil {
				s.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("serve: %w", err)
			}
			s.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from [server] http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST base path (default from [server] api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP base path (default from [server] mcp_endpoint)")
	return cmd
}

// newExportCommand writes a JSON snapshot of every board.
func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer s.Close()
			return runExport(cmd.Context(), s, outPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", `output file ("-" for stdout, default: snapshot path)`)
	return cmd
}

// runExport encodes the current snapshot to outPath or stdout.
func runExport(ctx context.Context, s *session, outPath string, stdout io.Writer) error {
	snap := s.svc.ExportSnapshot(ctx)
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	encoded = append(encoded, '\n')

	outPath = firstNonEmpty(outPath, s.paths.SnapshotPath)
	if outPath == "-" {
		_, err = stdout.Write(encoded)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	s.logger.Info("snapshot exported", "path", outPath, "boards", len(snap.Boards))
	_, _ = fmt.Fprintf(stdout, "exported %d boards to %s\n", len(snap.Boards), outPath)
	return nil
}

// newImportCommand replaces the store with a JSON snapshot.
func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the store with a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer s.Close()
			return runImport(cmd.Context(), s, inPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", `input file ("-" for stdin, default: snapshot path)`)
	return cmd
}

// runImport decodes a snapshot from inPath or stdin and applies it.
func runImport(ctx context.Context, s *session, inPath string, stdin io.Reader, stdout io.Writer) error {
	inPath = firstNonEmpty(inPath, s.paths.SnapshotPath)
	var (
		content []byte
		err     error
	)
	if inPath == "-" {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(inPath)
	}
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	s.logger.Info("snapshot imported", "path", inPath, "boards", len(snap.Boards))
	_, _ = fmt.Fprintf(stdout, "imported %d boards\n", len(snap.Boards))
	return nil
}

// newSeedCommand loads the seed fixture into the store.
func newSeedCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the seed boards into the store",
		Long: `seed loads the boards from [seed] path, or the built-in fixture when no path is set.
It refuses to overwrite existing boards unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			raw, err := s.seedPayload()
			if err != nil {
				return err
			}
			boards, err := s.svc.InitializeFromSeed(cmd.Context(), raw, force)
			if err != nil {
				if errors.Is(err, app.ErrStateNotEmpty) {
					return fmt.Errorf("%w (use --force to replace them)", err)
				}
				return err
			}
			s.logger.Info("seed applied", "boards", len(boards), "force", force)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d boards\n", len(boards))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace existing boards")
	return cmd
}

// newPathsCommand prints the resolved file locations.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "snapshot: %s\n", paths.SnapshotPath)
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return ""
}
