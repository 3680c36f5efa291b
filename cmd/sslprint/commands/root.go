package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/sslprint/cmd/sslprint/internal/format"
	"github.com/vulntor/sslprint/pkg/appctx"
	"github.com/vulntor/sslprint/pkg/config"
	"github.com/vulntor/sslprint/pkg/fingerprint"
	"github.com/vulntor/sslprint/pkg/logging"
	"github.com/vulntor/sslprint/pkg/paths"
	"github.com/vulntor/sslprint/pkg/workspace"
)

const cliExecutable = "sslprint"

// NewCommand constructs the top-level sslprint CLI command, wiring global
// flags, configuration loading, logging and workspace preparation.
func NewCommand() *cobra.Command {
	var (
		configFile        string
		workspaceDir      string
		workspaceDisabled bool
		closeLog          func() error
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Passive SSL/TLS client fingerprinting",
		Long: `sslprint identifies TLS client software from the ClientHello it sends,
using p0f-style signatures for cipher suites, extensions and protocol quirks.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if f := cmd.Flags().Lookup("output"); f != nil {
				if err := format.ValidateMode(f.Value.String()); err != nil {
					return err
				}
			}
			if configFile == "" {
				configFile = paths.DefaultConfigFile()
			}
			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg := mgr.Get()

			var err error
			closeLog, err = logging.Configure(cfg.Log)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			ctx := appctx.WithConfig(cmd.Context(), mgr)

			if !workspaceDisabled {
				prepared, err := workspace.Prepare(workspaceDir)
				if err != nil {
					return fmt.Errorf("prepare workspace: %w", err)
				}
				ctx = workspace.WithContext(ctx, prepared)
				log.Debug().Str("workspace", prepared).Msg("workspace ready")
			} else {
				log.Debug().Msg("workspace disabled for this run")
			}

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: $XDG_CONFIG_HOME/sslprint/config.yaml)")
	cmd.PersistentFlags().StringVar(&workspaceDir, "workspace-dir", "", "Override workspace root directory")
	cmd.PersistentFlags().BoolVar(&workspaceDisabled, "no-workspace", false, "Disable workspace persistence for this run")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "analysis", Title: "Analysis Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(newAnalyzeCommand())
	cmd.AddCommand(newMatchCommand())
	cmd.AddCommand(newDBCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	executed, err := cmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	f := format.New(stdout, stderr, format.ModeTable, false, true)
	if executed != nil {
		f = format.FromCommand(executed)
	}
	_ = f.PrintError(err)
	_ = f.PrintSuggestions(hints(err))
	return fingerprint.ExitCode(err)
}

// hints returns suggestions for errors raised by the signature tooling.
func hints(err error) []string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) ||
		errors.Is(err, fingerprint.ErrConfigInvalid) ||
		errors.Is(err, fingerprint.ErrValidationFailed) {
		return fingerprint.Suggestions(err)
	}
	return nil
}
