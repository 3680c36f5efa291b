package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/sslprint/cmd/sslprint/internal/bind"
	"github.com/vulntor/sslprint/cmd/sslprint/internal/format"
	"github.com/vulntor/sslprint/pkg/fingerprint"
	"github.com/vulntor/sslprint/pkg/fingerprint/catalogsync"
	"github.com/vulntor/sslprint/pkg/stringutil"
	"github.com/vulntor/sslprint/pkg/workspace"
)

// newDBCommand wires helpers for signature database management.
func newDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"fingerprint", "fp"},
		Short:   "Manage signature databases",
		GroupID: "core",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newDBValidateCommand())
	cmd.AddCommand(newDBListCommand())
	cmd.AddCommand(newDBSyncCommand())
	cmd.AddCommand(newDBWatchCommand())

	return cmd
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "Output format (table, json)")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress summary lines")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
}

func newDBValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a p0f.fp or YAML catalog for errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := fingerprint.LoadFile(args[0])
			if err != nil {
				return err
			}

			result := fingerprint.NewValidator(strict).Validate(db)
			f := format.FromCommand(cmd)

			findings := append(append([]fingerprint.ValidationError(nil), result.Errors...), result.Warnings...)
			if len(findings) > 0 || f.Mode() == format.ModeJSON {
				rows := make([][]string, 0, len(findings))
				for _, v := range findings {
					rows = append(rows, []string{v.Severity, strconv.Itoa(v.Line), v.Field, v.Message})
				}
				if err := f.PrintTable([]string{"Severity", "Line", "Field", "Message"}, rows); err != nil {
					return err
				}
			}

			if err := f.PrintSummary(fmt.Sprintf("%s: %d signatures, %d errors, %d warnings",
				args[0], result.RecordCount, len(result.Errors), len(result.Warnings))); err != nil {
				return err
			}
			if !result.IsValid() {
				return fingerprint.NewValidationError(len(result.Errors), len(result.Warnings))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	addOutputFlags(cmd)

	return cmd
}

func newDBListCommand() *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the signatures of the active database",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var want fingerprint.Class
			if class != "" {
				c, ok := fingerprint.ParseClass(class)
				if !ok {
					return fmt.Errorf("unknown class %q (must be 'app' or 'os')", class)
				}
				want = c
			}

			ctx := cmd.Context()
			db, source, err := loadDatabase(ctx, configFrom(ctx))
			if err != nil {
				return err
			}

			f := format.FromCommand(cmd)
			rows := make([][]string, 0, db.Len())
			for _, r := range db.Records() {
				if class != "" && r.Class != want {
					continue
				}
				row := describeRecord(db, r)
				if f.Mode() != format.ModeJSON {
					row[4] = stringutil.Ellipsis(row[4], maxSignatureWidth)
				}
				rows = append(rows, row)
			}

			if err := f.PrintTable([]string{"Line", "Kind", "Label", "Systems", "Signature"}, rows); err != nil {
				return err
			}
			return f.PrintSummary(fmt.Sprintf("%d signatures from %s", len(rows), source))
		},
	}

	cmd.Flags().StringVar(&class, "class", "", "Only list signatures of this class (app, os)")
	addOutputFlags(cmd)

	return cmd
}

func newDBSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the signature catalog from a remote or local source",
		Example: `  sslprint db sync --file ./p0f.fp
  sslprint db sync --url https://example.com/ssl.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := bind.BindSyncOptions(cmd)
			if err != nil {
				return err
			}

			destination := opts.CacheDir
			if destination == "" {
				ws, ok := workspace.FromContext(cmd.Context())
				if !ok {
					return fingerprint.NewStorageDisabledError()
				}
				destination = workspace.CatalogCacheDir(ws)
			}

			svc := catalogsync.Service{
				CacheDir: destination,
				Store:    catalogsync.FileStore{Path: filepath.Join(destination, fingerprint.CacheFileName)},
			}
			if opts.FilePath != "" {
				svc.Source = catalogsync.FileSource{Path: opts.FilePath}
			} else {
				svc.Source = catalogsync.HTTPSource{URL: opts.URL}
			}

			db, err := svc.Sync(cmd.Context())
			if err != nil {
				return err
			}

			log.Info().Str("cache", destination).Int("signatures", db.Len()).Msg("signature catalog synced")
			return format.FromCommand(cmd).PrintSummary(fmt.Sprintf("✓ Synced %d signatures to %s", db.Len(), destination))
		},
	}

	cmd.Flags().String("file", "", "Load the catalog from a local file")
	cmd.Flags().String("url", "", "Download the catalog from a remote URL")
	cmd.Flags().String("cache-dir", "", "Override the catalog cache directory")
	addOutputFlags(cmd)

	return cmd
}

func newDBWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Validate a catalog every time it changes",
		Long: `Watch a catalog file while editing it. Every save is reloaded and the
result is logged; the command runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			db, err := fingerprint.LoadFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d signatures\n", path, db.Len())

			watcher, err := fingerprint.NewCatalogWatcher(path, func(db *fingerprint.Database, err error) {
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					return
				}
				fmt.Fprintf(out, "%s: %d signatures\n", path, db.Len())
			}, log.Logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
