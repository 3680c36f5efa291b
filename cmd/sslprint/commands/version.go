package commands

import (
	"fmt"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/vulntor/sslprint/cmd/sslprint/internal/format"
	"github.com/vulntor/sslprint/pkg/version"
)

var versionTemplate = `Version:      {{.Version}}
Commit:       {{.Commit}}
Go version:   {{.GoVersion}}
Built:        {{.BuildDate}}
OS/Arch:      {{.Platform}}
`

func newVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the version number of sslprint",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return err
			}

			f := format.FromCommand(cmd)
			if f.Mode() == format.ModeJSON {
				return f.PrintJSON(version.Get())
			}

			tmpl, err := template.New("version").Parse(versionTemplate)
			if err != nil {
				return err
			}
			if err := tmpl.Execute(cmd.OutOrStdout(), version.Get()); err != nil {
				return err
			}
			if !version.IsRelease() {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "(development build)")
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	cmd.Flags().StringP("output", "o", "table", "Output format (table, json)")

	return cmd
}
