package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/sslprint/cmd/sslprint/internal/format"
	"github.com/vulntor/sslprint/pkg/signature"
)

func newMatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <signature>",
		Short: "Look up an observed signature in the database",
		Long: `Match a signature as printed by "analyze" against the signature database.
An optional "?0" server_name extension is treated as sent.`,
		Example: `  sslprint match '3.3:c02b,c02f,9e,cc14,cc13:?0,ff01,10,5,a,b,d:ver'`,
		GroupID: "analysis",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := observedSignature(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, _, err := loadDatabase(ctx, configFrom(ctx))
			if err != nil {
				return err
			}

			f := format.FromCommand(cmd)
			obs := db.Match(sig)
			if obs.Matched == nil {
				if f.Mode() == format.ModeJSON {
					return f.PrintJSON(map[string]any{"matched": false, "signature": sig.String()})
				}
				return f.PrintSummary("no match for " + sig.String())
			}

			row := describeRecord(db, obs.Matched)
			if f.Mode() == format.ModeJSON {
				return f.PrintJSON(map[string]any{
					"matched":   true,
					"signature": sig.String(),
					"line":      obs.Matched.Line,
					"kind":      row[1],
					"label":     row[2],
					"systems":   row[3],
					"match_sig": row[4],
				})
			}
			return f.PrintTable([]string{"Line", "Kind", "Label", "Systems", "Signature"}, [][]string{row})
		},
	}

	cmd.Flags().StringP("output", "o", "table", "Output format (table, json)")
	cmd.Flags().Bool("no-color", false, "Disable colored output")

	return cmd
}

// observedSignature parses a signature taken from a dump. Observed
// signatures hold concrete values only.
func observedSignature(raw string) (*signature.Signature, error) {
	sig, err := signature.ParseObserved(raw)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}
	for i, t := range sig.Extensions {
		if t.Kind == signature.Optional {
			sig.Extensions[i] = signature.ExactToken(t.Value)
		}
	}
	if !sig.Ciphers.IsConcrete() || !sig.Extensions.IsConcrete() {
		return nil, errors.New("observed signatures cannot contain wildcards or optional ciphers")
	}
	return sig, nil
}
